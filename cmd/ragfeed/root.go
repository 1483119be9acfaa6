// Command ragfeed is the CLI surface over the Store/Ingestor/Chunker/
// Encoder/Retriever/Maintainer/Stats components, one subcommand file per
// verb, mirroring the one-handler-per-route layout of the teacher's
// internal/server/server.go.
package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/triloy8/ragfeed-rs/internal/cliutil"
	"github.com/triloy8/ragfeed-rs/internal/config"
	"github.com/triloy8/ragfeed-rs/internal/embed"
	"github.com/triloy8/ragfeed-rs/internal/errs"
	"github.com/triloy8/ragfeed-rs/internal/httpx"
	"github.com/triloy8/ragfeed-rs/internal/ingest"
	"github.com/triloy8/ragfeed-rs/internal/logging"
	"github.com/triloy8/ragfeed-rs/internal/modelcache"
	"github.com/triloy8/ragfeed-rs/internal/store"
	"github.com/triloy8/ragfeed-rs/internal/chunk"
)

// rootFlags holds the global flags spec.md §6 names: --dsn, --json,
// --apply, plus --dim since the store's vector column width is fixed at
// schema bootstrap time and must agree with whichever encoder a command
// constructs.
type rootFlags struct {
	dsn   string
	json  bool
	apply bool
	dim   int
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "ragfeed",
		Short:         "ingest RSS feeds into a Postgres+pgvector corpus and query it semantically",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "Postgres connection string (overrides DATABASE_URL)")
	root.PersistentFlags().BoolVar(&flags.json, "json", false, "force NDJSON envelope output regardless of RAG_OUTPUT_FORMAT")
	root.PersistentFlags().BoolVar(&flags.apply, "apply", false, "execute the command instead of only previewing a plan")
	root.PersistentFlags().IntVar(&flags.dim, "dim", 384, "embedding vector width (fixes the schema's vector column on first bootstrap)")

	root.AddCommand(
		newFeedCmd(flags),
		newIngestCmd(flags),
		newChunkCmd(flags),
		newEmbedCmd(flags),
		newQueryCmd(flags),
		newStatsCmd(flags),
		newReindexCmd(flags),
		newGCCmd(flags),
	)

	return root
}

// app bundles the resources every subcommand needs: config, logger, store,
// and the envelope writer. Subcommands that need more (a tokenizer, an
// encoder, an HTTP client) build those on top via the helpers below.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	store  *store.Store
	writer *cliutil.Writer
	runID  string
}

// bootstrap resolves config, opens the store, and wires the logger/writer
// every subcommand shares. Every invocation gets a runID correlating its
// stderr log lines with the rag.run row finish() writes.
func bootstrap(ctx context.Context, flags *rootFlags) (*app, error) {
	cfg, err := config.FromEnv(flags.dsn)
	if err != nil {
		return nil, errs.New(errs.KindConfig, "load config", err)
	}
	if flags.json {
		cfg.OutputFormat = "json"
	}

	runID := uuid.NewString()
	log := logging.New(cfg.LogFormat, cfg.LogDirective).With().Str("run_id", runID).Logger()

	st, err := store.Open(ctx, cfg.DSN, cfg.Database.MaxConnections, cfg.Database.StatementTimeoutMS, flags.dim)
	if err != nil {
		return nil, err
	}

	writer := cliutil.NewWriter(os.Stdout, cliutil.Format(cfg.OutputFormat), cfg.OutputPretty)

	return &app{cfg: cfg, log: log, store: st, writer: writer, runID: runID}, nil
}

// newHTTPClient builds the rate-limited client the Ingestor and modelcache
// share, per spec.md §5.
func newHTTPClient() *httpx.Client {
	return httpx.New(httpx.DefaultClientConfig())
}

// newExtractor builds the generic readability/goquery extractor every
// ingest run uses.
func newExtractor() ingest.Extractor {
	return ingest.NewGenericExtractor()
}

// newTokenizer resolves and loads the shared E5 tokenizer from the model
// cache, downloading it on first use.
func newTokenizer(ctx context.Context, a *app, client *httpx.Client, modelID string) (*chunk.Tokenizer, error) {
	cache := modelcache.New(a.cfg.ModelCache, client)
	paths, err := cache.Resolve(ctx, modelID, modelcache.Source{
		TokenizerURL: a.cfg.ModelSource.TokenizerURL,
		ModelURL:     a.cfg.ModelSource.ModelURL,
	})
	if err != nil {
		return nil, err
	}
	return chunk.LoadTokenizer(paths.TokenizerPath)
}

// newEncoder resolves the model cache and builds the Encoder, reusing the
// tokenizer already loaded for the chunk side of the pipeline.
func newEncoder(ctx context.Context, a *app, client *httpx.Client, cfg embed.EncoderConfig, tok *chunk.Tokenizer) (*embed.Encoder, error) {
	cache := modelcache.New(a.cfg.ModelCache, client)
	paths, err := cache.Resolve(ctx, cfg.ModelID, modelcache.Source{
		TokenizerURL: a.cfg.ModelSource.TokenizerURL,
		ModelURL:     a.cfg.ModelSource.ModelURL,
	})
	if err != nil {
		return nil, err
	}
	cfg.TokenizerPath = paths.TokenizerPath
	cfg.ModelPath = paths.ModelPath
	return embed.NewEncoder(cfg, tok)
}

// finish records the run, logs the outcome, and closes the store. Every
// subcommand defers this after a successful bootstrap.
func (a *app) finish(ctx context.Context, op string, runErr error) {
	status := "ok"
	if runErr != nil {
		status = "error"
		logging.WithErr(a.log.Error(), runErr).Str("op", op).Msg("command failed")
	}
	if err := a.store.RecordRun(ctx, op, status, map[string]string{"run_id": a.runID}); err != nil {
		a.log.Warn().Err(err).Str("op", op).Msg("failed to record run")
	}
	a.store.Close()
}
