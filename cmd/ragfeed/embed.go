package main

import (
	"github.com/spf13/cobra"

	"github.com/triloy8/ragfeed-rs/internal/embed"
	"github.com/triloy8/ragfeed-rs/internal/planapply"
)

func newEmbedCmd(flags *rootFlags) *cobra.Command {
	var force bool
	var limit int
	encCfg := embed.DefaultEncoderConfig()

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "encode chunks missing an embedding and upsert them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			var runErr error
			defer func() { a.finish(ctx, "embed", runErr) }()

			encCfg.Dim = flags.dim

			client := newHTTPClient()
			tok, err := newTokenizer(ctx, a, client, encCfg.ModelID)
			if err != nil {
				runErr = err
				return runErr
			}
			defer tok.Close()

			encoder, err := newEncoder(ctx, a, client, encCfg, tok)
			if err != nil {
				runErr = err
				return runErr
			}
			defer func() {
				if cerr := encoder.Close(); cerr != nil {
					a.log.Warn().Err(cerr).Msg("failed to close onnx session")
				}
			}()

			job := embed.NewJob(a.store, encoder)
			jobOpts := embed.JobOptions{Force: force, Limit: limit}

			if !flags.apply {
				counts, err := job.Plan(ctx, jobOpts)
				if err != nil {
					runErr = err
					return runErr
				}
				runErr = a.writer.Write(planapply.Plan("embed", counts, nil, nil))
				return runErr
			}

			counts, failures, err := job.Apply(ctx, jobOpts)
			if err != nil {
				runErr = err
				return runErr
			}
			runErr = a.writer.Write(planapply.Result("embed", counts, failures, nil))
			return runErr
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-embed chunks that already have an embedding for this model")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of chunks considered (0 = no cap)")
	cmd.Flags().StringVar(&encCfg.ModelID, "model", encCfg.ModelID, "embedding model id, also used as the tokenizer cache key")
	cmd.Flags().IntVar(&encCfg.MaxSeqLen, "max-seq-len", encCfg.MaxSeqLen, "maximum tokens per input sequence")
	cmd.Flags().StringVar(&encCfg.Device, "device", encCfg.Device, "inference device: cpu or cuda")
	cmd.Flags().IntVar(&encCfg.Batch, "batch", encCfg.Batch, "chunks encoded per inference call")
	return cmd
}
