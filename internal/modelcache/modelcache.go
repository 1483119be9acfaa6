// Package modelcache resolves a model ID to its tokenizer.json/model.onnx
// paths under HF_HOME, downloading either file on first use. It is
// intentionally thin: a real Hugging Face Hub client resolves revisions,
// shards, and auth tokens; this one assumes a single-file, public,
// already-known download URL per model ID (spec.md §1 treats the model
// cache as an external collaborator, not a component to build out fully).
package modelcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/triloy8/ragfeed-rs/internal/errs"
	"github.com/triloy8/ragfeed-rs/internal/httpx"
)

// Paths is the resolved location of one model's tokenizer and ONNX graph.
type Paths struct {
	TokenizerPath string
	ModelPath     string
}

// Source names the download URLs for a model ID, since HF_HOME alone
// doesn't encode where to fetch a missing file from.
type Source struct {
	TokenizerURL string
	ModelURL     string
}

// Cache resolves model IDs to local paths under a root directory
// (conventionally $HF_HOME), downloading on cache miss.
type Cache struct {
	root   string
	client *httpx.Client
}

// New constructs a Cache rooted at root (typically config.ModelCache).
func New(root string, client *httpx.Client) *Cache {
	return &Cache{root: root, client: client}
}

// Resolve returns the local tokenizer/model paths for modelID, downloading
// whichever file is missing from src. Existing files are never re-fetched;
// the Encoder is responsible for model version pinning via modelID.
func (c *Cache) Resolve(ctx context.Context, modelID string, src Source) (Paths, error) {
	dir := filepath.Join(c.root, modelID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, errs.New(errs.KindIO, "create model cache dir", err)
	}

	tokenizerPath := filepath.Join(dir, "tokenizer.json")
	modelPath := filepath.Join(dir, "model.onnx")

	if err := c.ensure(ctx, tokenizerPath, src.TokenizerURL); err != nil {
		return Paths{}, err
	}
	if err := c.ensure(ctx, modelPath, src.ModelURL); err != nil {
		return Paths{}, err
	}

	return Paths{TokenizerPath: tokenizerPath, ModelPath: modelPath}, nil
}

func (c *Cache) ensure(ctx context.Context, path, url string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errs.New(errs.KindIO, "stat cached model file", err)
	}

	if url == "" {
		return errs.New(errs.KindNotFound, "resolve model file",
			fmt.Errorf("%s is missing and no download URL was configured", path))
	}

	resp, err := c.client.Get(ctx, url, "", "")
	if err != nil {
		return errs.New(errs.KindIO, fmt.Sprintf("download %s", url), err)
	}

	if err := os.WriteFile(path, resp.Body, 0o644); err != nil {
		return errs.New(errs.KindIO, "write cached model file", err)
	}
	return nil
}
