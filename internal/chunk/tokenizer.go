package chunk

import (
	"sync"

	"github.com/daulet/tokenizers"

	"github.com/triloy8/ragfeed-rs/internal/errs"
)

// Tokenizer wraps the E5-family HuggingFace tokenizer used both for
// chunk-time windowing and for encoder-time input preparation, so "token"
// means the same thing on both sides of the chunk/embed boundary (spec.md
// §4.3 step 1). It is safe for concurrent use; the underlying Rust
// tokenizer is not, so calls are serialized with a mutex.
type Tokenizer struct {
	mu  sync.Mutex
	tok *tokenizers.Tokenizer
}

// LoadTokenizer loads tokenizer.json from the given path (resolved by
// internal/modelcache against HF_HOME).
func LoadTokenizer(path string) (*Tokenizer, error) {
	tok, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, errs.New(errs.KindModel, "load tokenizer", err)
	}
	return &Tokenizer{tok: tok}, nil
}

// Close releases the tokenizer's native resources.
func (t *Tokenizer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tok != nil {
		t.tok.Close()
	}
}

// Encode returns the token IDs for text. addSpecialTokens controls whether
// the tokenizer's special tokens (e.g. the [CLS]/[SEP] markers of BERT-style
// E5 models) are included; the Chunker encodes without them since it only
// needs raw token counts and offsets, the Encoder encodes with them.
func (t *Tokenizer) Encode(text string, addSpecialTokens bool) []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids, _ := t.tok.Encode(text, addSpecialTokens)
	return ids
}

// Decode reconstructs text from a slice of token IDs, used to recover each
// window's text span after windowing over the full token sequence.
func (t *Tokenizer) Decode(ids []uint32, skipSpecialTokens bool) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tok.Decode(ids, skipSpecialTokens)
}
