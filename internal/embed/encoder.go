package embed

import (
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/triloy8/ragfeed-rs/internal/chunk"
	"github.com/triloy8/ragfeed-rs/internal/errs"
)

// EncoderConfig mirrors the Encoder's CLI flags from spec.md §4.4.
type EncoderConfig struct {
	ModelID       string
	ModelPath     string // resolved model.onnx path
	TokenizerPath string // resolved tokenizer.json path
	Dim           int
	MaxSeqLen     int
	Device        string // "cpu" or "cuda"
	Batch         int
}

// DefaultEncoderConfig applies spec.md §4.4's named defaults.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{ModelID: "intfloat/e5-small-v2", Dim: 384, MaxSeqLen: 512, Device: "cpu", Batch: 16}
}

// Encoder owns one ONNX inference session, reused across every batch within
// a command (spec.md §5: "a single ONNX inference session is reused"). The
// session is a DynamicAdvancedSession because batch size and sequence length
// vary from call to call (the last batch in a run is usually short).
type Encoder struct {
	cfg     EncoderConfig
	tok     *chunk.Tokenizer
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

var envOnce sync.Once
var envErr error

func initEnvironment() error {
	envOnce.Do(func() {
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// NewEncoder initializes the ONNX runtime environment (once per process)
// and opens a DynamicAdvancedSession against the model at cfg.ModelPath.
func NewEncoder(cfg EncoderConfig, tok *chunk.Tokenizer) (*Encoder, error) {
	if cfg.Dim <= 0 {
		return nil, errs.New(errs.KindConfig, "new encoder", errInvalidDim)
	}
	if cfg.Device != "cpu" && cfg.Device != "cuda" {
		return nil, errs.New(errs.KindConfig, "new encoder", errUnknownDevice)
	}

	if err := initEnvironment(); err != nil {
		return nil, errs.New(errs.KindModel, "init onnxruntime environment", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errs.New(errs.KindModel, "new session options", err)
	}
	defer opts.Destroy()

	if cfg.Device == "cuda" {
		if err := opts.AppendExecutionProviderCUDA(); err != nil {
			return nil, errs.New(errs.KindModel, "enable cuda provider", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"last_hidden_state"},
		opts)
	if err != nil {
		return nil, errs.New(errs.KindModel, "open onnx session", err)
	}

	return &Encoder{cfg: cfg, tok: tok, session: session}, nil
}

// ModelID reports the embedding model identifier this Encoder was built
// with, used to tag stored embeddings and to match a query's encoder to the
// model the corpus was embedded with (spec.md §3, §4.5).
func (e *Encoder) ModelID() string { return e.cfg.ModelID }

// Dim reports the embedding's vector length.
func (e *Encoder) Dim() int { return e.cfg.Dim }

// Close releases the ONNX session.
func (e *Encoder) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}

// EncodeBatch tokenizes, runs inference, mean-pools, and L2-normalizes a
// batch of texts, returning one vector per text. The output tensor is
// allocated with cfg.Dim as its last dimension, so a model whose hidden size
// differs from cfg.Dim fails inside session.Run and aborts the batch as a
// model error; the per-vector length check after pooling reports a config
// error only if a pooled vector still differs from cfg.Dim.
func (e *Encoder) EncodeBatch(texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	batch := len(texts)
	if batch == 0 {
		return nil, nil
	}

	allIDs := make([][]uint32, batch)
	seqLen := 0
	for i, text := range texts {
		ids := e.tok.Encode(text, true)
		if len(ids) > e.cfg.MaxSeqLen {
			ids = ids[:e.cfg.MaxSeqLen]
		}
		allIDs[i] = ids
		if len(ids) > seqLen {
			seqLen = len(ids)
		}
	}
	if seqLen == 0 {
		seqLen = 1
	}

	inputIDs := make([]int64, batch*seqLen)
	attentionMask := make([]int64, batch*seqLen)
	for i, ids := range allIDs {
		base := i * seqLen
		for j := 0; j < seqLen; j++ {
			if j < len(ids) {
				inputIDs[base+j] = int64(ids[j])
				attentionMask[base+j] = 1
			}
		}
	}

	inputShape := ort.NewShape(int64(batch), int64(seqLen))
	idsTensor, err := ort.NewTensor(inputShape, inputIDs)
	if err != nil {
		return nil, errs.New(errs.KindModel, "build input_ids tensor", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(inputShape, attentionMask)
	if err != nil {
		return nil, errs.New(errs.KindModel, "build attention_mask tensor", err)
	}
	defer maskTensor.Destroy()

	outputShape := ort.NewShape(int64(batch), int64(seqLen), int64(e.cfg.Dim))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, errs.New(errs.KindModel, "build output tensor", err)
	}
	defer outputTensor.Destroy()

	inputs := []ort.Value{idsTensor, maskTensor}
	outputs := []ort.Value{outputTensor}
	if err := e.session.Run(inputs, outputs); err != nil {
		return nil, errs.New(errs.KindModel, "run onnx session", err)
	}

	hidden := outputTensor.GetData()
	vectors := make([][]float32, batch)
	for i := 0; i < batch; i++ {
		rowHidden := hidden[i*seqLen*e.cfg.Dim : (i+1)*seqLen*e.cfg.Dim]
		rowMask := attentionMask[i*seqLen : (i+1)*seqLen]
		pooled := MeanPool(rowHidden, rowMask, seqLen, e.cfg.Dim)
		normalized := L2Normalize(pooled)
		if len(normalized) != e.cfg.Dim {
			return nil, errs.New(errs.KindConfig, "encode batch",
				dimMismatchError(e.cfg.Dim, len(normalized)))
		}
		vectors[i] = normalized
	}

	return vectors, nil
}
