// Package cliutil renders a planapply.Envelope to stdout in whichever of the
// three RAG_OUTPUT_FORMAT modes the CLI was invoked with: human text,
// NDJSON, or an MCP JSON-RPC notification wrapper.
package cliutil

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/triloy8/ragfeed-rs/internal/planapply"
)

// Format is one of the three stdout rendering modes from spec.md §6.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatMCP  Format = "mcp"
)

// mcpNotification wraps an envelope the way the CLI's "mcp" output mode
// requires: one JSON-RPC 2.0 notification per envelope, method named after
// the envelope's Kind.
type mcpNotification struct {
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  planapply.Envelope `json:"params"`
}

// Writer emits envelopes to an io.Writer (normally os.Stdout) in the
// configured format.
type Writer struct {
	out    io.Writer
	format Format
	pretty bool
}

// NewWriter constructs a Writer. pretty indents JSON/mcp output when true,
// mirroring RAG_OUTPUT_PRETTY.
func NewWriter(out io.Writer, format Format, pretty bool) *Writer {
	return &Writer{out: out, format: format, pretty: pretty}
}

// Write renders one envelope according to the Writer's format.
func (w *Writer) Write(e planapply.Envelope) error {
	switch w.format {
	case FormatJSON:
		return w.encode(e)
	case FormatMCP:
		method := "notifications/result"
		if e.Kind == planapply.KindPlan {
			method = "notifications/plan"
		}
		return w.encode(mcpNotification{JSONRPC: "2.0", Method: method, Params: e})
	default:
		_, err := fmt.Fprintln(w.out, planapply.Summary(e))
		return err
	}
}

func (w *Writer) encode(v any) error {
	enc := json.NewEncoder(w.out)
	if w.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
