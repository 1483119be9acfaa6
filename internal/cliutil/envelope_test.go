package cliutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triloy8/ragfeed-rs/internal/planapply"
)

func TestWriteTextFormat(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatText, false)

	err := w.Write(planapply.Plan("ingest", planapply.Counts{"inserted": 2}, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "ingest plan: inserted=2\n", buf.String())
}

func TestWriteJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatJSON, false)

	err := w.Write(planapply.Result("chunk", planapply.Counts{"chunks": 4}, nil, nil))
	require.NoError(t, err)

	var got planapply.Envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, planapply.KindResult, got.Kind)
	assert.Equal(t, int64(4), got.Counts["chunks"])
}

func TestWriteMCPFormatWrapsNotification(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatMCP, false)

	require.NoError(t, w.Write(planapply.Plan("gc", planapply.Counts{}, nil, nil)))
	assert.True(t, strings.Contains(buf.String(), `"method":"notifications/plan"`))

	buf.Reset()
	require.NoError(t, w.Write(planapply.Result("gc", planapply.Counts{}, nil, nil)))
	assert.True(t, strings.Contains(buf.String(), `"method":"notifications/result"`))
}
