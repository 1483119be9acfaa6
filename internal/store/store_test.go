package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMD5HexMatchesStdlib(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", MD5Hex(""))
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", MD5Hex("hello world"))
}

func TestStatusConstantsAreDistinct(t *testing.T) {
	seen := map[Status]bool{}
	for _, s := range []Status{StatusIngested, StatusChunked, StatusEmbedded, StatusError} {
		assert.False(t, seen[s], "duplicate status value %q", s)
		seen[s] = true
	}
}
