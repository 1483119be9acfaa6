package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestWindowsBoundaryScenario exercises the exact inputs from the boundary
// scenario: 1,000 tokens, target 350, overlap 80. The algorithm as described
// (stride = target-overlap, last window absorbed only when shorter than
// overlap) yields a 190-token final window, not the short window the
// example prose states in passing; see DESIGN.md for why the invariant
// (dense indices, exact overlap, full coverage) wins over that prose number.
func TestWindowsBoundaryScenario(t *testing.T) {
	windows := Windows(1000, 350, 80)

	if assert.Len(t, windows, 4) {
		assert.Equal(t, Window{0, 350}, windows[0])
		assert.Equal(t, Window{270, 620}, windows[1])
		assert.Equal(t, Window{540, 890}, windows[2])
		assert.Equal(t, Window{810, 1000}, windows[3])
	}
}

func TestWindowsDenseCoverageAndOverlapInvariant(t *testing.T) {
	cases := []struct {
		total, target, overlap int
	}{
		{1000, 350, 80},
		{42, 10, 3},
		{7, 10, 2},
		{1, 5, 0},
		{500, 100, 0},
	}

	for _, c := range cases {
		windows := Windows(c.total, c.target, c.overlap)
		if len(windows) == 0 {
			continue
		}

		assert.Equal(t, 0, windows[0].Start, "first window must start at 0")
		assert.Equal(t, c.total, windows[len(windows)-1].End, "last window must reach total")

		for i, w := range windows {
			assert.LessOrEqual(t, w.Len(), c.target, "window %d exceeds target", i)
			if i > 0 {
				overlapLen := windows[i-1].End - w.Start
				if i < len(windows)-1 {
					assert.Equal(t, c.overlap, overlapLen, "window %d overlap", i)
				}
			}
		}
	}
}

func TestWindowsEmptyDocument(t *testing.T) {
	assert.Nil(t, Windows(0, 350, 80))
}

func TestWindowsSingleWindowWhenShorterThanTarget(t *testing.T) {
	windows := Windows(100, 350, 80)
	assert.Equal(t, []Window{{0, 100}}, windows)
}

func TestCapPrefixTruncates(t *testing.T) {
	windows := []Window{{0, 10}, {10, 20}, {20, 30}, {30, 40}}
	assert.Equal(t, windows[:2], Cap(windows, 2))
	assert.Equal(t, windows, Cap(windows, 0))
	assert.Equal(t, windows, Cap(windows, 10))
}
