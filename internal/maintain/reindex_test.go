package maintain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListsHeuristicClampsToRange(t *testing.T) {
	assert.Equal(t, 32, listsHeuristic(0))
	assert.Equal(t, 32, listsHeuristic(500))
	assert.Equal(t, 100, listsHeuristic(10_000))
	assert.Equal(t, 4096, listsHeuristic(1_000_000_000))
}

func TestListsHeuristicMonotonic(t *testing.T) {
	assert.LessOrEqual(t, listsHeuristic(10_000), listsHeuristic(40_000))
}
