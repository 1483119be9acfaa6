package retrieve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func hit(docID, chunkIndex int64, score float64) Hit {
	return Hit{DocID: docID, ChunkIndex: int(chunkIndex), Score: score}
}

func TestPostFilterCapsChunksPerDocument(t *testing.T) {
	raw := []Hit{
		hit(1, 0, 0.1), hit(1, 1, 0.2), hit(1, 2, 0.3),
		hit(2, 0, 0.15),
	}
	out := postFilter(raw, 2, 10)

	var doc1 int
	for _, h := range out {
		if h.DocID == 1 {
			doc1++
		}
	}
	assert.Equal(t, 2, doc1)
}

func TestPostFilterTrimsToTopNDocuments(t *testing.T) {
	raw := []Hit{
		hit(1, 0, 0.1),
		hit(2, 0, 0.2),
		hit(3, 0, 0.3),
	}
	out := postFilter(raw, 5, 2)

	docs := map[int64]bool{}
	for _, h := range out {
		docs[h.DocID] = true
	}
	assert.Len(t, docs, 2)
	assert.True(t, docs[1] && docs[2])
	assert.False(t, docs[3])
}

func TestPostFilterOrdersDocumentsByBestScore(t *testing.T) {
	raw := []Hit{
		hit(2, 0, 0.05),
		hit(1, 0, 0.9),
	}
	out := postFilter(raw, 1, 10)
	assert.Equal(t, int64(2), out[0].DocID)
	assert.Equal(t, int64(1), out[1].DocID)
}

func TestPostFilterTieBreaksByAscendingDocID(t *testing.T) {
	raw := []Hit{
		hit(5, 0, 0.5),
		hit(3, 0, 0.5),
	}
	out := postFilter(raw, 1, 10)
	assert.Equal(t, int64(3), out[0].DocID)
	assert.Equal(t, int64(5), out[1].DocID)
}

func TestPostFilterZeroDocCapKeepsAllChunks(t *testing.T) {
	raw := []Hit{hit(1, 0, 0.1), hit(1, 1, 0.2), hit(1, 2, 0.3)}
	out := postFilter(raw, 0, 10)
	assert.Len(t, out, 3)
}

func TestListsHeuristicClampsToRange(t *testing.T) {
	assert.Equal(t, 32, listsHeuristic(0))
	assert.Equal(t, 32, listsHeuristic(100))
	assert.Equal(t, 100, listsHeuristic(10000))
	assert.Equal(t, 4096, listsHeuristic(100_000_000))
}

func TestProbesHeuristicFloorsAtOne(t *testing.T) {
	assert.Equal(t, 1, probesHeuristic(5))
	assert.Equal(t, 3, probesHeuristic(32))
	assert.Equal(t, 10, probesHeuristic(100))
}
