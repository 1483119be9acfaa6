package planapply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanResultShareShape(t *testing.T) {
	counts := Counts{"inserted": 3, "skipped": 1}
	plan := Plan("ingest", counts, nil, nil)
	result := Result("ingest", counts, nil, nil)

	assert.Equal(t, KindPlan, plan.Kind)
	assert.Equal(t, KindResult, result.Kind)
	assert.Equal(t, plan.Op, result.Op)
	assert.Equal(t, plan.Counts, result.Counts)
}

func TestSummaryIsDeterministic(t *testing.T) {
	e := Result("chunk", Counts{"documents": 2, "chunks": 7}, []Failure{{Ref: "doc-1", Reason: "boom"}}, nil)

	first := Summary(e)
	second := Summary(e)

	assert.Equal(t, first, second)
	assert.Equal(t, "chunk result: chunks=7 documents=2 failures=1", first)
}

func TestSummaryNoFailures(t *testing.T) {
	e := Plan("gc", Counts{"orphan_chunks": 0}, nil, nil)
	assert.Equal(t, "gc plan: orphan_chunks=0", Summary(e))
}
