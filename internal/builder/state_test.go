package builder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "created"},
		{StateStoreReady, "store_ready"},
		{StateCatalogFetched, "catalog_fetched"},
		{StateCrossMatching, "cross_matching"},
		{StateIndexed, "indexed"},
		{StateCompacted, "compacted"},
		{StateDone, "done"},
		{StateFailed, "failed"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestState_NextFollowsHappyPath(t *testing.T) {
	s := StateCreated
	var path []State
	for !s.Terminal() {
		s = s.next()
		path = append(path, s)
	}
	assert.Equal(t, []State{
		StateStoreReady, StateCatalogFetched, StateCrossMatching,
		StateIndexed, StateCompacted, StateDone,
	}, path)
}

func TestStepError(t *testing.T) {
	inner := errors.New("disk full")
	err := error(&StepError{Step: StateIndexed, Err: inner})

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "indexed")

	step, ok := FailedStep(err)
	assert.True(t, ok)
	assert.Equal(t, StateIndexed, step)

	_, ok = FailedStep(inner)
	assert.False(t, ok)
}

func TestSummary_SuccessRate(t *testing.T) {
	assert.Zero(t, (&Summary{}).SuccessRate())
	assert.InDelta(t, 25.0, (&Summary{Total: 4, Matched: 1}).SuccessRate(), 1e-9)
	assert.InDelta(t, 1.0, (&Summary{FileSizeBytes: 1 << 20}).FileSizeMB(), 1e-9)
}
