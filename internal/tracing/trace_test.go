package tracing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceLifecycle(t *testing.T) {
	tr := NewTracer(10, time.Minute)

	tr.Start("corr-1")
	assert.Equal(t, 1, tr.ActiveCount())

	tr.RecordCall("corr-1", Call{Service: "management", Operation: "GET /vehicles", Status: "completed"})
	tr.Complete("corr-1", StatusCompleted)

	assert.Equal(t, 0, tr.ActiveCount())

	trace, ok := tr.Get("corr-1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, trace.Status)
	assert.Len(t, trace.ServiceCalls, 1)
}

func TestRecordCallOnUnknownTraceIsNoop(t *testing.T) {
	tr := NewTracer(10, time.Minute)
	tr.RecordCall("never-started", Call{Service: "management"})
	assert.Equal(t, 0, tr.ActiveCount())
}

func TestRingBufferEvictsBeyondCapacity(t *testing.T) {
	tr := NewTracer(2, time.Minute)

	for _, id := range []string{"a", "b", "c"} {
		tr.Start(id)
		tr.Complete(id, StatusCompleted)
	}

	recent := tr.Recent()
	assert.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
	assert.Equal(t, "c", recent[1].ID)
}

func TestRecentEvictsExpiredByRetention(t *testing.T) {
	tr := NewTracer(10, 10*time.Millisecond)

	tr.Start("old")
	tr.Complete("old", StatusCompleted)

	time.Sleep(20 * time.Millisecond)

	tr.Start("new")
	tr.Complete("new", StatusCompleted)

	recent := tr.Recent()
	assert.Len(t, recent, 1)
	assert.Equal(t, "new", recent[0].ID)
}
