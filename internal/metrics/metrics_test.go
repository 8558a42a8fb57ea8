package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordNLOPIncrementsCounterAndObservesDuration(t *testing.T) {
	m := New()
	m.RecordNLOP("plan", 50*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "mentals_executor_nlop_total")
	assert.Contains(t, body, `instruction="plan"`)
}

func TestIncChunkWriteFailureIsExposed(t *testing.T) {
	m := New()
	m.IncChunkWriteFailure()
	m.IncChunkWriteFailure()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Contains(t, rec.Body.String(), "mentals_memory_chunk_write_failures_total 2")
}

func TestRecordStageDurationLabelsByStage(t *testing.T) {
	m := New()
	m.RecordStageDuration("FileReaderToStringBuffer", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Contains(t, rec.Body.String(), `stage="FileReaderToStringBuffer"`)
}
