package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordStoreOperation(t *testing.T) {
	before := testutil.ToFloat64(storeOperationsTotal.WithLabelValues("bonuses", "find", "error"))

	RecordStoreOperation("bonuses", "find", errors.New("boom"), time.Millisecond)

	after := testutil.ToFloat64(storeOperationsTotal.WithLabelValues("bonuses", "find", "error"))
	assert.Equal(t, before+1, after)
}

func TestSetStoreMode(t *testing.T) {
	SetStoreMode("mongo")
	SetStoreMode("memory")

	assert.Equal(t, float64(1), testutil.ToFloat64(storeMode.WithLabelValues("memory")))
	assert.Equal(t, 1, testutil.CollectAndCount(storeMode))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "2xx", statusLabel(200))
	assert.Equal(t, "3xx", statusLabel(302))
	assert.Equal(t, "4xx", statusLabel(404))
	assert.Equal(t, "5xx", statusLabel(503))
}
