package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordDBOperation(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordDBOperation("insertQualifiedLead", "success", 0.004)
		RecordDBOperation("insertQualifiedLead", "error", 1.5)
	})
}

func TestMeasureDuration(t *testing.T) {
	start := time.Now().Add(-50 * time.Millisecond)
	assert.GreaterOrEqual(t, MeasureDuration(start), 0.05)
}

func TestRecordInfrastructureMetrics_Stops(t *testing.T) {
	stop := make(chan struct{})
	RecordInfrastructureMetrics(stop)
	close(stop)
}
