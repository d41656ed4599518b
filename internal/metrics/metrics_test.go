package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	assert.NoError(t, Register(reg), "second register should be tolerated")
}

func TestObservePipelineRunNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues(OutcomeSuccess))
	ObservePipelineRun(-time.Second, "weird")
	after := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues(OutcomeSuccess))
	assert.Equal(t, 1.0, after-before, "unknown outcome counts as success")
}

func TestDroppedAndPublished(t *testing.T) {
	before := testutil.ToFloat64(droppedRecordsTotal)
	AddDroppedRecords(3)
	AddDroppedRecords(0)
	assert.Equal(t, 3.0, testutil.ToFloat64(droppedRecordsTotal)-before)

	SetPublishedRows("route_economics", 42)
	assert.Equal(t, 42.0, testutil.ToFloat64(publishedRows.WithLabelValues("route_economics")))
}

func TestObserveSimulation(t *testing.T) {
	before := testutil.ToFloat64(simulationsTotal.WithLabelValues(OutcomeNotFound))
	ObserveSimulation(OutcomeNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(simulationsTotal.WithLabelValues(OutcomeNotFound))-before)
}
