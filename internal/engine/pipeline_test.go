package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skydelay/cascade-engine/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// batch builds ten days of traffic across three airports, with enough ORD-ATL flights
// to clear the route threshold and inbound delays that cascade at ORD.
func batch() []models.FlightRecord {
	var records []models.FlightRecord
	for d := 0; d < 10; d++ {
		for i := 0; i < 4; i++ {
			r := flight("ORD", "ATL", "AA", day(d), float64(d*5+i*10))
			r.ScheduledDeparture = clock(600 + i*60)
			r.Causes = models.DelayCauses{LateAircraft: float64(i * 10), Weather: float64(d % 3 * 5)}
			records = append(records, r)
		}
		in := flight("DEN", "ORD", "AA", day(d), 40)
		in.ScheduledArrival = clock(560)
		in.ArrDelayMinutes = 40 + float64(d)
		records = append(records, in)

		other := flight("ATL", "DEN", "DL", day(d), float64(d))
		if d == 4 {
			other.Cancelled = true
		}
		records = append(records, other)
	}
	bad := flight("ORD", "ATL", "AA", day(0), 0)
	bad.ScheduledDeparture, bad.ScheduledArrival = nil, nil
	return append(records, bad)
}

func TestPipelineRun(t *testing.T) {
	p := NewPipeline(quietLogger(), DefaultOptions())

	snap, err := p.Run(context.Background(), batch())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.RunID)
	assert.Equal(t, 1, snap.Dropped)
	assert.Len(t, snap.AirportDays, 30)
	require.Len(t, snap.Routes, 1)
	assert.Equal(t, "ORD-ATL-AA", snap.Routes[0].RouteID)
	assert.Equal(t, 40, snap.Routes[0].TotalFlights)
	require.Len(t, snap.Vulnerability, 3)

	for _, row := range snap.AirportDays {
		assert.Positive(t, row.TotalDepartures)
		assert.Equal(t, row.Economics.PassengerCost+row.Economics.AirlineCost, row.Economics.TotalImpact)
	}
	for i, v := range snap.Vulnerability {
		assert.Equal(t, i+1, v.VulnerabilityRank)
	}

	var ord models.CascadeStats
	for _, c := range snap.Cascades {
		if c.Airport == "ORD" {
			ord = c
		}
	}
	assert.Equal(t, 10, ord.Level(0).AffectedFlights)

	ordDays := 0
	for _, c := range snap.CascadeDays {
		if c.Airport == "ORD" {
			ordDays++
			assert.Equal(t, 1, c.Level(0).AffectedFlights)
		}
	}
	assert.Equal(t, 10, ordDays)
	assert.Positive(t, ord.Level(1).AffectedFlights)
}

func TestPipelineIdempotent(t *testing.T) {
	p := NewPipeline(quietLogger(), DefaultOptions())

	first, err := p.Run(context.Background(), batch())
	require.NoError(t, err)
	second, err := p.Run(context.Background(), batch())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.AirportDays, second.AirportDays)
	assert.Equal(t, first.Routes, second.Routes)
	assert.Equal(t, first.Vulnerability, second.Vulnerability)
	assert.Equal(t, first.Cascades, second.Cascades)
	assert.Equal(t, first.CascadeDays, second.CascadeDays)
}

func TestPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := NewPipeline(quietLogger(), DefaultOptions()).Run(ctx, batch())
	assert.Error(t, err)
	assert.Nil(t, snap)
}
