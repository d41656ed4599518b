package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skydelay/cascade-engine/internal/models"
)

func TestAggregateAirportDaysPercentages(t *testing.T) {
	var records []models.FlightRecord
	for i := 0; i < 7; i++ {
		delay := 0.0
		if i < 2 {
			delay = 45
		}
		records = append(records, flight("ORD", "ATL", "AA", day(0), delay))
	}
	cancelled := flight("ORD", "DEN", "UA", day(0), 0)
	cancelled.Cancelled = true
	records = append(records, cancelled)

	rows := NewAggregator(nil, 0).AggregateAirportDays(classifyAll(records...))
	require.Len(t, rows, 1)
	row := rows[0]

	assert.Equal(t, 8, row.TotalDepartures)
	assert.Equal(t, 2, row.FlightsDelayed15)
	assert.Equal(t, 1, row.Cancellations)
	assert.Equal(t, 25.0, row.PctDelayed15.Float64)
	assert.Equal(t, 12.5, row.PctCancelled.Float64)
	assert.InDelta(t, 90.0/7, row.AvgDepDelay.Float64, 1e-9)
	assert.Equal(t, 2, row.RoutesServed)
	assert.Equal(t, 2, row.CarriersOperating)
	assert.Equal(t, row.Economics.PassengerCost+row.Economics.AirlineCost, row.Economics.TotalImpact)
}

func TestPctDelayedRoundedAndBounded(t *testing.T) {
	var records []models.FlightRecord
	for i := 0; i < 3; i++ {
		delay := 0.0
		if i == 0 {
			delay = 20
		}
		records = append(records, flight("ATL", "ORD", "DL", day(0), delay))
	}
	for i := 0; i < 4; i++ {
		records = append(records, flight("JFK", "ORD", "B6", day(0), 60))
	}

	rows := NewAggregator(nil, 0).AggregateAirportDays(classifyAll(records...))
	require.Len(t, rows, 2)
	for _, row := range rows {
		expected := round1(float64(row.FlightsDelayed15) / float64(row.TotalDepartures) * 100)
		assert.Equal(t, expected, row.PctDelayed15.Float64)
		assert.GreaterOrEqual(t, row.PctDelayed15.Float64, 0.0)
		assert.LessOrEqual(t, row.PctDelayed15.Float64, 100.0)
	}
	assert.Equal(t, "ATL", rows[0].Airport)
	assert.Equal(t, 33.3, rows[0].PctDelayed15.Float64)
	assert.Equal(t, 100.0, rows[1].PctDelayed15.Float64)
}

func TestAllCancelledDayHasUndefinedDelay(t *testing.T) {
	r := flight("ORD", "ATL", "AA", day(0), 0)
	r.Cancelled = true

	rows := NewAggregator(nil, 0).AggregateAirportDays(classifyAll(r))
	require.Len(t, rows, 1)
	assert.False(t, rows[0].AvgDepDelay.Valid)
	assert.Equal(t, 100.0, rows[0].PctCancelled.Float64)
	assert.Zero(t, rows[0].Economics.TotalImpact)
}

func TestCauseAverageIsOverPositiveOnly(t *testing.T) {
	weather := []float64{30, 0, 0, 60}
	var records []models.FlightRecord
	for _, w := range weather {
		r := flight("DEN", "SLC", "WN", day(0), 90)
		r.Causes = models.DelayCauses{Weather: w, Carrier: 90 - w}
		records = append(records, r)
	}

	rows := NewAggregator(nil, 0).AggregateAirportDays(classifyAll(records...))
	require.Len(t, rows, 1)
	stat := rows[0].Causes.Weather

	naive := (30.0 + 0 + 0 + 60) / 4
	assert.Equal(t, 2, stat.Count)
	assert.Equal(t, 45.0, stat.AvgDelay.Float64)
	assert.NotEqual(t, naive, stat.AvgDelay.Float64)
	assert.False(t, rows[0].Causes.Security.AvgDelay.Valid)
}

func TestAggregateRoutesMinimumSupport(t *testing.T) {
	var records []models.FlightRecord
	for i := 0; i < 30; i++ {
		records = append(records, flight("ORD", "LGA", "AA", day(i), 20))
	}
	for i := 0; i < 29; i++ {
		records = append(records, flight("ORD", "LGA", "UA", day(i), 20))
	}

	rows := NewAggregator(nil, 30).AggregateRoutes(classifyAll(records...))
	require.Len(t, rows, 1)
	assert.Equal(t, "ORD-LGA-AA", rows[0].RouteID)
	assert.Equal(t, 30, rows[0].TotalFlights)
	assert.Equal(t, 100.0, rows[0].PctDelayed.Float64)
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.TotalFlights, 30)
	}
}

func TestRouteDominantCauseTieBreak(t *testing.T) {
	var records []models.FlightRecord
	for i := 0; i < 30; i++ {
		r := flight("SFO", "SEA", "AS", day(i%5), 40)
		switch i % 3 {
		case 0:
			r.Causes = models.DelayCauses{NAS: 40}
		case 1:
			r.Causes = models.DelayCauses{LateAircraft: 40}
		default:
			r.Causes = models.DelayCauses{Carrier: 40}
		}
		records = append(records, r)
	}

	rows := NewAggregator(nil, 30).AggregateRoutes(classifyAll(records...))
	require.Len(t, rows, 1)
	assert.Equal(t, models.CauseLateAircraft, rows[0].DominantCause)

	onTime := make([]models.FlightRecord, 0, 30)
	for i := 0; i < 30; i++ {
		onTime = append(onTime, flight("SFO", "PDX", "AS", day(i), 0))
	}
	rows = NewAggregator(nil, 30).AggregateRoutes(classifyAll(onTime...))
	require.Len(t, rows, 1)
	assert.Equal(t, models.CauseOnTime, rows[0].DominantCause)
}
