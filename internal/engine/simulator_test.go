package engine

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skydelay/cascade-engine/internal/models"
)

func exampleProfile() models.CascadeVulnerabilityScore {
	return models.CascadeVulnerabilityScore{
		Airport:         "ORD",
		OperatingDays:   20,
		TotalDepartures: 600,
		AvgPctDelayed:   sql.NullFloat64{Float64: 20, Valid: true},
		MaxRoutesServed: 150,
		MaxCarriers:     10,
	}
}

func TestSimulateWorkedExample(t *testing.T) {
	sim := NewSimulator(nil)

	res, err := sim.Simulate(exampleProfile(), 90)
	require.NoError(t, err)

	assert.Equal(t, 6, res.DirectlyAffectedFlights)
	assert.InDelta(t, 1.525, res.ConnectivityFactor, 1e-9)
	assert.InDelta(t, 1.5, res.DelayFactor, 1e-9)
	assert.InDelta(t, 2.2875, res.CascadeMultiplier, 1e-9)
	assert.Equal(t, 14, res.CascadeAffectedFlights)
	assert.Equal(t, 2784, res.TotalAffectedPassengers)

	assert.InDelta(t, 20*160*0.87*90*0.74, res.PassengerCost, 1e-6)
	assert.InDelta(t, 20*90*68.48, res.AirlineCost, 1e-6)
	assert.Equal(t, res.PassengerCost+res.AirlineCost, res.TotalEconomicImpact)
}

func TestSimulateMonotonicUpToCap(t *testing.T) {
	sim := NewSimulator(nil)
	profile := exampleProfile()

	prevFlights, prevImpact := -1, -1.0
	for m := 0.0; m <= 240; m += 5 {
		res, err := sim.Simulate(profile, m)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.CascadeAffectedFlights, prevFlights, "M=%v", m)
		assert.GreaterOrEqual(t, res.TotalEconomicImpact, prevImpact, "M=%v", m)
		prevFlights, prevImpact = res.CascadeAffectedFlights, res.TotalEconomicImpact
	}

	at180, _ := sim.Simulate(profile, 180)
	at240, _ := sim.Simulate(profile, 240)
	assert.Equal(t, 3.0, at240.DelayFactor)
	assert.Equal(t, at180.CascadeAffectedFlights, at240.CascadeAffectedFlights)
}

func TestSimulateDeterministic(t *testing.T) {
	sim := NewSimulator(nil)
	a, err := sim.Simulate(exampleProfile(), 75)
	require.NoError(t, err)
	b, err := sim.Simulate(exampleProfile(), 75)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSimulateRejectsNegativeDelay(t *testing.T) {
	_, err := NewSimulator(nil).Simulate(exampleProfile(), -1)
	assert.ErrorIs(t, err, ErrInvalidDelay)
}

func TestSimulateZeroDelayAndNoHistory(t *testing.T) {
	sim := NewSimulator(nil)

	res, err := sim.Simulate(exampleProfile(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.CascadeAffectedFlights)
	assert.Zero(t, res.TotalEconomicImpact)

	res, err = sim.Simulate(models.CascadeVulnerabilityScore{Airport: "NEW"}, 60)
	require.NoError(t, err)
	assert.Equal(t, 0, res.DirectlyAffectedFlights)
}
