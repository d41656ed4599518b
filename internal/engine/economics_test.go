package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateReferenceConstants(t *testing.T) {
	m := NewEconomicModel(DefaultEconomicConfig())

	est := m.Estimate(10, 30, 40)
	assert.InDelta(t, 10*160*0.87*30*0.74, est.PassengerCost, 1e-9)
	assert.InDelta(t, 10*30*68.48, est.AirlineCost, 1e-9)
	assert.Equal(t, est.PassengerCost+est.AirlineCost, est.TotalImpact)
	assert.True(t, est.CostPerFlight.Valid)
	assert.InDelta(t, est.TotalImpact/40, est.CostPerFlight.Float64, 1e-9)
}

func TestEstimateZeroFlights(t *testing.T) {
	m := NewEconomicModel(DefaultEconomicConfig())

	est := m.Estimate(0, 0, 0)
	assert.Zero(t, est.TotalImpact)
	assert.False(t, est.CostPerFlight.Valid)
}

func TestEstimateUsesInjectedConfig(t *testing.T) {
	m := NewEconomicModel(EconomicConfig{PassengerCostPerMinute: 1, AirlineCostPerMinute: 2, LoadFactor: 0.5, SeatsPerFlight: 100})

	est := m.Estimate(2, 10, 4)
	assert.Equal(t, 1000.0, est.PassengerCost)
	assert.Equal(t, 40.0, est.AirlineCost)
	assert.Equal(t, 1040.0, est.TotalImpact)
	assert.Equal(t, 260.0, est.CostPerFlight.Float64)
}

func TestPassengers(t *testing.T) {
	m := NewEconomicModel(DefaultEconomicConfig())
	assert.Equal(t, 139, m.Passengers(1))
	assert.Equal(t, 1392, m.Passengers(10))
	assert.Equal(t, 0, m.Passengers(0))
}
