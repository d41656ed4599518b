package engine

import (
	"errors"
	"math"

	"github.com/skydelay/cascade-engine/internal/models"
)

var (
	// ErrAirportNotFound is returned when no vulnerability profile exists for the airport.
	ErrAirportNotFound = errors.New("airport not found")
	// ErrInvalidDelay is returned for negative or non-finite delay minutes.
	ErrInvalidDelay = errors.New("delay minutes must be a non-negative number")
)

const maxDelayFactor = 3.0

// Simulator projects the downstream impact of a hypothetical delay. It is pure arithmetic.
type Simulator struct {
	economics *EconomicModel
}

// NewSimulator constructs a Simulator pricing through economics.
func NewSimulator(economics *EconomicModel) *Simulator {
	if economics == nil {
		economics = NewEconomicModel(DefaultEconomicConfig())
	}
	return &Simulator{economics: economics}
}

// Simulate projects a delay of delayMinutes at the airport described by profile.
func (s *Simulator) Simulate(profile models.CascadeVulnerabilityScore, delayMinutes float64) (models.CascadeSimulationResult, error) {
	if delayMinutes < 0 || math.IsNaN(delayMinutes) || math.IsInf(delayMinutes, 0) {
		return models.CascadeSimulationResult{}, ErrInvalidDelay
	}

	avgDaily := 0.0
	if profile.OperatingDays > 0 {
		avgDaily = float64(profile.TotalDepartures) / float64(profile.OperatingDays)
	}
	direct := int(math.Round(avgDaily * profile.AvgPctDelayed.Float64 / 100))

	connectivity := 1 + (float64(profile.MaxRoutesServed)/200)*0.5 + (float64(profile.MaxCarriers)/20)*0.3
	delayFactor := math.Min(delayMinutes/60, maxDelayFactor)
	multiplier := connectivity * delayFactor
	cascade := int(math.Round(float64(direct) * multiplier))

	affected := direct + cascade
	est := s.economics.Estimate(affected, delayMinutes, affected)

	return models.CascadeSimulationResult{
		Airport:                 profile.Airport,
		DelayMinutes:            delayMinutes,
		DirectlyAffectedFlights: direct,
		CascadeAffectedFlights:  cascade,
		TotalAffectedPassengers: s.economics.Passengers(affected),
		PassengerCost:           est.PassengerCost,
		AirlineCost:             est.AirlineCost,
		TotalEconomicImpact:     est.TotalImpact,
		ConnectivityFactor:      connectivity,
		DelayFactor:             delayFactor,
		CascadeMultiplier:       multiplier,
	}, nil
}
