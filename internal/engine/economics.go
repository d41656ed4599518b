package engine

import (
	"database/sql"
	"math"

	"github.com/skydelay/cascade-engine/internal/models"
)

// EconomicConfig holds the per-minute cost constants and aircraft sizing the model prices with.
type EconomicConfig struct {
	PassengerCostPerMinute float64
	AirlineCostPerMinute   float64
	LoadFactor             float64
	SeatsPerFlight         float64
}

// DefaultEconomicConfig returns the FAA/NEXTOR reference values.
func DefaultEconomicConfig() EconomicConfig {
	return EconomicConfig{
		PassengerCostPerMinute: 0.74,
		AirlineCostPerMinute:   68.48,
		LoadFactor:             0.87,
		SeatsPerFlight:         160,
	}
}

// EconomicModel converts delayed-flight counts and delay minutes into dollar estimates.
// It is granularity agnostic: airport-days, routes and simulations all price through Estimate.
type EconomicModel struct {
	cfg EconomicConfig
}

// NewEconomicModel constructs a model bound to cfg.
func NewEconomicModel(cfg EconomicConfig) *EconomicModel {
	return &EconomicModel{cfg: cfg}
}

// Estimate prices delayed flights averaging avgDelay minutes out of total flights.
func (m *EconomicModel) Estimate(delayed int, avgDelay float64, total int) models.EconomicEstimate {
	d := float64(delayed)
	passenger := d * m.cfg.SeatsPerFlight * m.cfg.LoadFactor * avgDelay * m.cfg.PassengerCostPerMinute
	airline := d * avgDelay * m.cfg.AirlineCostPerMinute

	est := models.EconomicEstimate{
		PassengerCost: passenger,
		AirlineCost:   airline,
		TotalImpact:   passenger + airline,
	}
	if total > 0 {
		est.CostPerFlight = sql.NullFloat64{Float64: est.TotalImpact / float64(total), Valid: true}
	}
	return est
}

// Passengers estimates the people on board the given number of flights.
func (m *EconomicModel) Passengers(flights int) int {
	return int(math.Round(float64(flights) * m.cfg.SeatsPerFlight * m.cfg.LoadFactor))
}
