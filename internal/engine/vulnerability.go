package engine

import (
	"database/sql"
	"sort"

	"github.com/skydelay/cascade-engine/internal/models"
)

// ScoringWeights are the named coefficients of the composite vulnerability score.
type ScoringWeights struct {
	DelayRate          float64
	CancellationRate   float64
	Connectivity       float64
	CascadePropagation float64
}

// DefaultScoringWeights favours the delay rate, then connectivity.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		DelayRate:          0.45,
		CancellationRate:   0.15,
		Connectivity:       0.25,
		CascadePropagation: 0.15,
	}
}

// Scorer ranks airports by how exposed they are to delay cascades.
type Scorer struct {
	weights ScoringWeights
}

// NewScorer constructs a Scorer with the given weights.
func NewScorer(weights ScoringWeights) *Scorer {
	return &Scorer{weights: weights}
}

type airportAccumulator struct {
	score models.CascadeVulnerabilityScore

	delay, pctDelayed, pctCancelled, lateAircraft meanAccumulator
}

type meanAccumulator struct {
	sum float64
	n   int
}

func (m *meanAccumulator) add(v sql.NullFloat64) {
	if v.Valid {
		m.sum += v.Float64
		m.n++
	}
}

func (m meanAccumulator) value() sql.NullFloat64 {
	if m.n == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: m.sum / float64(m.n), Valid: true}
}

// Score aggregates airport-day rows into one ranked row per airport. cascades may be nil,
// in which case every propagation rate is zero.
func (s *Scorer) Score(days []models.AirportDayMetric, cascades []models.CascadeStats) []models.CascadeVulnerabilityScore {
	accs := make(map[string]*airportAccumulator)
	for _, d := range days {
		acc, ok := accs[d.Airport]
		if !ok {
			acc = &airportAccumulator{score: models.CascadeVulnerabilityScore{Airport: d.Airport}}
			accs[d.Airport] = acc
		}
		acc.score.OperatingDays++
		acc.score.TotalDepartures += d.TotalDepartures
		acc.delay.add(d.AvgDepDelay)
		acc.pctDelayed.add(d.PctDelayed15)
		acc.pctCancelled.add(d.PctCancelled)
		acc.lateAircraft.add(d.Causes.LateAircraft.AvgDelay)
		if d.RoutesServed > acc.score.MaxRoutesServed {
			acc.score.MaxRoutesServed = d.RoutesServed
		}
		if d.CarriersOperating > acc.score.MaxCarriers {
			acc.score.MaxCarriers = d.CarriersOperating
		}
		acc.score.TotalEconomicImpact += d.Economics.TotalImpact
	}

	propagation := make(map[string]float64, len(cascades))
	for _, c := range cascades {
		propagation[c.Airport] = propagationRate(c)
	}

	maxConnectivity := 0
	for _, acc := range accs {
		if c := acc.score.MaxRoutesServed * acc.score.MaxCarriers; c > maxConnectivity {
			maxConnectivity = c
		}
	}

	out := make([]models.CascadeVulnerabilityScore, 0, len(accs))
	for _, acc := range accs {
		row := acc.score
		row.AvgDelay = acc.delay.value()
		row.AvgPctDelayed = acc.pctDelayed.value()
		row.AvgPctCancelled = acc.pctCancelled.value()
		row.AvgLateAircraftDelay = acc.lateAircraft.value()
		row.AvgDailyEconomicImpact = row.TotalEconomicImpact / float64(row.OperatingDays)
		row.CascadePropagationRate = propagation[row.Airport]

		connectivity := 0.0
		if maxConnectivity > 0 {
			connectivity = float64(row.MaxRoutesServed*row.MaxCarriers) / float64(maxConnectivity)
		}
		row.CascadeVulnerabilityScore = 100 * (s.weights.DelayRate*row.AvgPctDelayed.Float64/100 +
			s.weights.CancellationRate*row.AvgPctCancelled.Float64/100 +
			s.weights.Connectivity*connectivity +
			s.weights.CascadePropagation*row.CascadePropagationRate)
		out = append(out, row)
	}

	Rank(out)
	return out
}

// Rank sorts rows by score descending, then total impact descending, then airport,
// and assigns 1-based ranks.
func Rank(rows []models.CascadeVulnerabilityScore) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.CascadeVulnerabilityScore != b.CascadeVulnerabilityScore {
			return a.CascadeVulnerabilityScore > b.CascadeVulnerabilityScore
		}
		if a.TotalEconomicImpact != b.TotalEconomicImpact {
			return a.TotalEconomicImpact > b.TotalEconomicImpact
		}
		return a.Airport < b.Airport
	})
	for i := range rows {
		rows[i].VulnerabilityRank = i + 1
	}
}

// propagationRate is the share of level-0 arrivals that reached level 1, capped at 1.
func propagationRate(c models.CascadeStats) float64 {
	l0 := c.Level(0).AffectedFlights
	if l0 == 0 {
		return 0
	}
	rate := float64(c.Level(1).AffectedFlights) / float64(l0)
	if rate > 1 {
		return 1
	}
	return rate
}
