package engine

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/skydelay/cascade-engine/internal/models"
)

// DefaultMinRouteFlights is the support a route needs before it is reported.
const DefaultMinRouteFlights = 30

// Aggregator groups classified flights into airport-day and route mart rows.
type Aggregator struct {
	economics       *EconomicModel
	minRouteFlights int
}

// NewAggregator constructs an Aggregator. A non-positive minRouteFlights falls back to the default.
func NewAggregator(economics *EconomicModel, minRouteFlights int) *Aggregator {
	if economics == nil {
		economics = NewEconomicModel(DefaultEconomicConfig())
	}
	if minRouteFlights <= 0 {
		minRouteFlights = DefaultMinRouteFlights
	}
	return &Aggregator{economics: economics, minRouteFlights: minRouteFlights}
}

type airportDayKey struct {
	airport string
	date    time.Time
}

type routeKey struct {
	origin  string
	dest    string
	carrier string
}

// flightGroup accumulates the counters shared by airport-day and route rows.
type flightGroup struct {
	total     int
	cancelled int
	delayed   int
	flown     int
	delaySum  float64
	causes    causeAccumulator
	dests     map[string]struct{}
	carriers  map[string]struct{}
}

func newFlightGroup() *flightGroup {
	return &flightGroup{
		dests:    make(map[string]struct{}),
		carriers: make(map[string]struct{}),
	}
}

func (g *flightGroup) add(f models.ClassifiedFlight) {
	g.total++
	g.dests[f.Dest] = struct{}{}
	g.carriers[f.Carrier] = struct{}{}
	if f.IsCancelled {
		g.cancelled++
		return
	}
	g.flown++
	g.delaySum += f.DepDelayMinutes
	if f.IsDelayed15 {
		g.delayed++
	}
	g.causes.add(f.Causes)
}

func (g *flightGroup) avgDelay() sql.NullFloat64 {
	if g.flown == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: g.delaySum / float64(g.flown), Valid: true}
}

// causeAccumulator sums only positive cause minutes, so averages are over positive records.
type causeAccumulator struct {
	sums   [numCauses]float64
	counts [numCauses]int
}

const (
	causeWeather = iota
	causeCarrier
	causeNAS
	causeSecurity
	causeLateAircraft
	numCauses
)

func (a *causeAccumulator) add(c models.DelayCauses) {
	for i, v := range [numCauses]float64{c.Weather, c.Carrier, c.NAS, c.Security, c.LateAircraft} {
		if v > 0 {
			a.sums[i] += v
			a.counts[i]++
		}
	}
}

func (a *causeAccumulator) stat(i int) models.CauseStat {
	if a.counts[i] == 0 {
		return models.CauseStat{}
	}
	return models.CauseStat{
		AvgDelay: sql.NullFloat64{Float64: a.sums[i] / float64(a.counts[i]), Valid: true},
		Count:    a.counts[i],
	}
}

func (a *causeAccumulator) breakdown() models.CauseBreakdown {
	return models.CauseBreakdown{
		Weather:      a.stat(causeWeather),
		Carrier:      a.stat(causeCarrier),
		NAS:          a.stat(causeNAS),
		Security:     a.stat(causeSecurity),
		LateAircraft: a.stat(causeLateAircraft),
	}
}

// groupCausePriority is the tie-break order for the dominant cause of a group.
var groupCausePriority = []struct {
	idx   int
	cause models.DelayCause
}{
	{causeWeather, models.CauseWeather},
	{causeLateAircraft, models.CauseLateAircraft},
	{causeNAS, models.CauseNAS},
	{causeCarrier, models.CauseCarrier},
	{causeSecurity, models.CauseSecurity},
}

// dominant returns the cause with the highest positive count. Earlier entries in
// groupCausePriority win ties; a group with no positive cause minutes is On Time.
func (a *causeAccumulator) dominant() models.DelayCause {
	best := models.CauseOnTime
	bestCount := 0
	for _, p := range groupCausePriority {
		if a.counts[p.idx] > bestCount {
			best = p.cause
			bestCount = a.counts[p.idx]
		}
	}
	return best
}

// AggregateAirportDays builds one row per (origin, date), sorted by airport then date.
// Rolling statistics are left undefined; see ApplyRollingWindows.
func (a *Aggregator) AggregateAirportDays(flights []models.ClassifiedFlight) []models.AirportDayMetric {
	groups := make(map[airportDayKey]*flightGroup)
	for _, f := range flights {
		key := airportDayKey{airport: f.Origin, date: f.FlightDate}
		g, ok := groups[key]
		if !ok {
			g = newFlightGroup()
			groups[key] = g
		}
		g.add(f)
	}

	rows := make([]models.AirportDayMetric, 0, len(groups))
	for key, g := range groups {
		if g.total == 0 {
			continue
		}
		avg := g.avgDelay()
		rows = append(rows, models.AirportDayMetric{
			Airport:           key.airport,
			FlightDate:        key.date,
			TotalDepartures:   g.total,
			AvgDepDelay:       avg,
			FlightsDelayed15:  g.delayed,
			PctDelayed15:      percent(g.delayed, g.total),
			Cancellations:     g.cancelled,
			PctCancelled:      percent(g.cancelled, g.total),
			Causes:            g.causes.breakdown(),
			DominantCause:     g.causes.dominant(),
			RoutesServed:      len(g.dests),
			CarriersOperating: len(g.carriers),
			Trend:             models.TrendInsufficient,
			Economics:         a.economics.Estimate(g.delayed, avg.Float64, g.total),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Airport != rows[j].Airport {
			return rows[i].Airport < rows[j].Airport
		}
		return rows[i].FlightDate.Before(rows[j].FlightDate)
	})
	return rows
}

// AggregateRoutes builds one row per (origin, dest, carrier) with enough support,
// sorted by route id.
func (a *Aggregator) AggregateRoutes(flights []models.ClassifiedFlight) []models.RouteMetric {
	groups := make(map[routeKey]*flightGroup)
	for _, f := range flights {
		key := routeKey{origin: f.Origin, dest: f.Dest, carrier: f.Carrier}
		g, ok := groups[key]
		if !ok {
			g = newFlightGroup()
			groups[key] = g
		}
		g.add(f)
	}

	rows := make([]models.RouteMetric, 0, len(groups))
	for key, g := range groups {
		if g.total < a.minRouteFlights {
			continue
		}
		avg := g.avgDelay()
		rows = append(rows, models.RouteMetric{
			RouteID:          RouteID(key.origin, key.dest, key.carrier),
			Origin:           key.origin,
			Dest:             key.dest,
			Carrier:          key.carrier,
			TotalFlights:     g.total,
			DelayedFlights:   g.delayed,
			CancelledFlights: g.cancelled,
			PctDelayed:       percent(g.delayed, g.total),
			PctCancelled:     percent(g.cancelled, g.total),
			AvgDepDelay:      avg,
			Causes:           g.causes.breakdown(),
			DominantCause:    g.causes.dominant(),
			Economics:        a.economics.Estimate(g.delayed, avg.Float64, g.total),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].RouteID < rows[j].RouteID })
	return rows
}

// RouteID formats the route key as ORIGIN-DEST-CARRIER.
func RouteID(origin, dest, carrier string) string {
	return fmt.Sprintf("%s-%s-%s", origin, dest, carrier)
}

// percent returns num/den as a percentage rounded to one decimal, undefined when den is zero.
func percent(num, den int) sql.NullFloat64 {
	if den == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: round1(float64(num) / float64(den) * 100), Valid: true}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
