package engine

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skydelay/cascade-engine/internal/models"
)

// CascadeConfig bounds which inbound arrivals start a cascade and which departures it reaches.
type CascadeConfig struct {
	ArrivalDelayThreshold float64
	TurnaroundMinMinutes  int
	TurnaroundMaxMinutes  int
	MaxDestinations       int
}

// DefaultCascadeConfig returns the 30 minute trigger and the 20 to 180 minute turnaround window.
func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{
		ArrivalDelayThreshold: 30,
		TurnaroundMinMinutes:  20,
		TurnaroundMaxMinutes:  180,
		MaxDestinations:       20,
	}
}

// CascadeDetector links delayed inbound arrivals to the same-carrier departures they disrupt.
// Matching is by carrier, not tail number, and stops at two levels.
type CascadeDetector struct {
	cfg       CascadeConfig
	economics *EconomicModel
}

// NewCascadeDetector constructs a detector.
func NewCascadeDetector(cfg CascadeConfig, economics *EconomicModel) *CascadeDetector {
	if economics == nil {
		economics = NewEconomicModel(DefaultEconomicConfig())
	}
	if cfg.MaxDestinations <= 0 {
		cfg.MaxDestinations = DefaultCascadeConfig().MaxDestinations
	}
	return &CascadeDetector{cfg: cfg, economics: economics}
}

type carrierDay struct {
	carrier string
	date    time.Time
}

// airportFlights holds the flights touching one airport, split by direction.
type airportFlights struct {
	inbound  []models.ClassifiedFlight
	outbound []models.ClassifiedFlight
}

func indexByAirport(flights []models.ClassifiedFlight) map[string]*airportFlights {
	idx := make(map[string]*airportFlights)
	get := func(code string) *airportFlights {
		a, ok := idx[code]
		if !ok {
			a = &airportFlights{}
			idx[code] = a
		}
		return a
	}
	for _, f := range flights {
		get(f.Dest).inbound = append(get(f.Dest).inbound, f)
		get(f.Origin).outbound = append(get(f.Origin).outbound, f)
	}
	return idx
}

type airportDay struct {
	airport string
	date    time.Time
}

func indexByAirportDay(flights []models.ClassifiedFlight) map[airportDay]*airportFlights {
	idx := make(map[airportDay]*airportFlights)
	get := func(key airportDay) *airportFlights {
		a, ok := idx[key]
		if !ok {
			a = &airportFlights{}
			idx[key] = a
		}
		return a
	}
	for _, f := range flights {
		in := get(airportDay{airport: f.Dest, date: f.FlightDate})
		in.inbound = append(in.inbound, f)
		out := get(airportDay{airport: f.Origin, date: f.FlightDate})
		out.outbound = append(out.outbound, f)
	}
	return idx
}

// Detect computes cascade statistics for a single airport.
func (d *CascadeDetector) Detect(flights []models.ClassifiedFlight, airport string) models.CascadeStats {
	a, ok := indexByAirport(flights)[airport]
	if !ok {
		return d.emptyStats(airport)
	}
	return d.detect(airport, a)
}

// DetectAll computes cascade statistics for every airport in the batch, sorted by airport code.
func (d *CascadeDetector) DetectAll(ctx context.Context, flights []models.ClassifiedFlight, workers int) ([]models.CascadeStats, error) {
	idx := indexByAirport(flights)
	airports := make([]string, 0, len(idx))
	for code := range idx {
		airports = append(airports, code)
	}
	sort.Strings(airports)

	if workers <= 0 {
		workers = 1
	}
	out := make([]models.CascadeStats, len(airports))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, code := range airports {
		i, code := i, code
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = d.detect(code, idx[code])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DetectDays computes cascade statistics for every airport and flight date in the batch,
// sorted by airport then date.
func (d *CascadeDetector) DetectDays(ctx context.Context, flights []models.ClassifiedFlight, workers int) ([]models.CascadeStats, error) {
	idx := indexByAirportDay(flights)
	keys := make([]airportDay, 0, len(idx))
	for key := range idx {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].airport != keys[j].airport {
			return keys[i].airport < keys[j].airport
		}
		return keys[i].date.Before(keys[j].date)
	})

	if workers <= 0 {
		workers = 1
	}
	out := make([]models.CascadeStats, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats := d.detect(key.airport, idx[key])
			stats.FlightDate = key.date
			out[i] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *CascadeDetector) emptyStats(airport string) models.CascadeStats {
	return models.CascadeStats{
		Airport: airport,
		Levels:  []models.CascadeLevel{{Level: 0}, {Level: 1}},
	}
}

type destAccumulator struct {
	flights     int
	outboundSum float64
	inboundSum  float64
	pairs       int
}

func (d *CascadeDetector) detect(airport string, a *airportFlights) models.CascadeStats {
	var level0 []models.ClassifiedFlight
	for _, f := range a.inbound {
		if !f.IsCancelled && f.ArrDelayMinutes >= d.cfg.ArrivalDelayThreshold {
			level0 = append(level0, f)
		}
	}

	candidates := make(map[carrierDay][]int)
	for i, f := range a.outbound {
		if f.IsCancelled || !f.IsDelayed15 || f.ScheduledDeparture == nil {
			continue
		}
		key := carrierDay{carrier: f.Carrier, date: f.FlightDate}
		candidates[key] = append(candidates[key], i)
	}

	matched := make(map[int]struct{})
	dests := make(map[string]*destAccumulator)
	for _, in := range level0 {
		if in.ScheduledArrival == nil {
			continue
		}
		arr := *in.ScheduledArrival
		for _, oi := range candidates[carrierDay{carrier: in.Carrier, date: in.FlightDate}] {
			out := a.outbound[oi]
			gap := *out.ScheduledDeparture - arr
			if gap <= 0 || gap < d.cfg.TurnaroundMinMinutes || gap > d.cfg.TurnaroundMaxMinutes {
				continue
			}
			acc, ok := dests[out.Dest]
			if !ok {
				acc = &destAccumulator{}
				dests[out.Dest] = acc
			}
			acc.inboundSum += in.ArrDelayMinutes
			acc.pairs++
			if _, seen := matched[oi]; !seen {
				matched[oi] = struct{}{}
				acc.flights++
				acc.outboundSum += out.DepDelayMinutes
			}
		}
	}

	order := make([]int, 0, len(matched))
	for oi := range matched {
		order = append(order, oi)
	}
	sort.Ints(order)
	level1 := make([]models.ClassifiedFlight, 0, len(order))
	for _, oi := range order {
		level1 = append(level1, a.outbound[oi])
	}

	l0 := d.level(0, level0, func(f models.ClassifiedFlight) float64 { return f.ArrDelayMinutes })
	if l0.AffectedFlights > 0 {
		l0.AffectedDestinations = 1
	}
	l1 := d.level(1, level1, func(f models.ClassifiedFlight) float64 { return f.DepDelayMinutes })
	l1.AffectedDestinations = len(dests)

	return models.CascadeStats{
		Airport:                  airport,
		Levels:                   []models.CascadeLevel{l0, l1},
		TotalAffectedFlights:     l0.AffectedFlights + l1.AffectedFlights,
		TotalEstimatedPassengers: l0.EstimatedPassengers + l1.EstimatedPassengers,
		Destinations:             d.destinations(dests),
	}
}

func (d *CascadeDetector) level(n int, flights []models.ClassifiedFlight, delay func(models.ClassifiedFlight) float64) models.CascadeLevel {
	lvl := models.CascadeLevel{Level: n, AffectedFlights: len(flights)}
	if len(flights) == 0 {
		return lvl
	}
	sum, lo, hi := 0.0, math.Inf(1), math.Inf(-1)
	for _, f := range flights {
		v := delay(f)
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	lvl.AvgDelay = sum / float64(len(flights))
	lvl.MinDelay = lo
	lvl.MaxDelay = hi
	lvl.EstimatedPassengers = d.economics.Passengers(len(flights))
	return lvl
}

func (d *CascadeDetector) destinations(dests map[string]*destAccumulator) []models.CascadeDestination {
	out := make([]models.CascadeDestination, 0, len(dests))
	for code, acc := range dests {
		out = append(out, models.CascadeDestination{
			Dest:             code,
			AffectedFlights:  acc.flights,
			AvgOutboundDelay: acc.outboundSum / float64(acc.flights),
			AvgInboundDelay:  acc.inboundSum / float64(acc.pairs),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AffectedFlights != out[j].AffectedFlights {
			return out[i].AffectedFlights > out[j].AffectedFlights
		}
		return out[i].Dest < out[j].Dest
	})
	if len(out) > d.cfg.MaxDestinations {
		out = out[:d.cfg.MaxDestinations]
	}
	return out
}
