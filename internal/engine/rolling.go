package engine

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"

	"github.com/skydelay/cascade-engine/internal/models"
)

const (
	// rollingWindowRows is the trailing window length: the current row plus six before it.
	rollingWindowRows = 7
	// DefaultTrendThreshold is the week-over-week change in minutes that flips the trend.
	DefaultTrendThreshold = 5.0
)

// RollingWindow derives trailing 7-row statistics per airport partition.
type RollingWindow struct {
	trendThreshold float64
	workers        int
}

// NewRollingWindow constructs a RollingWindow. Non-positive arguments fall back to defaults.
func NewRollingWindow(trendThreshold float64, workers int) *RollingWindow {
	if trendThreshold <= 0 {
		trendThreshold = DefaultTrendThreshold
	}
	if workers <= 0 {
		workers = 1
	}
	return &RollingWindow{trendThreshold: trendThreshold, workers: workers}
}

// Apply fills the rolling columns of rows in place. rows must be sorted by airport then date,
// as returned by AggregateAirportDays. Each airport partition is computed by its own goroutine
// and touches only its own sub-slice.
func (w *RollingWindow) Apply(ctx context.Context, rows []models.AirportDayMetric) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for _, part := range airportPartitions(rows) {
		part := part
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			w.applyPartition(rows[part.start:part.end])
			return nil
		})
	}
	return g.Wait()
}

func (w *RollingWindow) applyPartition(rows []models.AirportDayMetric) {
	for i := range rows {
		lo := i - (rollingWindowRows - 1)
		if lo < 0 {
			lo = 0
		}
		window := rows[lo : i+1]
		rows[i].Rolling7DayAvgDelay = meanDefined(window, func(r models.AirportDayMetric) sql.NullFloat64 { return r.AvgDepDelay })
		rows[i].Rolling7DayPctDelayed = meanDefined(window, func(r models.AirportDayMetric) sql.NullFloat64 { return r.PctDelayed15 })

		rows[i].WeekOverWeekChange = sql.NullFloat64{}
		if i >= rollingWindowRows {
			prev, cur := rows[i-rollingWindowRows].AvgDepDelay, rows[i].AvgDepDelay
			if prev.Valid && cur.Valid {
				rows[i].WeekOverWeekChange = sql.NullFloat64{Float64: cur.Float64 - prev.Float64, Valid: true}
			}
		}
		rows[i].Trend = w.classify(rows[i].WeekOverWeekChange)
	}
}

func (w *RollingWindow) classify(change sql.NullFloat64) models.Trend {
	switch {
	case !change.Valid:
		return models.TrendInsufficient
	case change.Float64 > w.trendThreshold:
		return models.TrendWorsening
	case change.Float64 < -w.trendThreshold:
		return models.TrendImproving
	default:
		return models.TrendStable
	}
}

func meanDefined(rows []models.AirportDayMetric, value func(models.AirportDayMetric) sql.NullFloat64) sql.NullFloat64 {
	sum, n := 0.0, 0
	for _, r := range rows {
		if v := value(r); v.Valid {
			sum += v.Float64
			n++
		}
	}
	if n == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: sum / float64(n), Valid: true}
}

type partition struct {
	airport    string
	start, end int
}

// airportPartitions splits rows sorted by airport into contiguous per-airport ranges.
func airportPartitions(rows []models.AirportDayMetric) []partition {
	var parts []partition
	for i := 0; i < len(rows); {
		j := i + 1
		for j < len(rows) && rows[j].Airport == rows[i].Airport {
			j++
		}
		parts = append(parts, partition{airport: rows[i].Airport, start: i, end: j})
		i = j
	}
	return parts
}
