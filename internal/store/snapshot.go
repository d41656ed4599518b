package store

import (
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/skydelay/cascade-engine/internal/engine"
	"github.com/skydelay/cascade-engine/internal/models"
	"github.com/skydelay/cascade-engine/internal/utils"
)

// ErrNoSnapshot signals that no pipeline run has been published yet.
var ErrNoSnapshot = errors.New("no snapshot published")

const (
	// DefaultRouteLimit applies when a costliest-routes query does not ask for a size.
	DefaultRouteLimit = 20
	// DefaultVulnerabilityLimit applies when a vulnerability ranking does not ask for a size.
	DefaultVulnerabilityLimit = 15
	// MaxLimit bounds ranked queries.
	MaxLimit = 50
)

const (
	StatusHealthy  = "healthy"
	StatusEmpty    = "empty"
	StatusDegraded = "degraded"
)

// Store holds the current snapshot. Readers always see one complete run; Publish replaces
// it in a single atomic swap.
type Store struct {
	current atomic.Pointer[models.Snapshot]
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Publish makes snap the current snapshot.
func (s *Store) Publish(snap *models.Snapshot) error {
	if snap == nil {
		return errors.New("publish nil snapshot")
	}
	s.current.Store(snap)
	return nil
}

// Current returns the published snapshot.
func (s *Store) Current() (*models.Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// ClampLimit bounds a requested row count to [1, MaxLimit], using def when none was requested.
func ClampLimit(n, def int) int {
	switch {
	case n <= 0:
		return def
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

func normaliseAirport(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AirportDays returns airport-day rows matching q, ordered by airport then date.
// A non-positive limit returns every match.
func (s *Store) AirportDays(q models.MartQuery) ([]models.AirportDayMetric, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	airport := normaliseAirport(q.Airport)

	var out []models.AirportDayMetric
	for _, row := range snap.AirportDays {
		if airport != "" && row.Airport != airport {
			continue
		}
		if !q.Dates.Contains(row.FlightDate) || row.TotalDepartures < q.MinFlights {
			continue
		}
		if q.Cause != "" && row.DominantCause != q.Cause {
			continue
		}
		out = append(out, row)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// LatestDate returns the most recent flight date for airport, or across all airports when empty.
func (s *Store) LatestDate(airport string) (time.Time, error) {
	snap, err := s.Current()
	if err != nil {
		return time.Time{}, err
	}
	airport = normaliseAirport(airport)

	var latest time.Time
	for _, row := range snap.AirportDays {
		if airport != "" && row.Airport != airport {
			continue
		}
		if row.FlightDate.After(latest) {
			latest = row.FlightDate
		}
	}
	if latest.IsZero() {
		return time.Time{}, engine.ErrAirportNotFound
	}
	return latest, nil
}

// Routes returns the costliest routes matching q, by total impact descending.
// q.Airport matches either end of the route; the limit is clamped.
func (s *Store) Routes(q models.MartQuery) ([]models.RouteMetric, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	airport := normaliseAirport(q.Airport)

	var out []models.RouteMetric
	for _, row := range snap.Routes {
		if airport != "" && row.Origin != airport && row.Dest != airport {
			continue
		}
		if row.TotalFlights < q.MinFlights {
			continue
		}
		if q.Cause != "" && row.DominantCause != q.Cause {
			continue
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Economics.TotalImpact != out[j].Economics.TotalImpact {
			return out[i].Economics.TotalImpact > out[j].Economics.TotalImpact
		}
		return out[i].RouteID < out[j].RouteID
	})
	if limit := ClampLimit(q.Limit, DefaultRouteLimit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Vulnerability returns ranked airports matching q in rank order; the limit is clamped.
func (s *Store) Vulnerability(q models.MartQuery) ([]models.CascadeVulnerabilityScore, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	airport := normaliseAirport(q.Airport)

	limit := ClampLimit(q.Limit, DefaultVulnerabilityLimit)
	var out []models.CascadeVulnerabilityScore
	for _, row := range snap.Vulnerability {
		if airport != "" && row.Airport != airport {
			continue
		}
		if row.TotalDepartures < q.MinFlights {
			continue
		}
		out = append(out, row)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Profile returns the vulnerability row for one airport.
func (s *Store) Profile(airport string) (models.CascadeVulnerabilityScore, error) {
	snap, err := s.Current()
	if err != nil {
		return models.CascadeVulnerabilityScore{}, err
	}
	airport = normaliseAirport(airport)
	for _, row := range snap.Vulnerability {
		if row.Airport == airport {
			return row, nil
		}
	}
	return models.CascadeVulnerabilityScore{}, engine.ErrAirportNotFound
}

// Cascade returns the cascade statistics for one airport on one flight date. A zero date
// selects the latest date on record for the airport.
func (s *Store) Cascade(airport string, date time.Time) (models.CascadeStats, error) {
	snap, err := s.Current()
	if err != nil {
		return models.CascadeStats{}, err
	}
	airport = normaliseAirport(airport)
	days := snap.CascadeDays
	i := sort.Search(len(days), func(i int) bool { return days[i].Airport >= airport })

	var (
		found models.CascadeStats
		ok    bool
	)
	for ; i < len(days) && days[i].Airport == airport; i++ {
		if date.IsZero() || days[i].FlightDate.Equal(date) {
			found, ok = days[i], true
		}
	}
	if !ok {
		return models.CascadeStats{}, engine.ErrAirportNotFound
	}
	return found, nil
}

// Health reports row counts and freshness for each published table.
func (s *Store) Health() (models.PipelineHealth, error) {
	snap, err := s.Current()
	if err != nil {
		return models.PipelineHealth{}, err
	}

	var latest string
	for _, row := range snap.AirportDays {
		if d := row.FlightDate.Format(utils.FlightDateLayout); d > latest {
			latest = d
		}
	}

	health := models.PipelineHealth{
		RunID:          snap.RunID,
		GeneratedAt:    snap.GeneratedAt,
		DroppedRecords: snap.Dropped,
	}
	counts := snap.RowCounts()
	for _, table := range []string{models.TableAirportDays, models.TableRoutes, models.TableVulnerability} {
		th := models.TableHealth{Table: table, RowCount: counts[table], Status: StatusEmpty}
		if th.RowCount > 0 {
			th.Status = StatusHealthy
			health.HealthyTables++
		}
		if table == models.TableAirportDays {
			th.Latest = latest
		}
		health.Tables = append(health.Tables, th)
	}
	health.OverallStatus = StatusHealthy
	if health.HealthyTables < len(health.Tables) {
		health.OverallStatus = StatusDegraded
	}
	return health, nil
}
