package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skydelay/cascade-engine/internal/engine"
	"github.com/skydelay/cascade-engine/internal/models"
)

func date(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func fixture() *models.Snapshot {
	return &models.Snapshot{
		RunID:       "run-1",
		GeneratedAt: date(20),
		AirportDays: []models.AirportDayMetric{
			{Airport: "ATL", FlightDate: date(1), TotalDepartures: 900, DominantCause: models.CauseWeather},
			{Airport: "ATL", FlightDate: date(2), TotalDepartures: 20, DominantCause: models.CauseCarrier},
			{Airport: "ORD", FlightDate: date(1), TotalDepartures: 700, DominantCause: models.CauseWeather},
			{Airport: "ORD", FlightDate: date(3), TotalDepartures: 650, DominantCause: models.CauseNAS},
		},
		Routes: []models.RouteMetric{
			{RouteID: "ATL-ORD-DL", Origin: "ATL", Dest: "ORD", TotalFlights: 60, DominantCause: models.CauseWeather, Economics: models.EconomicEstimate{TotalImpact: 500}},
			{RouteID: "ORD-ATL-AA", Origin: "ORD", Dest: "ATL", TotalFlights: 31, DominantCause: models.CauseLateAircraft, Economics: models.EconomicEstimate{TotalImpact: 900}},
			{RouteID: "ORD-DEN-UA", Origin: "ORD", Dest: "DEN", TotalFlights: 45, DominantCause: models.CauseWeather, Economics: models.EconomicEstimate{TotalImpact: 900}},
		},
		Vulnerability: []models.CascadeVulnerabilityScore{
			{Airport: "ORD", TotalDepartures: 1350, VulnerabilityRank: 1},
			{Airport: "ATL", TotalDepartures: 920, VulnerabilityRank: 2},
		},
		Cascades: []models.CascadeStats{{Airport: "ATL"}, {Airport: "DEN"}, {Airport: "ORD", TotalAffectedFlights: 12}},
		CascadeDays: []models.CascadeStats{
			{Airport: "ATL", FlightDate: date(1)},
			{Airport: "ORD", FlightDate: date(1), TotalAffectedFlights: 5},
			{Airport: "ORD", FlightDate: date(3), TotalAffectedFlights: 7},
		},
	}
}

func published(t *testing.T) *Store {
	t.Helper()
	s := New()
	require.NoError(t, s.Publish(fixture()))
	return s
}

func TestEmptyStore(t *testing.T) {
	s := New()
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNoSnapshot)
	_, err = s.Routes(models.MartQuery{})
	assert.ErrorIs(t, err, ErrNoSnapshot)
	_, err = s.Health()
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.Error(t, s.Publish(nil))
}

func TestPublishReplacesSnapshot(t *testing.T) {
	s := published(t)
	next := fixture()
	next.RunID = "run-2"
	require.NoError(t, s.Publish(next))

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "run-2", cur.RunID)
}

func TestAirportDaysFilters(t *testing.T) {
	s := published(t)

	rows, err := s.AirportDays(models.MartQuery{Airport: "atl"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.AirportDays(models.MartQuery{Dates: models.DateRange{From: date(2), To: date(3)}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, date(2), rows[0].FlightDate)

	rows, err = s.AirportDays(models.MartQuery{MinFlights: 100, Cause: models.CauseWeather})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.AirportDays(models.MartQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLatestDate(t *testing.T) {
	s := published(t)

	d, err := s.LatestDate("ATL")
	require.NoError(t, err)
	assert.Equal(t, date(2), d)

	d, err = s.LatestDate("")
	require.NoError(t, err)
	assert.Equal(t, date(3), d)

	_, err = s.LatestDate("SFO")
	assert.ErrorIs(t, err, engine.ErrAirportNotFound)
}

func TestRoutesOrderedByImpact(t *testing.T) {
	s := published(t)

	rows, err := s.Routes(models.MartQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ORD-ATL-AA", "ORD-DEN-UA", "ATL-ORD-DL"}, []string{rows[0].RouteID, rows[1].RouteID, rows[2].RouteID})

	rows, err = s.Routes(models.MartQuery{Cause: models.CauseWeather, MinFlights: 50})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ATL-ORD-DL", rows[0].RouteID)

	rows, err = s.Routes(models.MartQuery{Airport: "DEN"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultRouteLimit, ClampLimit(0, DefaultRouteLimit))
	assert.Equal(t, DefaultVulnerabilityLimit, ClampLimit(0, DefaultVulnerabilityLimit))
	assert.Equal(t, 1, ClampLimit(1, DefaultRouteLimit))
	assert.Equal(t, MaxLimit, ClampLimit(500, DefaultRouteLimit))
}

func TestRankedQueriesUseTheirOwnDefaults(t *testing.T) {
	snap := fixture()
	snap.Routes, snap.Vulnerability = nil, nil
	for i := 0; i < 30; i++ {
		code := fmt.Sprintf("A%02d", i)
		snap.Routes = append(snap.Routes, models.RouteMetric{RouteID: code + "-ORD-AA", Origin: code, Dest: "ORD", TotalFlights: 40})
		snap.Vulnerability = append(snap.Vulnerability, models.CascadeVulnerabilityScore{Airport: code, VulnerabilityRank: i + 1})
	}
	s := New()
	require.NoError(t, s.Publish(snap))

	routes, err := s.Routes(models.MartQuery{})
	require.NoError(t, err)
	assert.Len(t, routes, DefaultRouteLimit)

	ranked, err := s.Vulnerability(models.MartQuery{})
	require.NoError(t, err)
	assert.Len(t, ranked, DefaultVulnerabilityLimit)
}

func TestVulnerabilityAndProfile(t *testing.T) {
	s := published(t)

	rows, err := s.Vulnerability(models.MartQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ORD", rows[0].Airport)

	p, err := s.Profile("atl")
	require.NoError(t, err)
	assert.Equal(t, 2, p.VulnerabilityRank)

	_, err = s.Profile("XXX")
	assert.ErrorIs(t, err, engine.ErrAirportNotFound)
}

func TestCascadeLookup(t *testing.T) {
	s := published(t)

	latest, err := s.Cascade("ord", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, date(3), latest.FlightDate)
	assert.Equal(t, 7, latest.TotalAffectedFlights)

	first, err := s.Cascade("ORD", date(1))
	require.NoError(t, err)
	assert.Equal(t, 5, first.TotalAffectedFlights)

	_, err = s.Cascade("ORD", date(2))
	assert.ErrorIs(t, err, engine.ErrAirportNotFound)
	_, err = s.Cascade("BOS", time.Time{})
	assert.ErrorIs(t, err, engine.ErrAirportNotFound)
}

func TestHealth(t *testing.T) {
	s := published(t)

	h, err := s.Health()
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, h.OverallStatus)
	assert.Equal(t, 3, h.HealthyTables)
	assert.Equal(t, "2024-03-03", h.Tables[0].Latest)

	snap := fixture()
	snap.Routes = nil
	require.NoError(t, s.Publish(snap))
	h, err = s.Health()
	require.NoError(t, err)
	assert.Equal(t, StatusDegraded, h.OverallStatus)
	assert.Equal(t, StatusEmpty, h.Tables[1].Status)
}

func TestMySQLConfigDSN(t *testing.T) {
	cfg := MySQLConfig{Host: "db.internal", Port: 3307, User: "sky", Password: "p@ss", Database: "marts", Timeout: 5 * time.Second}

	parsed, err := mysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "db.internal:3307", parsed.Addr)
	assert.Equal(t, "sky", parsed.User)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, "marts", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
}

func TestNoopSink(t *testing.T) {
	var sink Sink = NoopSink{}
	assert.NoError(t, sink.Publish(context.Background(), fixture()))
	assert.NoError(t, sink.Close())
}
