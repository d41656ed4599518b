package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/skydelay/cascade-engine/internal/models"
	"github.com/skydelay/cascade-engine/internal/utils"
)

// MySQLConfig holds connection parameters for the mart database.
type MySQLConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	Timeout         time.Duration
}

// DSN renders cfg in go-sql-driver form.
func (c MySQLConfig) DSN() string {
	dc := mysql.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	dc.DBName = c.Database
	dc.ParseTime = true
	dc.Loc = time.UTC
	if c.Timeout > 0 {
		dc.Timeout = c.Timeout
	}
	return dc.FormatDSN()
}

// MySQLSink replaces the mart tables with each published snapshot inside one transaction,
// so readers see either the previous run or the new one.
type MySQLSink struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMySQLSink opens the pool, verifies connectivity, and ensures the mart schema exists.
func NewMySQLSink(ctx context.Context, cfg MySQLConfig, logger *slog.Logger) (*MySQLSink, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	sink := NewMySQLSinkFromDB(db, logger)
	if err := sink.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

// NewMySQLSinkFromDB wraps an existing pool.
func NewMySQLSinkFromDB(db *sql.DB, logger *slog.Logger) *MySQLSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MySQLSink{db: db, logger: logger}
}

// column maps one mart table column onto a field of its row type.
type column[T any] struct {
	name  string
	ddl   string
	value func(T) any
}

// causeColumns expands a cause breakdown into avg_<cause>_delay and <cause>_delays columns.
func causeColumns[T any](causes func(T) models.CauseBreakdown) []column[T] {
	var cols []column[T]
	for _, c := range []struct {
		name string
		stat func(models.CauseBreakdown) models.CauseStat
	}{
		{"weather", func(b models.CauseBreakdown) models.CauseStat { return b.Weather }},
		{"carrier", func(b models.CauseBreakdown) models.CauseStat { return b.Carrier }},
		{"nas", func(b models.CauseBreakdown) models.CauseStat { return b.NAS }},
		{"security", func(b models.CauseBreakdown) models.CauseStat { return b.Security }},
		{"late_aircraft", func(b models.CauseBreakdown) models.CauseStat { return b.LateAircraft }},
	} {
		stat := c.stat
		cols = append(cols,
			column[T]{"avg_" + c.name + "_delay", "DOUBLE NULL", func(r T) any { return stat(causes(r)).AvgDelay }},
			column[T]{c.name + "_delays", "INT NOT NULL", func(r T) any { return stat(causes(r)).Count }},
		)
	}
	return cols
}

func economicsColumns[T any](econ func(T) models.EconomicEstimate) []column[T] {
	return []column[T]{
		{"est_passenger_delay_cost", "DOUBLE NOT NULL", func(r T) any { return econ(r).PassengerCost }},
		{"est_airline_ops_cost", "DOUBLE NOT NULL", func(r T) any { return econ(r).AirlineCost }},
		{"est_total_economic_impact", "DOUBLE NOT NULL", func(r T) any { return econ(r).TotalImpact }},
		{"est_cost_per_flight", "DOUBLE NULL", func(r T) any { return econ(r).CostPerFlight }},
	}
}

type airportDay = models.AirportDayMetric

var airportDayColumns = concat(
	[]column[airportDay]{
		{"airport", "VARCHAR(4) NOT NULL", func(r airportDay) any { return r.Airport }},
		{"flight_date", "DATE NOT NULL", func(r airportDay) any { return r.FlightDate }},
		{"total_departures", "INT NOT NULL", func(r airportDay) any { return r.TotalDepartures }},
		{"avg_dep_delay", "DOUBLE NULL", func(r airportDay) any { return r.AvgDepDelay }},
		{"flights_delayed_15", "INT NOT NULL", func(r airportDay) any { return r.FlightsDelayed15 }},
		{"pct_delayed_15", "DOUBLE NULL", func(r airportDay) any { return r.PctDelayed15 }},
		{"cancellations", "INT NOT NULL", func(r airportDay) any { return r.Cancellations }},
		{"pct_cancelled", "DOUBLE NULL", func(r airportDay) any { return r.PctCancelled }},
	},
	causeColumns(func(r airportDay) models.CauseBreakdown { return r.Causes }),
	[]column[airportDay]{
		{"dominant_delay_cause", "VARCHAR(16) NOT NULL", func(r airportDay) any { return string(r.DominantCause) }},
		{"routes_served", "INT NOT NULL", func(r airportDay) any { return r.RoutesServed }},
		{"carriers_operating", "INT NOT NULL", func(r airportDay) any { return r.CarriersOperating }},
		{"rolling_7day_avg_delay", "DOUBLE NULL", func(r airportDay) any { return r.Rolling7DayAvgDelay }},
		{"rolling_7day_pct_delayed", "DOUBLE NULL", func(r airportDay) any { return r.Rolling7DayPctDelayed }},
		{"week_over_week_change", "DOUBLE NULL", func(r airportDay) any { return r.WeekOverWeekChange }},
		{"delay_trend", "VARCHAR(20) NOT NULL", func(r airportDay) any { return string(r.Trend) }},
	},
	economicsColumns(func(r airportDay) models.EconomicEstimate { return r.Economics }),
)

type route = models.RouteMetric

var routeColumns = concat(
	[]column[route]{
		{"route_id", "VARCHAR(16) NOT NULL", func(r route) any { return r.RouteID }},
		{"origin", "VARCHAR(4) NOT NULL", func(r route) any { return r.Origin }},
		{"dest", "VARCHAR(4) NOT NULL", func(r route) any { return r.Dest }},
		{"carrier", "VARCHAR(3) NOT NULL", func(r route) any { return r.Carrier }},
		{"total_flights", "INT NOT NULL", func(r route) any { return r.TotalFlights }},
		{"delayed_flights", "INT NOT NULL", func(r route) any { return r.DelayedFlights }},
		{"cancelled_flights", "INT NOT NULL", func(r route) any { return r.CancelledFlights }},
		{"pct_delayed", "DOUBLE NULL", func(r route) any { return r.PctDelayed }},
		{"pct_cancelled", "DOUBLE NULL", func(r route) any { return r.PctCancelled }},
		{"avg_dep_delay", "DOUBLE NULL", func(r route) any { return r.AvgDepDelay }},
	},
	causeColumns(func(r route) models.CauseBreakdown { return r.Causes }),
	[]column[route]{
		{"dominant_delay_cause", "VARCHAR(16) NOT NULL", func(r route) any { return string(r.DominantCause) }},
	},
	economicsColumns(func(r route) models.EconomicEstimate { return r.Economics }),
)

type vulnerability = models.CascadeVulnerabilityScore

var vulnerabilityColumns = []column[vulnerability]{
	{"airport", "VARCHAR(4) NOT NULL", func(r vulnerability) any { return r.Airport }},
	{"operating_days", "INT NOT NULL", func(r vulnerability) any { return r.OperatingDays }},
	{"total_departures", "INT NOT NULL", func(r vulnerability) any { return r.TotalDepartures }},
	{"avg_delay_min", "DOUBLE NULL", func(r vulnerability) any { return r.AvgDelay }},
	{"avg_pct_delayed", "DOUBLE NULL", func(r vulnerability) any { return r.AvgPctDelayed }},
	{"avg_pct_cancelled", "DOUBLE NULL", func(r vulnerability) any { return r.AvgPctCancelled }},
	{"avg_late_aircraft_delay", "DOUBLE NULL", func(r vulnerability) any { return r.AvgLateAircraftDelay }},
	{"max_routes_served", "INT NOT NULL", func(r vulnerability) any { return r.MaxRoutesServed }},
	{"max_carriers", "INT NOT NULL", func(r vulnerability) any { return r.MaxCarriers }},
	{"avg_daily_economic_impact", "DOUBLE NOT NULL", func(r vulnerability) any { return r.AvgDailyEconomicImpact }},
	{"total_economic_impact", "DOUBLE NOT NULL", func(r vulnerability) any { return r.TotalEconomicImpact }},
	{"cascade_propagation_rate", "DOUBLE NOT NULL", func(r vulnerability) any { return r.CascadePropagationRate }},
	{"cascade_vulnerability_score", "DOUBLE NOT NULL", func(r vulnerability) any { return r.CascadeVulnerabilityScore }},
	{"vulnerability_rank", "INT NOT NULL", func(r vulnerability) any { return r.VulnerabilityRank }},
}

func concat[T any](groups ...[]column[T]) []column[T] {
	var out []column[T]
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func columnNames[T any](cols []column[T]) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

func createTable[T any](table string, cols []column[T], primaryKey ...string) string {
	defs := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		defs = append(defs, c.name+" "+c.ddl)
	}
	defs = append(defs, "PRIMARY KEY ("+strings.Join(primaryKey, ", ")+")")
	return "CREATE TABLE IF NOT EXISTS " + table + " (\n\t" + strings.Join(defs, ",\n\t") + "\n)"
}

func insertStatement[T any](table string, cols []column[T]) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return "INSERT INTO " + table + " (" + strings.Join(columnNames(cols), ", ") + ") VALUES (" + marks + ")"
}

func rowValues[T any](cols []column[T], row T) []any {
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = c.value(row)
	}
	return args
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id VARCHAR(36) PRIMARY KEY,
	generated_at DATETIME NOT NULL,
	dropped_records INT NOT NULL
)`,
	createTable(models.TableAirportDays, airportDayColumns, "airport", "flight_date"),
	createTable(models.TableRoutes, routeColumns, "route_id"),
	createTable(models.TableVulnerability, vulnerabilityColumns, "airport"),
}

// EnsureSchema creates the mart tables when missing.
func (s *MySQLSink) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Publish clears and reloads every mart table in a single transaction.
func (s *MySQLSink) Publish(ctx context.Context, snap *models.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publish transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{models.TableAirportDays, models.TableRoutes, models.TableVulnerability} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	err = insertRows(ctx, tx, models.TableAirportDays, airportDayColumns, snap.AirportDays, func(r airportDay) string {
		return r.Airport + "/" + r.FlightDate.Format(utils.FlightDateLayout)
	})
	if err != nil {
		return err
	}
	if err := insertRows(ctx, tx, models.TableRoutes, routeColumns, snap.Routes, func(r route) string { return r.RouteID }); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, models.TableVulnerability, vulnerabilityColumns, snap.Vulnerability, func(r vulnerability) string { return r.Airport }); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO pipeline_runs (run_id, generated_at, dropped_records) VALUES (?, ?, ?)",
		snap.RunID, snap.GeneratedAt, snap.Dropped,
	); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit publish transaction: %w", err)
	}
	s.logger.Info("published snapshot to mysql",
		slog.String("run_id", snap.RunID),
		slog.Int(models.TableAirportDays, len(snap.AirportDays)),
		slog.Int(models.TableRoutes, len(snap.Routes)),
		slog.Int(models.TableVulnerability, len(snap.Vulnerability)),
	)
	return nil
}

// Close releases the pool.
func (s *MySQLSink) Close() error {
	return s.db.Close()
}

func insertRows[T any](ctx context.Context, tx *sql.Tx, table string, cols []column[T], rows []T, key func(T) string) error {
	stmt, err := tx.PrepareContext(ctx, insertStatement(table, cols))
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, rowValues(cols, r)...); err != nil {
			return fmt.Errorf("insert %s row %s: %w", table, key(r), err)
		}
	}
	return nil
}
