package api

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/skydelay/cascade-engine/internal/models"
	"github.com/skydelay/cascade-engine/internal/utils"
)

// FromStructSimulateRequest reads {"airport": string, "delay_minutes": number}.
func FromStructSimulateRequest(req *structpb.Struct) (string, float64, error) {
	airport, err := FromStructAirport(req)
	if err != nil {
		return "", 0, err
	}
	minutes, ok, err := numberField(req, "delay_minutes")
	if err != nil {
		return "", 0, err
	}
	if !ok {
		return "", 0, fmt.Errorf("delay_minutes is required")
	}
	return airport, minutes, nil
}

// FromStructAirport reads the required airport code.
func FromStructAirport(req *structpb.Struct) (string, error) {
	airport, ok, err := stringField(req, "airport")
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(airport) == "" {
		return "", fmt.Errorf("airport is required")
	}
	return strings.ToUpper(strings.TrimSpace(airport)), nil
}

// FromStructCascadeRequest reads {"airport": string, "date": "YYYY-MM-DD"}; date is optional.
func FromStructCascadeRequest(req *structpb.Struct) (string, time.Time, error) {
	airport, err := FromStructAirport(req)
	if err != nil {
		return "", time.Time{}, err
	}
	v, ok, err := stringField(req, "date")
	if err != nil || !ok || v == "" {
		return airport, time.Time{}, err
	}
	date, err := utils.ParseFlightDate(v)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("date: %w", err)
	}
	return airport, date, nil
}

// FromStructMartQuery reads the optional mart filters: airport, from, to, min_flights, cause, limit.
func FromStructMartQuery(req *structpb.Struct) (models.MartQuery, error) {
	var q models.MartQuery

	airport, _, err := stringField(req, "airport")
	if err != nil {
		return q, err
	}
	q.Airport = strings.ToUpper(strings.TrimSpace(airport))

	for _, f := range []struct {
		name string
		dst  *time.Time
	}{{"from", &q.Dates.From}, {"to", &q.Dates.To}} {
		v, ok, err := stringField(req, f.name)
		if err != nil {
			return q, err
		}
		if !ok || v == "" {
			continue
		}
		if *f.dst, err = utils.ParseFlightDate(v); err != nil {
			return q, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	if !q.Dates.From.IsZero() && !q.Dates.To.IsZero() && q.Dates.To.Before(q.Dates.From) {
		return q, fmt.Errorf("to must not be before from")
	}

	if q.MinFlights, err = countField(req, "min_flights"); err != nil {
		return q, err
	}
	if q.Limit, err = limitField(req); err != nil {
		return q, err
	}

	cause, ok, err := stringField(req, "cause")
	if err != nil {
		return q, err
	}
	if ok && cause != "" {
		c, valid := models.ParseDelayCause(cause)
		if !valid {
			return q, fmt.Errorf("unknown delay cause %q", cause)
		}
		q.Cause = c
	}
	return q, nil
}

// ToStructSimulationResult converts a simulation into its wire document.
func ToStructSimulationResult(r models.CascadeSimulationResult) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"airport":                   r.Airport,
		"delay_minutes":             r.DelayMinutes,
		"directly_affected_flights": r.DirectlyAffectedFlights,
		"cascade_affected_flights":  r.CascadeAffectedFlights,
		"total_affected_passengers": r.TotalAffectedPassengers,
		"passenger_delay_cost_usd":  r.PassengerCost,
		"airline_ops_cost_usd":      r.AirlineCost,
		"total_economic_impact_usd": r.TotalEconomicImpact,
		"connectivity_factor":       r.ConnectivityFactor,
		"delay_factor":              r.DelayFactor,
		"cascade_multiplier":        r.CascadeMultiplier,
	})
}

// ToStructAirportDays converts airport-day rows into {"rows": [...]}.
func ToStructAirportDays(rows []models.AirportDayMetric) (*structpb.Struct, error) {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"airport":                  r.Airport,
			"flight_date":              r.FlightDate.Format(utils.FlightDateLayout),
			"total_departures":         r.TotalDepartures,
			"avg_dep_delay":            nullable(r.AvgDepDelay),
			"flights_delayed_15":       r.FlightsDelayed15,
			"pct_delayed_15":           nullable(r.PctDelayed15),
			"cancellations":            r.Cancellations,
			"pct_cancelled":            nullable(r.PctCancelled),
			"avg_delay_by_cause":       causeDocument(r.Causes),
			"dominant_delay_cause":     string(r.DominantCause),
			"routes_served":            r.RoutesServed,
			"carriers_operating":       r.CarriersOperating,
			"rolling_7day_avg_delay":   nullable(r.Rolling7DayAvgDelay),
			"rolling_7day_pct_delayed": nullable(r.Rolling7DayPctDelayed),
			"week_over_week_change":    nullable(r.WeekOverWeekChange),
			"delay_trend":              string(r.Trend),
			"economics":                economicsDocument(r.Economics),
		})
	}
	return structpb.NewStruct(map[string]any{"rows": out})
}

// ToStructRoutes converts route rows into {"rows": [...]}.
func ToStructRoutes(rows []models.RouteMetric) (*structpb.Struct, error) {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"route_id":             r.RouteID,
			"origin":               r.Origin,
			"dest":                 r.Dest,
			"carrier":              r.Carrier,
			"total_flights":        r.TotalFlights,
			"delayed_flights":      r.DelayedFlights,
			"cancelled_flights":    r.CancelledFlights,
			"pct_delayed":          nullable(r.PctDelayed),
			"pct_cancelled":        nullable(r.PctCancelled),
			"avg_dep_delay":        nullable(r.AvgDepDelay),
			"avg_delay_by_cause":   causeDocument(r.Causes),
			"dominant_delay_cause": string(r.DominantCause),
			"economics":            economicsDocument(r.Economics),
		})
	}
	return structpb.NewStruct(map[string]any{"rows": out})
}

// ToStructVulnerability converts ranked airports into {"rows": [...]}.
func ToStructVulnerability(rows []models.CascadeVulnerabilityScore) (*structpb.Struct, error) {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"airport":                     r.Airport,
			"vulnerability_rank":          r.VulnerabilityRank,
			"cascade_vulnerability_score": r.CascadeVulnerabilityScore,
			"operating_days":              r.OperatingDays,
			"total_departures":            r.TotalDepartures,
			"avg_delay_min":               nullable(r.AvgDelay),
			"avg_pct_delayed":             nullable(r.AvgPctDelayed),
			"avg_pct_cancelled":           nullable(r.AvgPctCancelled),
			"avg_late_aircraft_delay":     nullable(r.AvgLateAircraftDelay),
			"max_routes_served":           r.MaxRoutesServed,
			"max_carriers":                r.MaxCarriers,
			"avg_daily_economic_impact":   r.AvgDailyEconomicImpact,
			"total_economic_impact":       r.TotalEconomicImpact,
			"cascade_propagation_rate":    r.CascadePropagationRate,
		})
	}
	return structpb.NewStruct(map[string]any{"rows": out})
}

// ToStructCascade converts one airport's cascade statistics.
func ToStructCascade(c models.CascadeStats) (*structpb.Struct, error) {
	levels := make([]any, 0, len(c.Levels))
	for _, l := range c.Levels {
		levels = append(levels, map[string]any{
			"level":                 l.Level,
			"affected_flights":      l.AffectedFlights,
			"affected_destinations": l.AffectedDestinations,
			"avg_delay":             l.AvgDelay,
			"min_delay":             l.MinDelay,
			"max_delay":             l.MaxDelay,
			"estimated_passengers":  l.EstimatedPassengers,
		})
	}
	dests := make([]any, 0, len(c.Destinations))
	for _, d := range c.Destinations {
		dests = append(dests, map[string]any{
			"dest":               d.Dest,
			"affected_flights":   d.AffectedFlights,
			"avg_outbound_delay": d.AvgOutboundDelay,
			"avg_inbound_delay":  d.AvgInboundDelay,
		})
	}
	date := ""
	if !c.FlightDate.IsZero() {
		date = c.FlightDate.Format(utils.FlightDateLayout)
	}
	return structpb.NewStruct(map[string]any{
		"airport":                    c.Airport,
		"flight_date":                date,
		"levels":                     levels,
		"total_affected_flights":     c.TotalAffectedFlights,
		"total_estimated_passengers": c.TotalEstimatedPassengers,
		"destinations":               dests,
	})
}

// ToStructHealth converts the pipeline health summary.
func ToStructHealth(h models.PipelineHealth) (*structpb.Struct, error) {
	tables := make([]any, 0, len(h.Tables))
	for _, t := range h.Tables {
		tables = append(tables, map[string]any{
			"table":     t.Table,
			"row_count": t.RowCount,
			"latest":    t.Latest,
			"status":    t.Status,
		})
	}
	return structpb.NewStruct(map[string]any{
		"run_id":          h.RunID,
		"generated_at":    h.GeneratedAt.UTC().Format(time.RFC3339),
		"overall_status":  h.OverallStatus,
		"healthy_tables":  h.HealthyTables,
		"dropped_records": h.DroppedRecords,
		"tables":          tables,
	})
}

func economicsDocument(e models.EconomicEstimate) map[string]any {
	return map[string]any{
		"est_passenger_delay_cost":  e.PassengerCost,
		"est_airline_ops_cost":      e.AirlineCost,
		"est_total_economic_impact": e.TotalImpact,
		"est_cost_per_flight":       nullable(e.CostPerFlight),
	}
}

func causeDocument(c models.CauseBreakdown) map[string]any {
	stat := func(s models.CauseStat) map[string]any {
		return map[string]any{"avg_minutes": nullable(s.AvgDelay), "count": s.Count}
	}
	return map[string]any{
		"weather":       stat(c.Weather),
		"carrier":       stat(c.Carrier),
		"nas":           stat(c.NAS),
		"security":      stat(c.Security),
		"late_aircraft": stat(c.LateAircraft),
	}
}

func nullable(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func stringField(req *structpb.Struct, name string) (string, bool, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", false, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return "", false, nil
	case *structpb.Value_StringValue:
		return k.StringValue, true, nil
	default:
		return "", false, fmt.Errorf("%s must be a string", name)
	}
}

func numberField(req *structpb.Struct, name string) (float64, bool, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, false, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, false, nil
	case *structpb.Value_NumberValue:
		return k.NumberValue, true, nil
	default:
		return 0, false, fmt.Errorf("%s must be a number", name)
	}
}

// limitField reads the optional limit. An explicit limit below one selects a single row;
// an absent limit is returned as zero so the query applies its default.
func limitField(req *structpb.Struct) (int, error) {
	v, ok, err := numberField(req, "limit")
	if err != nil || !ok {
		return 0, err
	}
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("limit must be an integer")
	}
	return int(math.Max(1, math.Min(v, math.MaxInt32))), nil
}

// countField reads an optional non-negative whole number.
func countField(req *structpb.Struct, name string) (int, error) {
	v, ok, err := numberField(req, name)
	if err != nil || !ok {
		return 0, err
	}
	if v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return int(v), nil
}
