package models

import (
	"database/sql"
	"time"
)

// Trend classifies the week-over-week movement of an airport's average delay.
type Trend string

const (
	TrendWorsening    Trend = "WORSENING"
	TrendImproving    Trend = "IMPROVING"
	TrendStable       Trend = "STABLE"
	TrendInsufficient Trend = "INSUFFICIENT_DATA"
)

// EconomicEstimate is the output of the economic impact model for one aggregate.
type EconomicEstimate struct {
	PassengerCost float64
	AirlineCost   float64
	TotalImpact   float64
	CostPerFlight sql.NullFloat64
}

// CauseStat holds the positive-only average and the positive count for one delay cause.
type CauseStat struct {
	AvgDelay sql.NullFloat64
	Count    int
}

// CauseBreakdown groups the per-cause statistics of an aggregate.
type CauseBreakdown struct {
	Weather      CauseStat
	Carrier      CauseStat
	NAS          CauseStat
	Security     CauseStat
	LateAircraft CauseStat
}

// AirportDayMetric is the mart row for one origin airport on one date.
type AirportDayMetric struct {
	Airport    string
	FlightDate time.Time

	TotalDepartures  int
	AvgDepDelay      sql.NullFloat64
	FlightsDelayed15 int
	PctDelayed15     sql.NullFloat64
	Cancellations    int
	PctCancelled     sql.NullFloat64

	Causes        CauseBreakdown
	DominantCause DelayCause

	RoutesServed      int
	CarriersOperating int

	Rolling7DayAvgDelay   sql.NullFloat64
	Rolling7DayPctDelayed sql.NullFloat64
	WeekOverWeekChange    sql.NullFloat64
	Trend                 Trend

	Economics EconomicEstimate
}

// RouteMetric is the mart row for one origin-destination-carrier triple.
type RouteMetric struct {
	RouteID string
	Origin  string
	Dest    string
	Carrier string

	TotalFlights     int
	DelayedFlights   int
	CancelledFlights int
	PctDelayed       sql.NullFloat64
	PctCancelled     sql.NullFloat64
	AvgDepDelay      sql.NullFloat64

	Causes        CauseBreakdown
	DominantCause DelayCause

	Economics EconomicEstimate
}

// CascadeVulnerabilityScore summarises one airport across every operating day in the batch.
type CascadeVulnerabilityScore struct {
	Airport         string
	OperatingDays   int
	TotalDepartures int

	AvgDelay             sql.NullFloat64
	AvgPctDelayed        sql.NullFloat64
	AvgPctCancelled      sql.NullFloat64
	AvgLateAircraftDelay sql.NullFloat64

	MaxRoutesServed int
	MaxCarriers     int

	AvgDailyEconomicImpact float64
	TotalEconomicImpact    float64

	CascadePropagationRate    float64
	CascadeVulnerabilityScore float64
	VulnerabilityRank         int
}

// CascadeSimulationResult is the projection returned by a what-if simulation.
type CascadeSimulationResult struct {
	Airport      string
	DelayMinutes float64

	DirectlyAffectedFlights int
	CascadeAffectedFlights  int
	TotalAffectedPassengers int

	PassengerCost       float64
	AirlineCost         float64
	TotalEconomicImpact float64

	ConnectivityFactor float64
	DelayFactor        float64
	CascadeMultiplier  float64
}
