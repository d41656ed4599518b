package models

import "time"

// Mart table names, shared by the in-process store and the MySQL sink.
const (
	TableAirportDays   = "mart_delay_economics"
	TableRoutes        = "mart_route_economics"
	TableVulnerability = "mart_cascade_vulnerability"
)

// Snapshot is the complete output of one pipeline run. The tables are a pure function of the
// input batch; RunID and GeneratedAt only identify the run.
type Snapshot struct {
	RunID       string
	GeneratedAt time.Time

	AirportDays   []AirportDayMetric
	Routes        []RouteMetric
	Vulnerability []CascadeVulnerabilityScore
	Cascades      []CascadeStats
	CascadeDays   []CascadeStats

	Dropped int
}

// RowCounts reports the size of each mart table keyed by table name.
func (s *Snapshot) RowCounts() map[string]int {
	return map[string]int{
		TableAirportDays:   len(s.AirportDays),
		TableRoutes:        len(s.Routes),
		TableVulnerability: len(s.Vulnerability),
	}
}
