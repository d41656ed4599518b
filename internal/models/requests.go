package models

import "time"

// DateRange bounds a query by flight date. Zero values leave that side open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d falls inside the range, inclusive on both ends.
func (r DateRange) Contains(d time.Time) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// MartQuery captures the filters the presentation layer applies to mart tables.
type MartQuery struct {
	Airport    string
	Dates      DateRange
	MinFlights int
	Cause      DelayCause
	// Limit of zero selects the query's default size.
	Limit int
}

// TableHealth describes one published table.
type TableHealth struct {
	Table    string
	RowCount int
	Latest   string
	Status   string
}

// PipelineHealth summarises the currently published snapshot.
type PipelineHealth struct {
	RunID          string
	GeneratedAt    time.Time
	OverallStatus  string
	HealthyTables  int
	Tables         []TableHealth
	DroppedRecords int
}
