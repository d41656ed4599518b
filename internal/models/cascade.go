package models

import "time"

// CascadeLevel reports one hop of a detected cascade. Level 0 is the delayed inbound wave,
// level 1 the outbound departures it disrupted.
type CascadeLevel struct {
	Level                int
	AffectedFlights      int
	AffectedDestinations int
	AvgDelay             float64
	MinDelay             float64
	MaxDelay             float64
	EstimatedPassengers  int
}

// CascadeDestination is the level-1 breakdown for one outbound destination.
type CascadeDestination struct {
	Dest             string
	AffectedFlights  int
	AvgOutboundDelay float64
	AvgInboundDelay  float64
}

// CascadeStats is the detector output for one airport. FlightDate is set when the stats cover a
// single day and zero when they pool the whole batch.
type CascadeStats struct {
	Airport    string
	FlightDate time.Time
	Levels     []CascadeLevel

	TotalAffectedFlights     int
	TotalEstimatedPassengers int

	Destinations []CascadeDestination
}

// Level returns the requested level, or a zero level when it was not produced.
func (s CascadeStats) Level(n int) CascadeLevel {
	for _, l := range s.Levels {
		if l.Level == n {
			return l
		}
	}
	return CascadeLevel{Level: n}
}
