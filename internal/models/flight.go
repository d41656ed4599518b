package models

import "time"

// FlightRecord is one scheduled flight on one date as supplied by the ingestion layer.
// Clock times are minutes since local midnight; nil means the field was not reported.
type FlightRecord struct {
	FlightDate   time.Time
	Carrier      string
	FlightNumber string
	Origin       string
	Dest         string

	ScheduledDeparture *int
	ActualDeparture    *int
	ScheduledArrival   *int
	ActualArrival      *int

	DepDelayMinutes float64
	ArrDelayMinutes float64
	Cancelled       bool

	Causes DelayCauses
}

// DelayCauses is the BTS per-cause breakdown of delay minutes. Components are never negative.
type DelayCauses struct {
	Carrier      float64
	Weather      float64
	NAS          float64
	Security     float64
	LateAircraft float64
}

// Malformed reports whether the record lacks both scheduled clock times.
func (r FlightRecord) Malformed() bool {
	return r.ScheduledDeparture == nil && r.ScheduledArrival == nil
}

// DelayCause is the single dominant cause assigned to a flight.
type DelayCause string

const (
	CauseOnTime       DelayCause = "On Time"
	CauseCancelled    DelayCause = "Cancelled"
	CauseWeather      DelayCause = "Weather"
	CauseNAS          DelayCause = "NAS/ATC"
	CauseLateAircraft DelayCause = "Late Aircraft"
	CauseCarrier      DelayCause = "Carrier"
	CauseSecurity     DelayCause = "Security"
	CauseOther        DelayCause = "Other"
)

// ParseDelayCause maps a user supplied cause label onto a DelayCause.
func ParseDelayCause(s string) (DelayCause, bool) {
	switch DelayCause(s) {
	case CauseOnTime, CauseCancelled, CauseWeather, CauseNAS, CauseLateAircraft,
		CauseCarrier, CauseSecurity, CauseOther:
		return DelayCause(s), true
	}
	return "", false
}

// ClassifiedFlight decorates a FlightRecord with its classification.
type ClassifiedFlight struct {
	FlightRecord
	IsDelayed15   bool
	IsCancelled   bool
	DominantCause DelayCause
}
