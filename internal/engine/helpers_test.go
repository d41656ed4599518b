package engine

import (
	"time"

	"github.com/skydelay/cascade-engine/internal/models"
)

var baseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return baseDate.AddDate(0, 0, n)
}

func clock(v int) *int {
	return &v
}

// flight builds a well-formed record departing at 10:00 and arriving at 12:00.
func flight(origin, dest, carrier string, date time.Time, depDelay float64) models.FlightRecord {
	return models.FlightRecord{
		FlightDate:         date,
		Carrier:            carrier,
		FlightNumber:       "100",
		Origin:             origin,
		Dest:               dest,
		ScheduledDeparture: clock(600),
		ScheduledArrival:   clock(720),
		DepDelayMinutes:    depDelay,
	}
}

func classifyAll(records ...models.FlightRecord) []models.ClassifiedFlight {
	out, _ := ClassifyBatch(records)
	return out
}
