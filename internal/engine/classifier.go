package engine

import (
	"github.com/skydelay/cascade-engine/internal/models"
)

// DelayedThresholdMinutes is the departure delay at which a flight counts as delayed.
const DelayedThresholdMinutes = 15

// Classify assigns delay flags and the dominant cause to a single record.
func Classify(r models.FlightRecord) models.ClassifiedFlight {
	return models.ClassifiedFlight{
		FlightRecord:  r,
		IsDelayed15:   !r.Cancelled && r.DepDelayMinutes >= DelayedThresholdMinutes,
		IsCancelled:   r.Cancelled,
		DominantCause: dominantCause(r),
	}
}

// ClassifyBatch classifies every well-formed record and returns how many were dropped as malformed.
func ClassifyBatch(records []models.FlightRecord) ([]models.ClassifiedFlight, int) {
	out := make([]models.ClassifiedFlight, 0, len(records))
	dropped := 0
	for _, r := range records {
		if r.Malformed() {
			dropped++
			continue
		}
		out = append(out, Classify(r))
	}
	return out, dropped
}

// dominantCause walks the causes in fixed precedence. Each candidate must be positive and at
// least as large as every cause that has not already been ruled out ahead of it.
func dominantCause(r models.FlightRecord) models.DelayCause {
	if r.Cancelled {
		return models.CauseCancelled
	}
	if r.DepDelayMinutes <= DelayedThresholdMinutes {
		return models.CauseOnTime
	}

	c := r.Causes
	switch {
	case c.Weather > 0 && c.Weather >= c.NAS && c.Weather >= c.LateAircraft && c.Weather >= c.Carrier && c.Weather >= c.Security:
		return models.CauseWeather
	case c.NAS > 0 && c.NAS >= c.LateAircraft && c.NAS >= c.Carrier && c.NAS >= c.Security:
		return models.CauseNAS
	case c.LateAircraft > 0 && c.LateAircraft >= c.Carrier && c.LateAircraft >= c.Security:
		return models.CauseLateAircraft
	case c.Carrier > 0:
		return models.CauseCarrier
	case c.Security > 0:
		return models.CauseSecurity
	default:
		return models.CauseOther
	}
}
