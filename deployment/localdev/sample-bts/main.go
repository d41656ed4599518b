package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/skydelay/cascade-engine/internal/ingest"
	"github.com/skydelay/cascade-engine/internal/models"
)

var (
	hubs     = []string{"ATL", "BOS", "DEN", "DFW", "JFK", "LAX", "ORD", "SEA"}
	carriers = []string{"AA", "DL", "UA", "WN"}
)

func main() {
	var (
		out   string
		days  int
		start string
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "sample-bts",
		Short: "Write a synthetic BTS on-time CSV for local runs of skydelay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			first, err := time.Parse("2006-01-02", start)
			if err != nil {
				return fmt.Errorf("start: %w", err)
			}
			records := generate(rand.New(rand.NewPCG(seed, seed^0x5eed)), first, days)

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := ingest.Encode(f, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d flights over %d days to %s\n", len(records), days, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "data/bts/flights.csv", "Output CSV path")
	cmd.Flags().IntVar(&days, "days", 21, "Number of consecutive flight dates")
	cmd.Flags().StringVar(&start, "start", "2024-01-01", "First flight date")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// generate schedules two daily rotations per carrier on every hub pair. Each carrier's
// aircraft turn at the destination, so late arrivals propagate into later departures.
func generate(rng *rand.Rand, first time.Time, days int) []models.FlightRecord {
	var records []models.FlightRecord
	number := 100
	for d := 0; d < days; d++ {
		date := first.AddDate(0, 0, d)
		weatherDay := rng.Float64() < 0.15
		for _, origin := range hubs {
			for _, dest := range hubs {
				if origin == dest {
					continue
				}
				for _, carrier := range carriers {
					if rng.Float64() < 0.35 {
						continue
					}
					for _, dep := range []int{6*60 + rng.IntN(120), 14*60 + rng.IntN(240)} {
						number++
						records = append(records, flight(rng, date, carrier, number, origin, dest, dep, weatherDay))
					}
				}
			}
		}
	}
	return records
}

func flight(rng *rand.Rand, date time.Time, carrier string, number int, origin, dest string, dep int, weatherDay bool) models.FlightRecord {
	block := 90 + rng.IntN(240)
	arr := (dep + block) % (24 * 60)
	rec := models.FlightRecord{
		FlightDate:         date,
		Carrier:            carrier,
		FlightNumber:       strconv.Itoa(number),
		Origin:             origin,
		Dest:               dest,
		ScheduledDeparture: &dep,
		ScheduledArrival:   &arr,
	}

	if rng.Float64() < 0.02 {
		rec.Cancelled = true
		return rec
	}

	delay := 0.0
	if rng.Float64() < 0.3 {
		delay = rng.ExpFloat64() * 35
	}
	if weatherDay && rng.Float64() < 0.4 {
		rec.Causes.Weather = 20 + rng.ExpFloat64()*40
		delay += rec.Causes.Weather
	}
	if delay >= 15 {
		rest := delay - rec.Causes.Weather
		rec.Causes.LateAircraft = rest * 0.4
		rec.Causes.Carrier = rest * 0.3
		rec.Causes.NAS = rest * 0.3
	}
	delay = float64(int(delay))
	rec.DepDelayMinutes = delay
	rec.ArrDelayMinutes = max(0, delay+float64(rng.IntN(21)-10))

	actualDep := (dep + int(delay)) % (24 * 60)
	actualArr := (arr + int(rec.ArrDelayMinutes)) % (24 * 60)
	rec.ActualDeparture = &actualDep
	rec.ActualArrival = &actualArr
	return rec
}
