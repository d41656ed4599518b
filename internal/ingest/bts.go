package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/skydelay/cascade-engine/internal/models"
	"github.com/skydelay/cascade-engine/internal/utils"
)

// btsRow mirrors the columns of the BTS Reporting Carrier On-Time Performance download.
// Empty cells decode to nil pointers.
type btsRow struct {
	FlightDate   string `csv:"FlightDate"`
	Carrier      string `csv:"IATA_CODE_Reporting_Airline"`
	FlightNumber string `csv:"Flight_Number_Reporting_Airline"`
	Origin       string `csv:"Origin"`
	Dest         string `csv:"Dest"`

	CRSDepTime *int `csv:"CRSDepTime"`
	DepTime    *int `csv:"DepTime"`
	CRSArrTime *int `csv:"CRSArrTime"`
	ArrTime    *int `csv:"ArrTime"`

	DepDelayMinutes *float64 `csv:"DepDelayMinutes"`
	ArrDelayMinutes *float64 `csv:"ArrDelayMinutes"`
	Cancelled       *float64 `csv:"Cancelled"`

	CarrierDelay      *float64 `csv:"CarrierDelay"`
	WeatherDelay      *float64 `csv:"WeatherDelay"`
	NASDelay          *float64 `csv:"NASDelay"`
	SecurityDelay     *float64 `csv:"SecurityDelay"`
	LateAircraftDelay *float64 `csv:"LateAircraftDelay"`
}

// Stats summarises one decode pass.
type Stats struct {
	Rows     int
	Rejected int
}

// Loader decodes BTS on-time CSV batches into flight records.
type Loader struct {
	logger *slog.Logger
}

// NewLoader constructs a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadFile opens path and decodes it.
func (l *Loader) LoadFile(path string) ([]models.FlightRecord, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, utils.NewAppError("ingest.LoadFile", "open flight batch", err)
	}
	defer f.Close()
	return l.Decode(f)
}

// Decode reads every row from r. Rows whose cells cannot be parsed, or that carry no usable
// flight date or airport codes, are rejected and counted rather than failing the batch.
// Rows missing scheduled times are passed through; the classifier drops those.
func (l *Loader) Decode(r io.Reader) ([]models.FlightRecord, Stats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, Stats{}, nil
		}
		return nil, Stats{}, fmt.Errorf("create BTS decoder: %w", err)
	}

	var (
		records []models.FlightRecord
		stats   Stats
	)
	for {
		var row btsRow
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		stats.Rows++
		if err != nil {
			if rejectable(err) {
				stats.Rejected++
				l.logger.Debug("rejected BTS row", slog.Int("row", stats.Rows), slog.Any("error", err))
				continue
			}
			return nil, stats, fmt.Errorf("decode BTS row %d: %w", stats.Rows, err)
		}

		rec, err := row.toRecord()
		if err != nil {
			stats.Rejected++
			l.logger.Debug("rejected BTS row", slog.Int("row", stats.Rows), slog.Any("error", err))
			continue
		}
		records = append(records, rec)
	}

	if stats.Rejected > 0 {
		l.logger.Warn("rejected unparseable BTS rows", slog.Int("rejected", stats.Rejected), slog.Int("rows", stats.Rows))
	}
	l.logger.Info("decoded BTS batch", slog.Int("records", len(records)))
	return records, stats, nil
}

// rejectable reports whether err concerns a single row, leaving the rest of the batch readable.
func rejectable(err error) bool {
	var (
		typeErr  *csvutil.UnmarshalTypeError
		parseErr *csv.ParseError
	)
	return errors.As(err, &typeErr) ||
		errors.Is(err, csvutil.ErrFieldCount) ||
		errors.As(err, &parseErr)
}

func (r btsRow) toRecord() (models.FlightRecord, error) {
	date, err := utils.ParseFlightDate(r.FlightDate)
	if err != nil {
		return models.FlightRecord{}, err
	}
	origin, dest := strings.TrimSpace(r.Origin), strings.TrimSpace(r.Dest)
	if origin == "" || dest == "" {
		return models.FlightRecord{}, fmt.Errorf("missing airport code")
	}

	return models.FlightRecord{
		FlightDate:         date,
		Carrier:            strings.TrimSpace(r.Carrier),
		FlightNumber:       strings.TrimSpace(r.FlightNumber),
		Origin:             origin,
		Dest:               dest,
		ScheduledDeparture: clock(r.CRSDepTime),
		ActualDeparture:    clock(r.DepTime),
		ScheduledArrival:   clock(r.CRSArrTime),
		ActualArrival:      clock(r.ArrTime),
		DepDelayMinutes:    minutes(r.DepDelayMinutes),
		ArrDelayMinutes:    minutes(r.ArrDelayMinutes),
		Cancelled:          r.Cancelled != nil && *r.Cancelled >= 1,
		Causes: models.DelayCauses{
			Carrier:      minutes(r.CarrierDelay),
			Weather:      minutes(r.WeatherDelay),
			NAS:          minutes(r.NASDelay),
			Security:     minutes(r.SecurityDelay),
			LateAircraft: minutes(r.LateAircraftDelay),
		},
	}, nil
}

// Encode writes records as a BTS on-time CSV with a header row. Clock times are written back
// in HHMM form.
func Encode(w io.Writer, records []models.FlightRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	for _, rec := range records {
		if err := enc.Encode(fromRecord(rec)); err != nil {
			return fmt.Errorf("encode BTS row: %w", err)
		}
	}
	if len(records) == 0 {
		if err := enc.EncodeHeader(btsRow{}); err != nil {
			return fmt.Errorf("encode BTS header: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func fromRecord(rec models.FlightRecord) btsRow {
	cancelled := 0.0
	if rec.Cancelled {
		cancelled = 1
	}
	f := func(v float64) *float64 { return &v }
	return btsRow{
		FlightDate:        rec.FlightDate.Format(utils.FlightDateLayout),
		Carrier:           rec.Carrier,
		FlightNumber:      rec.FlightNumber,
		Origin:            rec.Origin,
		Dest:              rec.Dest,
		CRSDepTime:        hhmm(rec.ScheduledDeparture),
		DepTime:           hhmm(rec.ActualDeparture),
		CRSArrTime:        hhmm(rec.ScheduledArrival),
		ArrTime:           hhmm(rec.ActualArrival),
		DepDelayMinutes:   f(rec.DepDelayMinutes),
		ArrDelayMinutes:   f(rec.ArrDelayMinutes),
		Cancelled:         &cancelled,
		CarrierDelay:      f(rec.Causes.Carrier),
		WeatherDelay:      f(rec.Causes.Weather),
		NASDelay:          f(rec.Causes.NAS),
		SecurityDelay:     f(rec.Causes.Security),
		LateAircraftDelay: f(rec.Causes.LateAircraft),
	}
}

// clock converts an HHMM cell to minutes since midnight; invalid values count as missing.
func clock(hhmm *int) *int {
	if hhmm == nil {
		return nil
	}
	m, err := utils.ClockMinutes(*hhmm)
	if err != nil {
		return nil
	}
	return &m
}

func hhmm(m *int) *int {
	if m == nil {
		return nil
	}
	v := (*m/60)*100 + *m%60
	return &v
}

// minutes reads a delay cell, treating missing and negative values as zero.
func minutes(v *float64) float64 {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

// FileSource reads the whole batch from a CSV file on every call.
type FileSource struct {
	Loader *Loader
	Path   string
}

// Records loads the batch. The context is checked before the file is opened.
func (s FileSource) Records(ctx context.Context) ([]models.FlightRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loader := s.Loader
	if loader == nil {
		loader = NewLoader(nil)
	}
	records, _, err := loader.LoadFile(s.Path)
	return records, err
}
