package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/skydelay/cascade-engine/internal/api"
	"github.com/skydelay/cascade-engine/internal/engine"
	"github.com/skydelay/cascade-engine/internal/metrics"
	"github.com/skydelay/cascade-engine/internal/models"
	"github.com/skydelay/cascade-engine/internal/store"
	"github.com/skydelay/cascade-engine/internal/utils"
)

// SnapshotReader is the read side of the published mart snapshot.
type SnapshotReader interface {
	AirportDays(q models.MartQuery) ([]models.AirportDayMetric, error)
	LatestDate(airport string) (time.Time, error)
	Routes(q models.MartQuery) ([]models.RouteMetric, error)
	Vulnerability(q models.MartQuery) ([]models.CascadeVulnerabilityScore, error)
	Profile(airport string) (models.CascadeVulnerabilityScore, error)
	Cascade(airport string, date time.Time) (models.CascadeStats, error)
	Health() (models.PipelineHealth, error)
}

// CascadeService implements the gRPC CascadeEngine service.
type CascadeService struct {
	logger    *slog.Logger
	snapshots SnapshotReader
	simulator *engine.Simulator
	latencies *utils.LatencyTracker
}

var _ api.CascadeEngineServer = (*CascadeService)(nil)

// NewCascadeService constructs the service facade.
func NewCascadeService(logger *slog.Logger, snapshots SnapshotReader, simulator *engine.Simulator) *CascadeService {
	if logger == nil {
		logger = slog.Default()
	}
	if simulator == nil {
		simulator = engine.NewSimulator(nil)
	}
	return &CascadeService{
		logger:    logger,
		snapshots: snapshots,
		simulator: simulator,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Simulate projects a hypothetical delay at an airport.
func (s *CascadeService) Simulate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.snapshots == nil {
		return nil, status.Error(codes.FailedPrecondition, "snapshot store not configured")
	}
	airport, minutes, err := api.FromStructSimulateRequest(req)
	if err != nil {
		metrics.ObserveSimulation(metrics.OutcomeInvalid)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	start := time.Now()
	profile, err := s.snapshots.Profile(airport)
	if err != nil {
		return nil, s.fail("simulate", err)
	}
	result, err := s.simulator.Simulate(profile, minutes)
	if err != nil {
		return nil, s.fail("simulate", err)
	}
	metrics.ObserveSimulation(metrics.OutcomeSuccess)

	s.latencies.Observe(time.Since(start))
	if count := s.latencies.Count(); count >= 100 && count%100 == 0 {
		s.logger.Info("simulation latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}
	s.logger.Debug("simulation served",
		slog.String("airport", airport),
		slog.Float64("delay_minutes", minutes),
		slog.Int("cascade_affected_flights", result.CascadeAffectedFlights),
	)
	return s.encode(api.ToStructSimulationResult(result))
}

// ListAirportEconomics returns airport-day rows. Without a date range it returns the latest
// date on record for the airport, or across all airports.
func (s *CascadeService) ListAirportEconomics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := s.query(req)
	if err != nil {
		return nil, err
	}
	if q.Dates.From.IsZero() && q.Dates.To.IsZero() {
		latest, err := s.snapshots.LatestDate(q.Airport)
		if err != nil {
			return nil, s.fail("list airport economics", err)
		}
		q.Dates = models.DateRange{From: latest, To: latest}
	}
	rows, err := s.snapshots.AirportDays(q)
	if err != nil {
		return nil, s.fail("list airport economics", err)
	}
	return s.encode(api.ToStructAirportDays(rows))
}

// ListRouteEconomics returns the costliest routes.
func (s *CascadeService) ListRouteEconomics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := s.query(req)
	if err != nil {
		return nil, err
	}
	rows, err := s.snapshots.Routes(q)
	if err != nil {
		return nil, s.fail("list route economics", err)
	}
	return s.encode(api.ToStructRoutes(rows))
}

// ListVulnerability returns airports in vulnerability rank order.
func (s *CascadeService) ListVulnerability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := s.query(req)
	if err != nil {
		return nil, err
	}
	rows, err := s.snapshots.Vulnerability(q)
	if err != nil {
		return nil, s.fail("list vulnerability", err)
	}
	return s.encode(api.ToStructVulnerability(rows))
}

// GetCascade returns the detected cascade statistics for one airport-day. Without a date it
// returns the airport's latest day.
func (s *CascadeService) GetCascade(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.snapshots == nil {
		return nil, status.Error(codes.FailedPrecondition, "snapshot store not configured")
	}
	airport, date, err := api.FromStructCascadeRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	stats, err := s.snapshots.Cascade(airport, date)
	if err != nil {
		return nil, s.fail("get cascade", err)
	}
	return s.encode(api.ToStructCascade(stats))
}

// PipelineHealth reports the freshness of the published snapshot.
func (s *CascadeService) PipelineHealth(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.snapshots == nil {
		return nil, status.Error(codes.FailedPrecondition, "snapshot store not configured")
	}
	health, err := s.snapshots.Health()
	if err != nil {
		return nil, s.fail("pipeline health", err)
	}
	return s.encode(api.ToStructHealth(health))
}

// LatencyP95 returns the current p95 simulation latency.
func (s *CascadeService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *CascadeService) query(req *structpb.Struct) (models.MartQuery, error) {
	if req == nil {
		return models.MartQuery{}, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.snapshots == nil {
		return models.MartQuery{}, status.Error(codes.FailedPrecondition, "snapshot store not configured")
	}
	q, err := api.FromStructMartQuery(req)
	if err != nil {
		return models.MartQuery{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return q, nil
}

func (s *CascadeService) encode(out *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		s.logger.Error("encode response failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

// fail maps domain errors onto gRPC status codes.
func (s *CascadeService) fail(op string, err error) error {
	switch {
	case errors.Is(err, engine.ErrAirportNotFound):
		if op == "simulate" {
			metrics.ObserveSimulation(metrics.OutcomeNotFound)
		}
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, engine.ErrInvalidDelay):
		metrics.ObserveSimulation(metrics.OutcomeInvalid)
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, store.ErrNoSnapshot):
		return status.Error(codes.FailedPrecondition, "no pipeline run has been published yet")
	default:
		if op == "simulate" {
			metrics.ObserveSimulation(metrics.OutcomeError)
		}
		s.logger.Error(op+" failed", slog.Any("error", err))
		return status.Error(codes.Internal, op+" failed")
	}
}
