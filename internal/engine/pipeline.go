package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/skydelay/cascade-engine/internal/models"
)

// Options carries the tunables of a pipeline run.
type Options struct {
	Economics       EconomicConfig
	Cascade         CascadeConfig
	Weights         ScoringWeights
	MinRouteFlights int
	TrendThreshold  float64
	Workers         int
}

// DefaultOptions returns the reference parameter set.
func DefaultOptions() Options {
	return Options{
		Economics:       DefaultEconomicConfig(),
		Cascade:         DefaultCascadeConfig(),
		Weights:         DefaultScoringWeights(),
		MinRouteFlights: DefaultMinRouteFlights,
		TrendThreshold:  DefaultTrendThreshold,
		Workers:         4,
	}
}

// Pipeline turns a batch of flight records into a mart snapshot.
type Pipeline struct {
	logger     *slog.Logger
	economics  *EconomicModel
	aggregator *Aggregator
	rolling    *RollingWindow
	detector   *CascadeDetector
	scorer     *Scorer
	workers    int
	now        func() time.Time
}

// NewPipeline constructs a new pipeline.
func NewPipeline(logger *slog.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	economics := NewEconomicModel(opts.Economics)

	return &Pipeline{
		logger:     logger,
		economics:  economics,
		aggregator: NewAggregator(economics, opts.MinRouteFlights),
		rolling:    NewRollingWindow(opts.TrendThreshold, opts.Workers),
		detector:   NewCascadeDetector(opts.Cascade, economics),
		scorer:     NewScorer(opts.Weights),
		workers:    opts.Workers,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Economics exposes the model the pipeline prices with, so simulations share its constants.
func (p *Pipeline) Economics() *EconomicModel {
	return p.economics
}

// Run executes every stage in dependency order. A run either returns a complete snapshot or
// an error; partial results are never returned.
func (p *Pipeline) Run(ctx context.Context, records []models.FlightRecord) (*models.Snapshot, error) {
	runID := uuid.NewString()
	logger := p.logger.With(slog.String("run_id", runID))

	flights, dropped := ClassifyBatch(records)
	if dropped > 0 {
		logger.Warn("dropped malformed flight records", slog.Int("dropped", dropped))
	}
	logger.Info("stage complete", slog.String("stage", "classify"), slog.Int("rows", len(flights)))

	var (
		days        []models.AirportDayMetric
		routes      []models.RouteMetric
		cascades    []models.CascadeStats
		cascadeDays []models.CascadeStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		days = p.aggregator.AggregateAirportDays(flights)
		if err := p.rolling.Apply(gctx, days); err != nil {
			return fmt.Errorf("rolling windows: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		routes = p.aggregator.AggregateRoutes(flights)
		return nil
	})
	g.Go(func() error {
		var err error
		cascades, err = p.detector.DetectAll(gctx, flights, p.workers)
		if err != nil {
			return fmt.Errorf("detect cascades: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cascadeDays, err = p.detector.DetectDays(gctx, flights, p.workers)
		if err != nil {
			return fmt.Errorf("detect daily cascades: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("stage complete", slog.String("stage", models.TableAirportDays), slog.Int("rows", len(days)))
	logger.Info("stage complete", slog.String("stage", models.TableRoutes), slog.Int("rows", len(routes)))
	logger.Info("stage complete", slog.String("stage", "cascades"), slog.Int("rows", len(cascades)))
	logger.Info("stage complete", slog.String("stage", "cascade_days"), slog.Int("rows", len(cascadeDays)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores := p.scorer.Score(days, cascades)
	logger.Info("stage complete", slog.String("stage", models.TableVulnerability), slog.Int("rows", len(scores)))

	return &models.Snapshot{
		RunID:         runID,
		GeneratedAt:   p.now(),
		AirportDays:   days,
		Routes:        routes,
		Vulnerability: scores,
		Cascades:      cascades,
		CascadeDays:   cascadeDays,
		Dropped:       dropped,
	}, nil
}
