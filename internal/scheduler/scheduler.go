package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/ARedaUni/teloshousemeet/internal/logger"
)

// pipelineRunner is the slice of the pipeline service the scheduler drives
type pipelineRunner interface {
	DiscoverRecordings(ctx context.Context) (int, error)
	ProcessPending(ctx context.Context, limit int) error
}

// DefaultCronSpec discovers and processes recordings every five minutes
const DefaultCronSpec = "0 */5 * * * *"

// processBatchSize bounds how many recordings one scheduler tick works through
const processBatchSize = 5

// Scheduler runs the recording pipeline on a cron cadence
type Scheduler struct {
	cron     *cron.Cron
	pipeline pipelineRunner
	spec     string
}

// NewScheduler creates a scheduler. An empty spec uses the default cadence.
func NewScheduler(pipeline pipelineRunner, spec string) *Scheduler {
	if spec == "" {
		spec = DefaultCronSpec
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		pipeline: pipeline,
		spec:     spec,
	}
}

// Start registers the pipeline job and begins the cron loop
func (s *Scheduler) Start() error {
	logger.Info().Str("spec", s.spec).Msg("starting scheduler")

	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().Msg("scheduler started")

	return nil
}

// RunOnce runs a single discover-and-process cycle. Useful for manual
// triggering and tests.
func (s *Scheduler) RunOnce(ctx context.Context) {
	seen, err := s.pipeline.DiscoverRecordings(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("recording discovery failed")
	} else {
		logger.Debug().Int("files", seen).Msg("recording discovery completed")
	}

	if err := s.pipeline.ProcessPending(ctx, processBatchSize); err != nil {
		logger.Error().Err(err).Msg("recording processing failed")
	}
}

// Stop halts the cron loop, waiting for a running job to finish
func (s *Scheduler) Stop() {
	logger.Info().Msg("stopping scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("scheduler stopped")
}
