package scheduler

import (
	"context"
	"fmt"
	"time"

	"boatbet/metrics"
	"boatbet/models"
	"boatbet/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const (
	JobScheduleSync = "schedule_sync"
	JobSettlement   = "settlement"

	jobTimeout = 2 * time.Minute
)

// SettlementReport is what one settlement run did
type SettlementReport struct {
	ResultsStored int                 `json:"resultsStored"`
	Sweep         *models.SweepResult `json:"sweep"`
}

// Scheduler runs race ingestion and settlement on cron schedules. The same jobs
// back the cron-secret HTTP endpoints.
type Scheduler struct {
	cron       *cron.Cron
	races      service.RaceService
	settlement service.SettlementService
}

// New creates a scheduler. Cron specs include a seconds field.
func New(races service.RaceService, settlement service.SettlementService) *Scheduler {
	logger := cron.PrintfLogger(log.StandardLogger())
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		races:      races,
		settlement: settlement,
	}
}

// Register adds both jobs. An empty spec leaves that job unscheduled.
func (s *Scheduler) Register(scheduleSyncSpec, settlementSpec string) error {
	if scheduleSyncSpec != "" {
		if _, err := s.cron.AddFunc(scheduleSyncSpec, func() {
			s.run(JobScheduleSync, func(ctx context.Context) error {
				_, err := s.SyncSchedule(ctx)
				return err
			})
		}); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", JobScheduleSync, scheduleSyncSpec, err)
		}
	}

	if settlementSpec != "" {
		if _, err := s.cron.AddFunc(settlementSpec, func() {
			s.run(JobSettlement, func(ctx context.Context) error {
				_, err := s.Settle(ctx)
				return err
			})
		}); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", JobSettlement, settlementSpec, err)
		}
	}

	return nil
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	log.WithField("jobs", len(s.cron.Entries())).Info("Scheduler started")
}

// Stop stops scheduling and returns a context that is done once running jobs finish
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// SyncSchedule stores today's race deadlines from the feed
func (s *Scheduler) SyncSchedule(ctx context.Context) (int, error) {
	return s.races.SyncSchedule(ctx)
}

// Settle pulls missing results from the feed and settles every pending prediction.
// A feed failure does not stop the sweep; results entered by hand still settle.
func (s *Scheduler) Settle(ctx context.Context) (*SettlementReport, error) {
	report := &SettlementReport{}

	stored, err := s.races.RefreshResults(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to refresh race results, settling stored results only")
	}
	report.ResultsStored = stored

	sweep, err := s.settlement.EvaluatePending(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to settle pending predictions: %w", err)
	}
	report.Sweep = sweep

	return report, nil
}

func (s *Scheduler) run(job string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	fields := log.Fields{
		"job":      job,
		"duration": time.Since(start).String(),
	}
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(job, "error").Inc()
		log.WithFields(fields).WithError(err).Error("Scheduled job failed")
		return
	}
	metrics.JobRunsTotal.WithLabelValues(job, "ok").Inc()
	log.WithFields(fields).Info("Scheduled job finished")
}
