package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"boatbet/events"
	"boatbet/metrics"
	"boatbet/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type settlementService struct {
	uowFactory  UnitOfWorkFactory
	now         Clock
	concurrency int
}

// NewSettlementService creates a new settlement service. concurrency bounds how many
// races a sweep settles at once.
func NewSettlementService(uowFactory UnitOfWorkFactory, concurrency int) SettlementService {
	return newSettlementService(uowFactory, systemClock, concurrency)
}

func newSettlementService(uowFactory UnitOfWorkFactory, now Clock, concurrency int) *settlementService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &settlementService{
		uowFactory:  uowFactory,
		now:         now,
		concurrency: concurrency,
	}
}

// EvaluatePrediction settles a single prediction
func (s *settlementService) EvaluatePrediction(ctx context.Context, predictionID string) (*models.EvaluationResult, error) {
	logger := log.WithField("predictionId", predictionID)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	prediction, err := uow.PredictionRepository().GetByID(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	if prediction == nil {
		logger.Debug("Prediction not found for settlement")
		return nil, nil
	}
	if prediction.ResultChecked {
		logger.Debug("Prediction already settled")
		return nil, nil
	}

	result, err := s.loadResult(ctx, uow, prediction.RaceKey())
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	outcome, err := s.settle(ctx, uow, prediction, result)
	if err != nil || outcome == nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return outcome, nil
}

// EvaluateRace settles every unchecked prediction of the race, each in its own transaction
// so one bad record cannot hold back the rest.
func (s *settlementService) EvaluateRace(ctx context.Context, race models.RaceKey) (*models.BatchResult, error) {
	result, predictions, err := s.loadRace(ctx, race)
	if err != nil {
		return nil, err
	}

	batch := &models.BatchResult{}
	if result == nil {
		return batch, nil
	}

	for _, prediction := range predictions {
		outcome, err := s.settleInOwnTransaction(ctx, prediction, result)
		if err != nil {
			log.WithFields(log.Fields{
				"predictionId": prediction.ID,
				"raceKey":      race.String(),
				"error":        err,
			}).Error("Failed to settle prediction")
			batch.SkippedCount++
			continue
		}
		if outcome == nil {
			batch.SkippedCount++
			continue
		}

		batch.EvaluatedCount++
		if outcome.IsHit {
			batch.HitCount++
		}
	}

	log.WithFields(log.Fields{
		"raceKey":   race.String(),
		"evaluated": batch.EvaluatedCount,
		"hits":      batch.HitCount,
		"skipped":   batch.SkippedCount,
	}).Info("Race settled")

	return batch, nil
}

// EvaluatePending settles every race that has past-deadline predictions waiting
func (s *settlementService) EvaluatePending(ctx context.Context) (*models.SweepResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	pending, err := uow.PredictionRepository().GetPendingPastDeadline(ctx, s.now())
	uow.Rollback()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending predictions: %w", err)
	}

	races := groupByRace(pending)
	sweep := &models.SweepResult{Considered: len(pending), Races: len(races)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, race := range races {
		g.Go(func() error {
			batch, err := s.EvaluateRace(gctx, race)
			if err != nil {
				// One race failing must not cancel the others
				log.WithFields(log.Fields{
					"raceKey": race.String(),
					"error":   err,
				}).Error("Failed to settle race")
				return nil
			}

			mu.Lock()
			sweep.Evaluated += batch.EvaluatedCount
			sweep.Hits += batch.HitCount
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return sweep, nil
}

func (s *settlementService) loadRace(ctx context.Context, race models.RaceKey) (*models.RaceResult, []*models.Prediction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := s.loadResult(ctx, uow, race)
	if err != nil || result == nil {
		return nil, nil, err
	}

	predictions, err := uow.PredictionRepository().GetUncheckedByRace(ctx, race)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get predictions for %s: %w", race, err)
	}
	return result, predictions, nil
}

// loadResult returns nil without error when the result is not available yet or unreadable
func (s *settlementService) loadResult(ctx context.Context, uow UnitOfWork, race models.RaceKey) (*models.RaceResult, error) {
	result, err := uow.RaceRepository().GetResult(ctx, race)
	if errors.Is(err, models.ErrParseFailure) {
		log.WithFields(log.Fields{
			"raceKey": race.String(),
			"error":   err,
		}).Warn("Stored race result is unreadable, skipping settlement")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race result for %s: %w", race, err)
	}
	if result == nil {
		log.WithField("raceKey", race.String()).Debug("Race result not available yet")
		return nil, nil
	}
	return result, nil
}

func (s *settlementService) settleInOwnTransaction(ctx context.Context, prediction *models.Prediction, result *models.RaceResult) (*models.EvaluationResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	outcome, err := s.settle(ctx, uow, prediction, result)
	if err != nil || outcome == nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return outcome, nil
}

// settle computes and writes the outcome. A nil outcome means the prediction was skipped.
func (s *settlementService) settle(ctx context.Context, uow UnitOfWork, prediction *models.Prediction, result *models.RaceResult) (*models.EvaluationResult, error) {
	formations, err := prediction.ParseFormations()
	if err != nil {
		log.WithFields(log.Fields{
			"predictionId": prediction.ID,
			"error":        err,
		}).Warn("Skipping prediction with unreadable formations")
		metrics.SettlementsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return nil, nil
	}

	outcome := result.Settle(formations)

	applied, err := uow.PredictionRepository().MarkSettled(ctx, prediction.ID, outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to mark prediction %s settled: %w", prediction.ID, err)
	}
	if !applied {
		log.WithField("predictionId", prediction.ID).Debug("Prediction was settled concurrently")
		return nil, nil
	}

	uow.EventBus().Publish(events.PredictionSettledEvent{
		PredictionID: prediction.ID,
		AuthorID:     prediction.AuthorID,
		Race:         prediction.RaceKey(),
		IsHit:        outcome.IsHit,
		RefundAmount: outcome.RefundAmount,
	})

	label := metrics.OutcomeMiss
	if outcome.IsHit {
		label = metrics.OutcomeHit
	}
	metrics.SettlementsTotal.WithLabelValues(label).Inc()

	return &outcome, nil
}

// groupByRace returns the distinct races of the predictions in a stable order
func groupByRace(predictions []*models.Prediction) []models.RaceKey {
	seen := make(map[models.RaceKey]bool)
	var races []models.RaceKey
	for _, p := range predictions {
		key := p.RaceKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		races = append(races, key)
	}

	sort.Slice(races, func(i, j int) bool {
		a, b := races[i], races[j]
		if !a.RaceDate.Equal(b.RaceDate) {
			return a.RaceDate.Before(b.RaceDate)
		}
		if a.PlaceName != b.PlaceName {
			return a.PlaceName < b.PlaceName
		}
		return a.RaceNumber < b.RaceNumber
	})
	return races
}
