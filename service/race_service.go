package service

import (
	"context"
	"fmt"

	"boatbet/events"
	"boatbet/models"

	log "github.com/sirupsen/logrus"
)

// AdminChecker decides who may enter results by hand
type AdminChecker interface {
	IsAdmin(userID string) bool
}

type raceService struct {
	uowFactory UnitOfWorkFactory
	feed       RaceFeed
	settlement SettlementService
	admins     AdminChecker
	now        Clock
}

// NewRaceService creates a new race service
func NewRaceService(uowFactory UnitOfWorkFactory, feed RaceFeed, settlement SettlementService, admins AdminChecker) RaceService {
	return newRaceService(uowFactory, feed, settlement, admins, systemClock)
}

func newRaceService(uowFactory UnitOfWorkFactory, feed RaceFeed, settlement SettlementService, admins AdminChecker, now Clock) *raceService {
	return &raceService{
		uowFactory: uowFactory,
		feed:       feed,
		settlement: settlement,
		admins:     admins,
		now:        now,
	}
}

// SyncSchedule upserts today's schedules from the feed
func (s *raceService) SyncSchedule(ctx context.Context) (int, error) {
	schedules, err := s.feed.FetchSchedules(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch schedules: %w", err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	for _, schedule := range schedules {
		if err := uow.RaceRepository().UpsertSchedule(ctx, schedule); err != nil {
			return 0, fmt.Errorf("failed to store schedule for %s: %w", schedule.Key(), err)
		}
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("count", len(schedules)).Info("Race schedules synced")
	return len(schedules), nil
}

// RefreshResults stores feed results for today's races that have unsettled
// past-deadline predictions but no stored result yet
func (s *raceService) RefreshResults(ctx context.Context) (int, error) {
	waiting, err := s.racesAwaitingResults(ctx)
	if err != nil {
		return 0, err
	}
	if len(waiting) == 0 {
		return 0, nil
	}

	results, err := s.feed.FetchResults(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch results: %w", err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stored := 0
	for _, result := range results {
		key := result.Key()
		if !waiting[key] {
			continue
		}
		if err := uow.RaceRepository().UpsertResult(ctx, result); err != nil {
			return 0, fmt.Errorf("failed to store result for %s: %w", key, err)
		}
		uow.EventBus().Publish(events.RaceResultRecordedEvent{Race: key, Source: "feed"})
		stored++
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"waiting": len(waiting),
		"stored":  stored,
	}).Info("Race results refreshed")
	return stored, nil
}

func (s *raceService) racesAwaitingResults(ctx context.Context) (map[models.RaceKey]bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := s.now()
	pending, err := uow.PredictionRepository().GetPendingPastDeadline(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending predictions: %w", err)
	}

	// The feed only publishes today's results
	today := RaceDayOf(now)
	waiting := make(map[models.RaceKey]bool)
	for _, race := range groupByRace(pending) {
		if !race.RaceDate.Equal(today) {
			continue
		}
		result, err := uow.RaceRepository().GetResult(ctx, race)
		if err != nil {
			log.WithFields(log.Fields{
				"raceKey": race.String(),
				"error":   err,
			}).Warn("Failed to read stored result, refetching")
		}
		if result == nil {
			waiting[race] = true
		}
	}
	return waiting, nil
}

// SubmitResult stores an admin-entered result and settles the race right away
func (s *raceService) SubmitResult(ctx context.Context, actorID string, result *models.RaceResult) (*models.BatchResult, error) {
	if s.admins == nil || !s.admins.IsAdmin(actorID) {
		return nil, fmt.Errorf("user %s cannot submit results: %w", actorID, models.ErrUnauthorized)
	}
	if err := normalizeResult(result); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.RaceRepository().UpsertResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to store result: %w", err)
	}
	uow.EventBus().Publish(events.RaceResultRecordedEvent{Race: result.Key(), Source: "manual"})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"raceKey": result.Key().String(),
		"actorId": actorID,
	}).Info("Race result submitted")

	return s.settlement.EvaluateRace(ctx, result.Key())
}

// normalizeResult validates a hand-entered result and rewrites payout combinations canonically
func normalizeResult(result *models.RaceResult) error {
	if result == nil {
		return fmt.Errorf("%w: missing result", ErrInvalidRequest)
	}
	if !models.IsKnownVenue(result.PlaceName) {
		return fmt.Errorf("%w: unknown venue %q", ErrInvalidRequest, result.PlaceName)
	}
	if result.RaceNumber < 1 || result.RaceNumber > maxRaceNumber {
		return fmt.Errorf("%w: race number %d", ErrInvalidRequest, result.RaceNumber)
	}
	if result.RaceDate.IsZero() {
		return fmt.Errorf("%w: missing race date", ErrInvalidRequest)
	}

	places := []int{result.FirstPlace, result.SecondPlace, result.ThirdPlace}
	seen := make(map[int]bool, len(places))
	for _, p := range places {
		if p < models.MinBoatNumber || p > models.MaxBoatNumber || seen[p] {
			return fmt.Errorf("%w: invalid finishing order %v", ErrInvalidRequest, places)
		}
		seen[p] = true
	}

	for i, refund := range result.Refunds {
		if refund.Amount < 0 {
			return fmt.Errorf("%w: negative payout for %s %s", ErrInvalidRequest, refund.Type, refund.Numbers)
		}
		id, err := models.NormalizeFeedCombination(refund.Type, refund.Numbers)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		result.Refunds[i].Numbers = id
	}

	result.RaceDate = models.RaceDay(result.RaceDate)
	return nil
}
