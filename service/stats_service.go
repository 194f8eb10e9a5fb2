package service

import (
	"context"
	"fmt"
	"sort"

	"boatbet/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// statsService implements the StatsService interface
type statsService struct {
	uowFactory UnitOfWorkFactory
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory) StatsService {
	return &statsService{
		uowFactory: uowFactory,
	}
}

// ComputeStats returns the author's investment, refunds and rates
func (s *statsService) ComputeStats(ctx context.Context, userID string) (*models.UserStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return s.computeStats(ctx, uow, userID)
}

func (s *statsService) computeStats(ctx context.Context, uow UnitOfWork, userID string) (*models.UserStats, error) {
	predictions, err := uow.PredictionRepository().GetByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get predictions for user %s: %w", userID, err)
	}

	stats := &models.UserStats{
		UserID:           userID,
		TotalPredictions: len(predictions),
	}

	for _, p := range predictions {
		// Investment counts every prediction, settled or not
		formations, err := p.ParseFormations()
		if err != nil {
			log.WithFields(log.Fields{
				"predictionId": p.ID,
				"error":        err,
			}).Warn("Excluding unreadable formations from investment")
		} else {
			stats.TotalInvestment += models.TotalStake(formations)
		}

		if !p.ResultChecked {
			continue
		}
		stats.CheckedCount++
		stats.TotalRefund += p.RefundAmount
		if p.IsHit {
			stats.HitCount++
		}
	}

	stats.RecoveryRate = percentage(stats.TotalRefund, stats.TotalInvestment)
	stats.HitRate = percentage(int64(stats.HitCount), int64(stats.CheckedCount))

	return stats, nil
}

// Ranking returns authors ordered by recovery rate, then hit count
func (s *statsService) Ranking(ctx context.Context, limit int) ([]*models.RankingEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	authorIDs, err := uow.PredictionRepository().GetAuthorIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get authors: %w", err)
	}

	users, err := uow.UserRepository().GetByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get authors: %w", err)
	}

	entries := make([]*models.RankingEntry, 0, len(users))
	for _, user := range users {
		stats, err := s.computeStats(ctx, uow, user.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &models.RankingEntry{User: user, Stats: stats})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Stats, entries[j].Stats
		if a.RecoveryRate != b.RecoveryRate {
			return a.RecoveryRate > b.RecoveryRate
		}
		if a.HitCount != b.HitCount {
			return a.HitCount > b.HitCount
		}
		return entries[i].User.ID < entries[j].User.ID
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i, entry := range entries {
		entry.Rank = i + 1
	}

	return entries, nil
}

// percentage returns part/whole*100 unrounded, or 0 for an empty whole
func percentage(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(whole)).
		InexactFloat64()
}
