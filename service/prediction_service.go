package service

import (
	"context"
	"fmt"
	"strings"

	"boatbet/events"
	"boatbet/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	maxRaceNumber = 12

	defaultListLimit = 50
	maxListLimit     = 200
)

type predictionService struct {
	uowFactory UnitOfWorkFactory
	carts      CartStore
	now        Clock
}

// NewPredictionService creates a new prediction service
func NewPredictionService(uowFactory UnitOfWorkFactory, carts CartStore) PredictionService {
	return newPredictionService(uowFactory, carts, systemClock)
}

func newPredictionService(uowFactory UnitOfWorkFactory, carts CartStore, now Clock) *predictionService {
	return &predictionService{
		uowFactory: uowFactory,
		carts:      carts,
		now:        now,
	}
}

// Publish validates the request and stores an immutable copy of its formations
func (s *predictionService) Publish(ctx context.Context, authorID string, req *models.PublishRequest) (*models.PublishResult, error) {
	if authorID == "" {
		return publishFailure(CodeUnauthorized, ""), nil
	}
	if msg := validatePublishRequest(req); msg != "" {
		return publishFailure(CodeInvalidRequest, msg), nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	author, err := uow.UserRepository().GetByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get author: %w", err)
	}
	if author == nil {
		return publishFailure(CodeNotFound, "ユーザーが見つかりません"), nil
	}

	race := models.NewRaceKey(req.PlaceName, req.RaceNumber, req.RaceDate)
	schedule, err := uow.RaceRepository().GetSchedule(ctx, race)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule for %s: %w", race, err)
	}
	if schedule == nil {
		return publishFailure(CodeNotFound, "レース情報が見つかりません"), nil
	}
	if !s.now().Before(schedule.DeadlineAt) {
		return publishFailure(CodeDeadlinePassed, ""), nil
	}

	formations := models.CloneFormations(req.Formations)
	for i := range formations {
		if formations[i].ID == "" {
			formations[i].ID = uuid.NewString()
		}
	}

	prediction := &models.Prediction{
		ID:         uuid.NewString(),
		AuthorID:   authorID,
		Title:      strings.TrimSpace(req.Title),
		Commentary: req.Commentary,
		PlaceName:  race.PlaceName,
		RaceNumber: race.RaceNumber,
		RaceDate:   race.RaceDate,
		DeadlineAt: schedule.DeadlineAt,
		Price:      req.Price,
		IsPrivate:  req.IsPrivate,
	}
	if err := prediction.SetFormations(formations); err != nil {
		return nil, err
	}

	if err := uow.PredictionRepository().Create(ctx, prediction); err != nil {
		return nil, fmt.Errorf("failed to create prediction: %w", err)
	}

	uow.EventBus().Publish(events.PredictionPublishedEvent{
		PredictionID: prediction.ID,
		AuthorID:     authorID,
		Race:         race,
		Price:        prediction.Price,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"predictionId": prediction.ID,
		"authorId":     authorID,
		"raceKey":      race.String(),
	}).Info("Prediction published")

	return &models.PublishResult{Success: true, Prediction: prediction}, nil
}

// PublishCart publishes the formations in the author's cart and clears it on success
func (s *predictionService) PublishCart(ctx context.Context, authorID string, req *models.PublishRequest) (*models.PublishResult, error) {
	if authorID == "" {
		return publishFailure(CodeUnauthorized, ""), nil
	}

	cart, err := s.carts.Load(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart.IsEmpty() {
		return publishFailure(CodeInvalidRequest, "カートが空です"), nil
	}

	withCart := *req
	withCart.Formations = cart.Snapshot()

	result, err := s.Publish(ctx, authorID, &withCart)
	if err != nil || !result.Success {
		return result, err
	}

	if err := s.carts.Delete(ctx, authorID); err != nil {
		log.WithFields(log.Fields{
			"authorId": authorID,
			"error":    err,
		}).Warn("Failed to clear cart after publishing")
	}
	return result, nil
}

// Get returns the prediction with formations only when the viewer has access to them
func (s *predictionService) Get(ctx context.Context, id string, viewerID string) (*models.PredictionView, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	prediction, err := uow.PredictionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	if prediction == nil || (prediction.IsPrivate && !prediction.IsAuthor(viewerID)) {
		return nil, fmt.Errorf("prediction %s: %w", id, models.ErrNotFound)
	}

	unlocked := s.openTo(prediction, viewerID)
	if !unlocked && viewerID != "" {
		unlocked, err = uow.TransactionRepository().HasPurchase(ctx, viewerID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check purchase: %w", err)
		}
	}
	return newPredictionView(prediction, unlocked), nil
}

// List returns the newest non-private predictions
func (s *predictionService) List(ctx context.Context, viewerID string, limit int) ([]*models.PredictionView, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	predictions, err := uow.PredictionRepository().ListPublic(ctx, clampListLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	return s.viewsFor(ctx, uow, predictions, viewerID)
}

// Timeline returns the newest non-private predictions of followed authors
func (s *predictionService) Timeline(ctx context.Context, viewerID string, limit int) ([]*models.PredictionView, error) {
	if viewerID == "" {
		return nil, fmt.Errorf("timeline: %w", models.ErrUnauthorized)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	following, err := uow.FollowRepository().GetFollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get follows: %w", err)
	}
	if len(following) == 0 {
		return []*models.PredictionView{}, nil
	}

	predictions, err := uow.PredictionRepository().ListPublicByAuthors(ctx, following, clampListLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline: %w", err)
	}
	return s.viewsFor(ctx, uow, predictions, viewerID)
}

// ListByAuthor returns the author's predictions, newest first. Private ones are
// only listed for the author.
func (s *predictionService) ListByAuthor(ctx context.Context, authorID, viewerID string) ([]*models.PredictionView, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	author, err := uow.UserRepository().GetByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get author: %w", err)
	}
	if author == nil {
		return nil, fmt.Errorf("user %s: %w", authorID, models.ErrNotFound)
	}

	predictions, err := uow.PredictionRepository().GetByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions of %s: %w", authorID, err)
	}

	visible := predictions[:0]
	for _, p := range predictions {
		if !p.IsPrivate || p.IsAuthor(viewerID) {
			visible = append(visible, p)
		}
	}
	return s.viewsFor(ctx, uow, visible, viewerID)
}

// ListPurchased returns what the user bought, most recent purchase first
func (s *predictionService) ListPurchased(ctx context.Context, userID string) ([]*models.PredictionView, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ids, err := uow.TransactionRepository().GetPurchasedPredictionIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchases: %w", err)
	}
	if len(ids) == 0 {
		return []*models.PredictionView{}, nil
	}

	predictions, err := uow.PredictionRepository().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchased predictions: %w", err)
	}
	byID := make(map[string]*models.Prediction, len(predictions))
	for _, p := range predictions {
		byID[p.ID] = p
	}

	views := make([]*models.PredictionView, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			views = append(views, newPredictionView(p, true))
		}
	}
	return views, nil
}

// openTo reports whether the viewer can read the formations without a purchase
func (s *predictionService) openTo(p *models.Prediction, viewerID string) bool {
	return p.IsAuthor(viewerID) || p.IsFree() || p.IsPastDeadline(s.now())
}

// viewsFor builds list views, looking up the viewer's purchases once for the whole page
func (s *predictionService) viewsFor(ctx context.Context, uow UnitOfWork, predictions []*models.Prediction, viewerID string) ([]*models.PredictionView, error) {
	purchased := map[string]bool{}
	if viewerID != "" {
		ids, err := uow.TransactionRepository().GetPurchasedPredictionIDs(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("failed to get purchases: %w", err)
		}
		for _, id := range ids {
			purchased[id] = true
		}
	}

	views := make([]*models.PredictionView, 0, len(predictions))
	for _, p := range predictions {
		views = append(views, newPredictionView(p, s.openTo(p, viewerID) || purchased[p.ID]))
	}
	return views, nil
}

func newPredictionView(prediction *models.Prediction, unlocked bool) *models.PredictionView {
	view := &models.PredictionView{Prediction: prediction, Unlocked: unlocked}
	formations, err := prediction.ParseFormations()
	if err != nil {
		log.WithFields(log.Fields{
			"predictionId": prediction.ID,
			"error":        err,
		}).Warn("Prediction has unreadable formations")
		return view
	}

	view.TotalStake = models.TotalStake(formations)
	if unlocked {
		view.Formations = formations
	}
	return view
}

func clampListLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}

// validatePublishRequest returns a user-facing message for the first problem found
func validatePublishRequest(req *models.PublishRequest) string {
	if req == nil || len(req.Formations) == 0 {
		return "買い目がありません"
	}
	if req.Price < 0 {
		return "価格は0以上で指定してください"
	}
	if !models.IsKnownVenue(req.PlaceName) {
		return "レース場が正しくありません"
	}
	if req.RaceNumber < 1 || req.RaceNumber > maxRaceNumber {
		return "レース番号が正しくありません"
	}
	if req.RaceDate.IsZero() {
		return "開催日が正しくありません"
	}

	for _, f := range req.Formations {
		if !f.BetType.IsValid() {
			return "券種が正しくありません"
		}
		if len(f.Combinations) == 0 {
			return "組み合わせのない買い目があります"
		}
		seen := make(map[string]bool, len(f.Combinations))
		for _, c := range f.Combinations {
			if !models.ValidStake(c.Stake) {
				return fmt.Sprintf("金額は0以上%d以下で指定してください", models.MaxStake)
			}
			id, err := models.NormalizeFeedCombination(f.BetType, c.ID)
			if err != nil || id != c.ID || id != models.CanonicalCombinationID(f.BetType, c.Numbers) {
				return "組み合わせが正しくありません"
			}
			if seen[id] {
				return "同じ組み合わせが重複しています"
			}
			seen[id] = true
		}
	}
	return ""
}
