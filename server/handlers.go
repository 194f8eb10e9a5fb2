package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"boatbet/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	raceDateLayout = "2006-01-02"

	// Rates are shown with this many decimals
	ratePlaces = 2
)

type combinationsRequest struct {
	BetType    string               `json:"betType"`
	Selections models.BoatSelection `json:"selections"`
}

type formationRequest struct {
	BetType    string               `json:"betType"`
	Selections models.BoatSelection `json:"selections"`
	Stake      int64                `json:"stake"`
}

type stakeRequest struct {
	Stake *int64 `json:"stake"`
}

type raceRequest struct {
	PlaceName  string `json:"placeName"`
	RaceNumber int    `json:"raceNumber"`
	RaceDate   string `json:"raceDate"`
}

type resultRequest struct {
	raceRequest
	FirstPlace  int                  `json:"firstPlace"`
	SecondPlace int                  `json:"secondPlace"`
	ThirdPlace  int                  `json:"thirdPlace"`
	Refunds     []models.RefundEntry `json:"refunds"`
}

type cartResponse struct {
	Formations []models.Formation `json:"formations"`
	TotalStake int64              `json:"totalStake"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func newCartResponse(cart *models.Cart) cartResponse {
	formations := cart.Formations
	if formations == nil {
		formations = []models.Formation{}
	}
	return cartResponse{Formations: formations, TotalStake: cart.TotalStake(), UpdatedAt: cart.UpdatedAt}
}

func (r raceRequest) key() (models.RaceKey, error) {
	date, err := time.Parse(raceDateLayout, r.RaceDate)
	if err != nil {
		return models.RaceKey{}, fmt.Errorf("raceDate must be YYYY-MM-DD: %w", err)
	}
	return models.NewRaceKey(r.PlaceName, r.RaceNumber, date), nil
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Server) handleGenerateCombinations(c *gin.Context) {
	var req combinationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	betType, err := models.ParseBetType(req.BetType)
	if err != nil {
		badRequest(c, err)
		return
	}

	combinations := models.GenerateCombinations(betType, req.Selections)
	c.JSON(http.StatusOK, gin.H{
		"betType":      betType,
		"combinations": combinations,
		"count":        len(combinations),
	})
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.services.Users.Get(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := s.services.Users.UpdateProfile(c.Request.Context(), c.GetString(ctxUserID), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handlePurchases(c *gin.Context) {
	views, err := s.services.Predictions.ListPurchased(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": views})
}

func (s *Server) handleTimeline(c *gin.Context) {
	views, err := s.services.Predictions.Timeline(c.Request.Context(), c.GetString(ctxUserID), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": views})
}

func (s *Server) handleProfile(c *gin.Context) {
	profile, err := s.services.Social.Profile(c.Request.Context(), c.Param("id"), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleAuthorPredictions(c *gin.Context) {
	views, err := s.services.Predictions.ListByAuthor(c.Request.Context(), c.Param("id"), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": views})
}

func (s *Server) handleFollow(c *gin.Context) {
	result, err := s.services.Social.Follow(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleUnfollow(c *gin.Context) {
	result, err := s.services.Social.Unfollow(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleTransactions(c *gin.Context) {
	history, err := s.services.Ledger.History(c.Request.Context(), c.GetString(ctxUserID), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": history})
}

func (s *Server) handleGetCart(c *gin.Context) {
	cart, err := s.services.Carts.Get(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

func (s *Server) handleClearCart(c *gin.Context) {
	if err := s.services.Carts.Clear(c.Request.Context(), c.GetString(ctxUserID)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAddFormation(c *gin.Context) {
	var req formationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	betType, err := models.ParseBetType(req.BetType)
	if err != nil {
		badRequest(c, err)
		return
	}

	cart, err := s.services.Carts.AddFormation(c.Request.Context(), c.GetString(ctxUserID), betType, req.Selections, req.Stake)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

func (s *Server) handleRemoveFormation(c *gin.Context) {
	cart, err := s.services.Carts.RemoveFormation(c.Request.Context(), c.GetString(ctxUserID), c.Param("formationId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

func bindStake(c *gin.Context) (int64, bool) {
	var req stakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return 0, false
	}
	if req.Stake == nil {
		badRequest(c, errors.New("stake is required"))
		return 0, false
	}
	return *req.Stake, true
}

func (s *Server) handleSetStakeAll(c *gin.Context) {
	stake, ok := bindStake(c)
	if !ok {
		return
	}
	cart, err := s.services.Carts.SetStakeAll(c.Request.Context(), c.GetString(ctxUserID), c.Param("formationId"), stake)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

func (s *Server) handleSetStakeOne(c *gin.Context) {
	stake, ok := bindStake(c)
	if !ok {
		return
	}
	cart, err := s.services.Carts.SetStakeOne(c.Request.Context(), c.GetString(ctxUserID),
		c.Param("formationId"), c.Param("combinationId"), stake)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

func (s *Server) handleRemoveCombination(c *gin.Context) {
	cart, err := s.services.Carts.RemoveCombination(c.Request.Context(), c.GetString(ctxUserID),
		c.Param("formationId"), c.Param("combinationId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

func (s *Server) handlePublish(c *gin.Context) {
	var req models.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := s.services.Predictions.Publish(c.Request.Context(), c.GetString(ctxUserID), &req)
	s.respondPublish(c, result, err)
}

func (s *Server) handlePublishCart(c *gin.Context) {
	var req models.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := s.services.Predictions.PublishCart(c.Request.Context(), c.GetString(ctxUserID), &req)
	s.respondPublish(c, result, err)
}

func (s *Server) respondPublish(c *gin.Context, result *models.PublishResult, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	if result.Success {
		c.JSON(http.StatusCreated, result)
		return
	}
	respondResult(c, result.Error, result)
}

func (s *Server) handleListPredictions(c *gin.Context) {
	views, err := s.services.Predictions.List(c.Request.Context(), c.GetString(ctxUserID), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": views})
}

func (s *Server) handleGetPrediction(c *gin.Context) {
	view, err := s.services.Predictions.Get(c.Request.Context(), c.Param("id"), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleUnlock(c *gin.Context) {
	result, err := s.services.Ledger.Unlock(c.Request.Context(), c.Param("id"), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, result.Error, result)
}

func (s *Server) handleEvaluatePrediction(c *gin.Context) {
	outcome, err := s.services.Settlement.EvaluatePrediction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluated": outcome != nil, "result": outcome})
}

func (s *Server) handleEvaluateRace(c *gin.Context) {
	var req raceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	race, err := req.key()
	if err != nil {
		badRequest(c, err)
		return
	}

	batch, err := s.services.Settlement.EvaluateRace(c.Request.Context(), race)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (s *Server) handleSubmitResult(c *gin.Context) {
	var req resultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	race, err := req.key()
	if err != nil {
		badRequest(c, err)
		return
	}

	result := &models.RaceResult{
		PlaceName:   race.PlaceName,
		RaceNumber:  race.RaceNumber,
		RaceDate:    race.RaceDate,
		FirstPlace:  req.FirstPlace,
		SecondPlace: req.SecondPlace,
		ThirdPlace:  req.ThirdPlace,
		Refunds:     req.Refunds,
	}
	batch, err := s.services.Races.SubmitResult(c.Request.Context(), c.GetString(ctxUserID), result)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (s *Server) handleUserStats(c *gin.Context) {
	stats, err := s.services.Stats.ComputeStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roundedStats(stats))
}

func (s *Server) handleRanking(c *gin.Context) {
	entries, err := s.services.Stats.Ranking(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}

	ranking := make([]models.RankingEntry, 0, len(entries))
	for _, entry := range entries {
		ranking = append(ranking, models.RankingEntry{Rank: entry.Rank, User: entry.User, Stats: roundedStats(entry.Stats)})
	}
	c.JSON(http.StatusOK, gin.H{"ranking": ranking})
}

// roundedStats copies the stats with rates rounded to two decimals for display
func roundedStats(stats *models.UserStats) *models.UserStats {
	if stats == nil {
		return nil
	}
	rounded := *stats
	rounded.RecoveryRate = decimal.NewFromFloat(stats.RecoveryRate).Round(ratePlaces).InexactFloat64()
	rounded.HitRate = decimal.NewFromFloat(stats.HitRate).Round(ratePlaces).InexactFloat64()
	return &rounded
}

func (s *Server) handleListNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	list, err := s.services.Notifications.List(c.Request.Context(), c.GetString(ctxUserID), unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (s *Server) handleMarkNotificationsRead(c *gin.Context) {
	updated, err := s.services.Notifications.MarkAllRead(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (s *Server) handleCronSettle(c *gin.Context) {
	report, err := s.jobs.Settle(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleCronSchedule(c *gin.Context) {
	count, err := s.jobs.SyncSchedule(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": count})
}
