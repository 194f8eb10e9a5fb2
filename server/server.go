package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"boatbet/scheduler"
	"boatbet/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	headerUserID   = "X-User-ID"
	headerUserName = "X-User-Name"

	ctxUserID = "userID"

	healthTimeout = 500 * time.Millisecond
)

// HealthFunc reports whether the backing store is reachable
type HealthFunc func(ctx context.Context) error

// Jobs are the scheduled jobs the cron endpoints trigger
type Jobs interface {
	SyncSchedule(ctx context.Context) (int, error)
	Settle(ctx context.Context) (*scheduler.SettlementReport, error)
}

// Services bundles everything the HTTP handlers call into
type Services struct {
	Users         service.UserService
	Carts         service.CartService
	Predictions   service.PredictionService
	Ledger        service.LedgerService
	Settlement    service.SettlementService
	Races         service.RaceService
	Stats         service.StatsService
	Notifications service.NotificationService
	Social        service.SocialService
}

// Server exposes the services over HTTP
type Server struct {
	services   Services
	jobs       Jobs
	admins     service.AdminChecker
	health     HealthFunc
	cronSecret string
}

// New creates the HTTP server
func New(services Services, jobs Jobs, admins service.AdminChecker, health HealthFunc, cronSecret string) *Server {
	return &Server{
		services:   services,
		jobs:       jobs,
		admins:     admins,
		health:     health,
		cronSecret: cronSecret,
	}
}

// Router builds the gin engine with every route
func (s *Server) Router() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/combinations", s.handleGenerateCombinations)
	api.GET("/predictions", s.identify, s.handleListPredictions)
	api.GET("/predictions/:id", s.identify, s.handleGetPrediction)
	api.GET("/users/:id", s.identify, s.handleProfile)
	api.GET("/users/:id/predictions", s.identify, s.handleAuthorPredictions)
	api.GET("/users/:id/stats", s.handleUserStats)
	api.GET("/ranking", s.handleRanking)

	authed := api.Group("", s.requireUser)
	authed.GET("/me", s.handleMe)
	authed.PUT("/me", s.handleUpdateProfile)
	authed.GET("/me/purchases", s.handlePurchases)
	authed.GET("/me/timeline", s.handleTimeline)
	authed.PUT("/users/:id/follow", s.handleFollow)
	authed.DELETE("/users/:id/follow", s.handleUnfollow)
	authed.GET("/transactions", s.handleTransactions)

	cart := authed.Group("/cart")
	cart.GET("", s.handleGetCart)
	cart.DELETE("", s.handleClearCart)
	cart.POST("/formations", s.handleAddFormation)
	cart.DELETE("/formations/:formationId", s.handleRemoveFormation)
	cart.PUT("/formations/:formationId/stake", s.handleSetStakeAll)
	cart.PUT("/formations/:formationId/combinations/:combinationId/stake", s.handleSetStakeOne)
	cart.DELETE("/formations/:formationId/combinations/:combinationId", s.handleRemoveCombination)
	cart.POST("/publish", s.handlePublishCart)

	authed.POST("/predictions", s.handlePublish)
	authed.POST("/predictions/:id/unlock", s.handleUnlock)
	authed.POST("/predictions/:id/evaluate", s.handleEvaluatePrediction)

	authed.POST("/races/evaluate", s.requireAdmin, s.handleEvaluateRace)
	authed.POST("/races/results", s.handleSubmitResult)

	authed.GET("/notifications", s.handleListNotifications)
	authed.POST("/notifications/read", s.handleMarkNotificationsRead)

	cron := api.Group("/cron", s.requireCronSecret)
	cron.POST("/settle", s.handleCronSettle)
	cron.POST("/schedule", s.handleCronSchedule)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if s.health != nil {
		if err := s.health(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, "unhealthy: %v", err)
			return
		}
	}
	c.String(http.StatusOK, "ok")
}

// identify reads the caller's id when present without requiring it
func (s *Server) identify(c *gin.Context) {
	if userID := strings.TrimSpace(c.GetHeader(headerUserID)); userID != "" {
		c.Set(ctxUserID, userID)
	}
	c.Next()
}

// requireUser rejects anonymous calls and makes sure the caller has an account
func (s *Server) requireUser(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader(headerUserID))
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(service.CodeUnauthorized))
		return
	}

	name := strings.TrimSpace(c.GetHeader(headerUserName))
	if name == "" {
		name = userID
	}
	if _, err := s.services.Users.GetOrCreate(c.Request.Context(), userID, name); err != nil {
		respondError(c, err)
		c.Abort()
		return
	}

	c.Set(ctxUserID, userID)
	c.Next()
}

func (s *Server) requireAdmin(c *gin.Context) {
	if !s.admins.IsAdmin(c.GetString(ctxUserID)) {
		c.AbortWithStatusJSON(http.StatusForbidden, errorBody(service.CodeUnauthorized))
		return
	}
	c.Next()
}

func (s *Server) requireCronSecret(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if s.cronSecret == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(service.CodeUnauthorized))
		return
	}
	c.Next()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if userID := c.GetString(ctxUserID); userID != "" {
			entry = entry.WithField("userID", userID)
		}
		if len(c.Errors) > 0 {
			entry.WithError(errors.New(c.Errors.String())).Warn("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}
