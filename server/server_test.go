package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"boatbet/models"
	"boatbet/scheduler"
	"boatbet/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testCronSecret = "cron-secret"

type mockJobs struct {
	mock.Mock
}

func (m *mockJobs) SyncSchedule(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockJobs) Settle(ctx context.Context) (*scheduler.SettlementReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scheduler.SettlementReport), args.Error(1)
}

type testServer struct {
	handler       http.Handler
	users         *service.MockUserService
	carts         *service.MockCartService
	predictions   *service.MockPredictionService
	ledger        *service.MockLedgerService
	settlement    *service.MockSettlementService
	races         *service.MockRaceService
	stats         *service.MockStatsService
	notifications *service.MockNotificationService
	social        *service.MockSocialService
	admins        *service.MockAdminChecker
	jobs          *mockJobs
}

func newTestServer(health HealthFunc) *testServer {
	gin.SetMode(gin.TestMode)
	ts := &testServer{
		users:         new(service.MockUserService),
		carts:         new(service.MockCartService),
		predictions:   new(service.MockPredictionService),
		ledger:        new(service.MockLedgerService),
		settlement:    new(service.MockSettlementService),
		races:         new(service.MockRaceService),
		stats:         new(service.MockStatsService),
		notifications: new(service.MockNotificationService),
		social:        new(service.MockSocialService),
		admins:        new(service.MockAdminChecker),
		jobs:          new(mockJobs),
	}
	ts.handler = New(Services{
		Users:         ts.users,
		Carts:         ts.carts,
		Predictions:   ts.predictions,
		Ledger:        ts.ledger,
		Settlement:    ts.settlement,
		Races:         ts.races,
		Stats:         ts.stats,
		Notifications: ts.notifications,
		Social:        ts.social,
	}, ts.jobs, ts.admins, health, testCronSecret).Router()
	return ts
}

// signIn expects the account lookup that every authenticated request makes
func (ts *testServer) signIn(userID string) {
	ts.users.On("GetOrCreate", mock.Anything, userID, userID).Return(&models.User{ID: userID, Points: 1000}, nil)
}

func (ts *testServer) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(headerUserID, userID)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	ok := newTestServer(func(ctx context.Context) error { return nil })
	rec := ok.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newTestServer(func(ctx context.Context) error { return errors.New("connection refused") })
	rec = down.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(nil)
	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestGenerateCombinations(t *testing.T) {
	ts := newTestServer(nil)

	rec := ts.do(t, http.MethodPost, "/api/combinations", "", gin.H{
		"betType":    "2pl",
		"selections": gin.H{"first": []int{1, 2}, "second": []int{1, 2, 3}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "2PL", body["betType"])
	assert.Equal(t, float64(3), body["count"])

	rec = ts.do(t, http.MethodPost, "/api/combinations", "", gin.H{"betType": "4TR"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.CodeInvalidRequest, decode(t, rec)["error"])
}

func TestRequireUser(t *testing.T) {
	ts := newTestServer(nil)

	rec := ts.do(t, http.MethodGet, "/api/cart", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	ts.carts.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestCart_AddFormation(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("u1")

	selections := models.BoatSelection{First: []int{1}, Second: []int{2}, Third: []int{3, 4}}
	cart := &models.Cart{}
	_, err := cart.AddFormation("f1", models.BetTypeTrifecta, selections, 100)
	require.NoError(t, err)
	ts.carts.On("AddFormation", mock.Anything, "u1", models.BetTypeTrifecta, selections, int64(100)).Return(cart, nil)

	rec := ts.do(t, http.MethodPost, "/api/cart/formations", "u1", gin.H{
		"betType":    "3TR",
		"selections": selections,
		"stake":      100,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(200), decode(t, rec)["totalStake"])
	ts.carts.AssertExpectations(t)
}

func TestCart_SetStakeRequiresValue(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("u1")

	rec := ts.do(t, http.MethodPut, "/api/cart/formations/f1/stake", "u1", gin.H{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ts.carts.AssertNotCalled(t, "SetStakeAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCart_UnknownFormation(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("u1")
	ts.carts.On("RemoveFormation", mock.Anything, "u1", "missing").Return(nil, models.ErrNotFound)

	rec := ts.do(t, http.MethodDelete, "/api/cart/formations/missing", "u1", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.CodeNotFound, decode(t, rec)["error"])
}

func TestUnlock_StatusFollowsResult(t *testing.T) {
	tests := []struct {
		name       string
		result     *models.UnlockResult
		wantStatus int
	}{
		{name: "charged", result: &models.UnlockResult{Success: true, Charged: true, PointsAfter: 700}, wantStatus: http.StatusOK},
		{name: "already owned", result: &models.UnlockResult{Success: true}, wantStatus: http.StatusOK},
		{name: "insufficient", result: &models.UnlockResult{Error: service.CodeInsufficientPoints}, wantStatus: http.StatusPaymentRequired},
		{name: "deadline", result: &models.UnlockResult{Error: service.CodeDeadlinePassed}, wantStatus: http.StatusConflict},
		{name: "missing", result: &models.UnlockResult{Error: service.CodeNotFound}, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(nil)
			ts.signIn("buyer")
			ts.ledger.On("Unlock", mock.Anything, "p1", "buyer").Return(tt.result, nil)

			rec := ts.do(t, http.MethodPost, "/api/predictions/p1/unlock", "buyer", nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			ts.ledger.AssertExpectations(t)
		})
	}
}

func TestUnlock_InternalError(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("buyer")
	ts.ledger.On("Unlock", mock.Anything, "p1", "buyer").Return(nil, errors.New("connection reset"))

	rec := ts.do(t, http.MethodPost, "/api/predictions/p1/unlock", "buyer", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, service.CodeInternal, decode(t, rec)["error"])
}

func TestUnlock_MalformedIDIsNotFound(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("buyer")
	ts.ledger.On("Unlock", mock.Anything, "abc", "buyer").
		Return(&models.UnlockResult{Error: service.CodeNotFound, Message: service.ErrorMessage(service.CodeNotFound)}, nil)

	rec := ts.do(t, http.MethodPost, "/api/predictions/abc/unlock", "buyer", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.CodeNotFound, decode(t, rec)["error"])
}

func TestUnlock_SpendingEverythingReportsZeroBalance(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("buyer")
	ts.ledger.On("Unlock", mock.Anything, "p1", "buyer").
		Return(&models.UnlockResult{Success: true, Charged: true, PointsAfter: 0}, nil)

	rec := ts.do(t, http.MethodPost, "/api/predictions/p1/unlock", "buyer", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Contains(t, body, "pointsAfter")
	assert.Equal(t, float64(0), body["pointsAfter"])
}

func TestGetPrediction_AnonymousViewer(t *testing.T) {
	ts := newTestServer(nil)
	view := &models.PredictionView{Prediction: &models.Prediction{ID: "p1", Price: 300}, TotalStake: 200}
	ts.predictions.On("Get", mock.Anything, "p1", "").Return(view, nil)

	rec := ts.do(t, http.MethodGet, "/api/predictions/p1", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["unlocked"])
	ts.users.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishCart(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("author")
	ts.predictions.On("PublishCart", mock.Anything, "author", mock.MatchedBy(func(req *models.PublishRequest) bool {
		return req.PlaceName == "桐生" && req.Price == 300
	})).Return(&models.PublishResult{Success: true, Prediction: &models.Prediction{ID: "p1"}}, nil)

	rec := ts.do(t, http.MethodPost, "/api/cart/publish", "author", gin.H{
		"title":      "本命",
		"placeName":  "桐生",
		"raceNumber": 12,
		"raceDate":   "2026-02-28T00:00:00Z",
		"price":      300,
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	ts.predictions.AssertExpectations(t)
}

func TestEvaluateRace_AdminOnly(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("u1")
	ts.admins.On("IsAdmin", "u1").Return(false)

	rec := ts.do(t, http.MethodPost, "/api/races/evaluate", "u1", gin.H{
		"placeName": "桐生", "raceNumber": 12, "raceDate": "2026-02-28",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	ts.settlement.AssertNotCalled(t, "EvaluateRace", mock.Anything, mock.Anything)
}

func TestEvaluateRace(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("admin")
	ts.admins.On("IsAdmin", "admin").Return(true)

	race := models.NewRaceKey("桐生", 12, models.RaceDay(mustDate(t, "2026-02-28")))
	ts.settlement.On("EvaluateRace", mock.Anything, race).Return(&models.BatchResult{EvaluatedCount: 3, HitCount: 1}, nil)

	rec := ts.do(t, http.MethodPost, "/api/races/evaluate", "admin", gin.H{
		"placeName": "桐生", "raceNumber": 12, "raceDate": "2026-02-28",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec)["evaluatedCount"])

	rec = ts.do(t, http.MethodPost, "/api/races/evaluate", "admin", gin.H{
		"placeName": "桐生", "raceNumber": 12, "raceDate": "28/02/2026",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitResult_Forbidden(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("u1")
	ts.races.On("SubmitResult", mock.Anything, "u1", mock.AnythingOfType("*models.RaceResult")).
		Return(nil, models.ErrUnauthorized)

	rec := ts.do(t, http.MethodPost, "/api/races/results", "u1", gin.H{
		"placeName": "桐生", "raceNumber": 12, "raceDate": "2026-02-28",
		"firstPlace": 1, "secondPlace": 2, "thirdPlace": 3,
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCron_RequiresSecret(t *testing.T) {
	ts := newTestServer(nil)

	rec := ts.do(t, http.MethodPost, "/api/cron/settle", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/cron/settle", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	wrong := httptest.NewRecorder()
	ts.handler.ServeHTTP(wrong, req)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)

	ts.jobs.AssertNotCalled(t, "Settle", mock.Anything)
}

func TestCron_Settle(t *testing.T) {
	ts := newTestServer(nil)
	ts.jobs.On("Settle", mock.Anything).Return(&scheduler.SettlementReport{
		ResultsStored: 1,
		Sweep:         &models.SweepResult{Considered: 2, Evaluated: 2, Hits: 1, Races: 1},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/cron/settle", nil)
	req.Header.Set("Authorization", "Bearer "+testCronSecret)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["resultsStored"])
	ts.jobs.AssertExpectations(t)
}

func TestNotifications(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("author")
	ts.notifications.On("List", mock.Anything, "author", true).Return([]*models.Notification{
		{ID: "n1", UserID: "author", Type: models.NotificationTypeSale},
	}, nil)
	ts.notifications.On("MarkAllRead", mock.Anything, "author").Return(int64(1), nil)

	rec := ts.do(t, http.MethodGet, "/api/notifications?unread=true", "author", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["notifications"], 1)

	rec = ts.do(t, http.MethodPost, "/api/notifications/read", "author", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["updated"])
	ts.notifications.AssertExpectations(t)
}

func TestListPredictions(t *testing.T) {
	ts := newTestServer(nil)
	views := []*models.PredictionView{
		{Prediction: &models.Prediction{ID: "p2"}, TotalStake: 100},
		{Prediction: &models.Prediction{ID: "p1"}, TotalStake: 200},
	}
	ts.predictions.On("List", mock.Anything, "", 20).Return(views, nil)

	rec := ts.do(t, http.MethodGet, "/api/predictions?limit=20", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["predictions"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[0].(map[string]any)["id"])
	ts.predictions.AssertExpectations(t)
}

func TestPurchases(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("buyer")
	ts.predictions.On("ListPurchased", mock.Anything, "buyer").Return([]*models.PredictionView{
		{Prediction: &models.Prediction{ID: "p1"}, Unlocked: true},
	}, nil)

	rec := ts.do(t, http.MethodGet, "/api/me/purchases", "buyer", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["predictions"], 1)
	ts.predictions.AssertExpectations(t)
}

func TestAuthorPredictions_UnknownAuthor(t *testing.T) {
	ts := newTestServer(nil)
	ts.predictions.On("ListByAuthor", mock.Anything, "ghost", "").Return(nil, fmt.Errorf("user ghost: %w", models.ErrNotFound))

	rec := ts.do(t, http.MethodGet, "/api/users/ghost/predictions", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.CodeNotFound, decode(t, rec)["error"])
}

func TestTimeline(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("fan")
	ts.predictions.On("Timeline", mock.Anything, "fan", 0).Return([]*models.PredictionView{}, nil)

	rec := ts.do(t, http.MethodGet, "/api/me/timeline", "fan", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["predictions"])
}

func TestFollow(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("fan")
	ts.social.On("Follow", mock.Anything, "fan", "author").Return(&models.FollowResult{Success: true, IsFollowing: true}, nil)
	ts.social.On("Unfollow", mock.Anything, "fan", "author").Return(&models.FollowResult{Success: true}, nil)

	rec := ts.do(t, http.MethodPut, "/api/users/author/follow", "fan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["isFollowing"])

	rec = ts.do(t, http.MethodDelete, "/api/users/author/follow", "fan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["isFollowing"])
	ts.social.AssertExpectations(t)
}

func TestFollow_Self(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("fan")
	ts.social.On("Follow", mock.Anything, "fan", "fan").Return(nil, fmt.Errorf("%w: cannot follow yourself", service.ErrInvalidRequest))

	rec := ts.do(t, http.MethodPut, "/api/users/fan/follow", "fan", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.CodeInvalidRequest, decode(t, rec)["error"])
}

func TestProfile_HidesBalance(t *testing.T) {
	ts := newTestServer(nil)
	ts.social.On("Profile", mock.Anything, "author", "fan").Return(&models.Profile{ID: "author", Name: "予想家", FollowerCount: 3, IsFollowing: true}, nil)

	rec := ts.do(t, http.MethodGet, "/api/users/author", "fan", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(3), body["followerCount"])
	assert.Equal(t, true, body["isFollowing"])
	assert.NotContains(t, body, "points")
	ts.users.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(nil)
	ts.signIn("author")
	update := models.ProfileUpdate{Name: "予想家", Bio: "桐生専門"}
	ts.users.On("UpdateProfile", mock.Anything, "author", update).Return(&models.User{ID: "author", Name: update.Name, Bio: update.Bio}, nil)

	rec := ts.do(t, http.MethodPut, "/api/me", "author", update)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "桐生専門", decode(t, rec)["bio"])
	ts.users.AssertExpectations(t)
}

func TestUserStats_RoundsRates(t *testing.T) {
	ts := newTestServer(nil)
	ts.stats.On("ComputeStats", mock.Anything, "author").Return(&models.UserStats{
		UserID:       "author",
		RecoveryRate: 1540.0 / 600 * 100,
		HitRate:      100.0 / 3,
	}, nil)

	rec := ts.do(t, http.MethodGet, "/api/users/author/stats", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 256.67, body["recoveryRate"])
	assert.Equal(t, 33.33, body["hitRate"])
}

func TestRanking_RoundsRatesAndKeepsOrder(t *testing.T) {
	ts := newTestServer(nil)
	ts.stats.On("Ranking", mock.Anything, 0).Return([]*models.RankingEntry{
		{Rank: 1, User: &models.User{ID: "a"}, Stats: &models.UserStats{RecoveryRate: 100001.0 / 300000 * 100}},
		{Rank: 2, User: &models.User{ID: "b"}, Stats: &models.UserStats{RecoveryRate: 100000.0 / 300000 * 100}},
	}, nil)

	rec := ts.do(t, http.MethodGet, "/api/ranking", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	ranking := decode(t, rec)["ranking"].([]any)
	require.Len(t, ranking, 2)
	for i, want := range []string{"a", "b"} {
		entry := ranking[i].(map[string]any)
		assert.Equal(t, want, entry["user"].(map[string]any)["id"])
		assert.Equal(t, 33.33, entry["stats"].(map[string]any)["recoveryRate"])
	}
}

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	date, err := time.Parse(raceDateLayout, raw)
	require.NoError(t, err)
	return date
}
