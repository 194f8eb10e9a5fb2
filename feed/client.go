package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"boatbet/metrics"
	"boatbet/models"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const (
	programsPath = "/programs/v2/today.json"
	resultsPath  = "/results/v2/today.json"

	// Feed timestamps are Japan wall clock without an offset
	closedAtLayout = "2006-01-02 15:04:05"
	raceDateLayout = "2006-01-02"
)

var jst = time.FixedZone("JST", 9*60*60)

type program struct {
	StadiumNumber int    `json:"race_stadium_number"`
	RaceNumber    int    `json:"race_number"`
	RaceDate      string `json:"race_date"`
	ClosedAt      string `json:"race_closed_at"`
}

type programsResponse struct {
	Programs []program `json:"programs"`
}

type boat struct {
	BoatNumber  int `json:"racer_boat_number"`
	PlaceNumber int `json:"racer_place_number"`
}

type payout struct {
	Combination string `json:"combination"`
	Payout      int64  `json:"payout"`
}

type payouts struct {
	Trifecta []payout `json:"trifecta"`
	Trio     []payout `json:"trio"`
	Exacta   []payout `json:"exacta"`
	Quinella []payout `json:"quinella"`
	Win      []payout `json:"win"`
}

type result struct {
	StadiumNumber int     `json:"race_stadium_number"`
	RaceNumber    int     `json:"race_number"`
	RaceDate      string  `json:"race_date"`
	Boats         []boat  `json:"boats"`
	Payouts       payouts `json:"payouts"`
}

type resultsResponse struct {
	Results []result `json:"results"`
}

// Client reads today's programs and results from the open race data feed
type Client struct {
	http *resty.Client
}

// NewClient creates a feed client for the given base URL
func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "boatbet")

	return &Client{http: client}
}

func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(out).
		Get(path)
	if err != nil {
		metrics.FeedRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}

	metrics.FeedRequestsTotal.WithLabelValues(endpoint, fmt.Sprint(resp.StatusCode())).Inc()
	if resp.IsError() {
		return fmt.Errorf("feed %s returned %s", endpoint, resp.Status())
	}
	return nil
}

// FetchSchedules returns the deadlines of today's races at known venues
func (c *Client) FetchSchedules(ctx context.Context) ([]*models.RaceSchedule, error) {
	var body programsResponse
	if err := c.get(ctx, "programs", programsPath, &body); err != nil {
		return nil, err
	}

	schedules := make([]*models.RaceSchedule, 0, len(body.Programs))
	for _, p := range body.Programs {
		schedule, err := p.toSchedule()
		if err != nil {
			log.WithFields(log.Fields{
				"stadium":    p.StadiumNumber,
				"raceNumber": p.RaceNumber,
				"error":      err,
			}).Warn("Skipping unusable program entry")
			continue
		}
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

// FetchResults returns today's concluded races with their payout tables
func (c *Client) FetchResults(ctx context.Context) ([]*models.RaceResult, error) {
	var body resultsResponse
	if err := c.get(ctx, "results", resultsPath, &body); err != nil {
		return nil, err
	}

	results := make([]*models.RaceResult, 0, len(body.Results))
	for _, r := range body.Results {
		raceResult, err := r.toRaceResult()
		if err != nil {
			log.WithFields(log.Fields{
				"stadium":    r.StadiumNumber,
				"raceNumber": r.RaceNumber,
				"error":      err,
			}).Debug("Skipping result entry")
			continue
		}
		results = append(results, raceResult)
	}
	return results, nil
}

func (p program) toSchedule() (*models.RaceSchedule, error) {
	venue, ok := models.VenueByNumber(p.StadiumNumber)
	if !ok {
		return nil, fmt.Errorf("unknown stadium %d", p.StadiumNumber)
	}
	raceDate, err := time.Parse(raceDateLayout, p.RaceDate)
	if err != nil {
		return nil, fmt.Errorf("invalid race date %q: %w", p.RaceDate, err)
	}
	closedAt, err := time.ParseInLocation(closedAtLayout, p.ClosedAt, jst)
	if err != nil {
		return nil, fmt.Errorf("invalid closing time %q: %w", p.ClosedAt, err)
	}

	return &models.RaceSchedule{
		PlaceName:  venue.Name,
		RaceNumber: p.RaceNumber,
		RaceDate:   models.RaceDay(raceDate),
		DeadlineAt: closedAt.UTC(),
	}, nil
}

func (r result) toRaceResult() (*models.RaceResult, error) {
	venue, ok := models.VenueByNumber(r.StadiumNumber)
	if !ok {
		return nil, fmt.Errorf("unknown stadium %d", r.StadiumNumber)
	}
	raceDate, err := time.Parse(raceDateLayout, r.RaceDate)
	if err != nil {
		return nil, fmt.Errorf("invalid race date %q: %w", r.RaceDate, err)
	}

	places := make(map[int]int, 3)
	for _, b := range r.Boats {
		if b.PlaceNumber >= 1 && b.PlaceNumber <= 3 {
			places[b.PlaceNumber] = b.BoatNumber
		}
	}
	if places[1] == 0 || places[2] == 0 || places[3] == 0 {
		return nil, fmt.Errorf("race not concluded")
	}

	raceResult := &models.RaceResult{
		PlaceName:   venue.Name,
		RaceNumber:  r.RaceNumber,
		RaceDate:    models.RaceDay(raceDate),
		FirstPlace:  places[1],
		SecondPlace: places[2],
		ThirdPlace:  places[3],
		Refunds:     []models.RefundEntry{},
	}

	add := func(betType models.BetType, entries []payout) {
		for _, p := range entries {
			id, err := models.NormalizeFeedCombination(betType, p.Combination)
			if err != nil {
				log.WithFields(log.Fields{
					"raceKey":     raceResult.Key().String(),
					"betType":     betType,
					"combination": p.Combination,
					"error":       err,
				}).Warn("Skipping unreadable payout entry")
				continue
			}
			raceResult.Refunds = append(raceResult.Refunds, models.RefundEntry{Type: betType, Numbers: id, Amount: p.Payout})
		}
	}
	add(models.BetTypeTrifecta, r.Payouts.Trifecta)
	add(models.BetTypeTrio, r.Payouts.Trio)
	add(models.BetTypeExacta, r.Payouts.Exacta)
	add(models.BetTypeQuinella, r.Payouts.Quinella)
	// Only the first win entry is kept
	if len(r.Payouts.Win) > 0 {
		add(models.BetTypeWin, r.Payouts.Win[:1])
	}

	return raceResult, nil
}
