// Package classifier calls the external player-status model and falls back
// to a deterministic program when it is slow, unreachable or incomplete.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"backend-optikick/internal/logging"

	"github.com/phuslu/log"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	fallbackStatus  = "Optimal"
	defaultTimeout  = 30 * time.Second
	riskScore       = 70
	lowReadiness    = 30
	maxErrorPreview = 200
)

// Scores are the derived values of a metric sample the model consumes.
type Scores struct {
	Fatigue    float64 `json:"fatigue_score"`
	InjuryRisk float64 `json:"injury_risk"`
	Readiness  float64 `json:"readiness_score"`
}

type Result struct {
	Status    string   `json:"status"`
	FocusArea string   `json:"focus_area"`
	Exercises []string `json:"training_program"`
	Fallback  bool     `json:"-"`
}

type Client struct {
	httpClient *http.Client
	url        string
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewClient builds a client bounded by timeout and, when requestsPerMinute
// is positive, by a token bucket.
func NewClient(url string, timeout time.Duration, requestsPerMinute int, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60.0)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logging.OrDiscard(logger),
	}
}

// Classify never fails: any transport error, non-2xx answer or response
// missing a focus area or program yields Fallback(s).
func (c *Client) Classify(ctx context.Context, s Scores) Result {
	res, err := c.call(ctx, s)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", c.url).Msg("classifier unavailable, using fallback program")
		return Fallback(s)
	}
	return res
}

func (c *Client) call(ctx context.Context, s Scores) (Result, error) {
	if c.url == "" {
		return Result{}, fmt.Errorf("classifier url not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.httpClient.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("classifier returned %d: %s", resp.StatusCode, truncate(body, maxErrorPreview))
	}
	if !gjson.ValidBytes(body) {
		return Result{}, fmt.Errorf("classifier returned invalid json")
	}

	res := Result{
		Status:    gjson.GetBytes(body, "Predicted Status").String(),
		FocusArea: gjson.GetBytes(body, "Focus Area").String(),
		Exercises: exercises(gjson.GetBytes(body, "Training Program")),
	}
	if res.FocusArea == "" || len(res.Exercises) == 0 {
		return Result{}, fmt.Errorf("classifier response missing focus area or program")
	}
	if res.Status == "" {
		res.Status = fallbackStatus
	}
	return res, nil
}

func exercises(v gjson.Result) []string {
	if v.IsArray() {
		var out []string
		for _, item := range v.Array() {
			if s := item.String(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := v.String(); s != "" {
		return []string{s}
	}
	return nil
}

// Fallback is the deterministic program used when the model cannot answer.
func Fallback(s Scores) Result {
	focus := "General Fitness"
	switch {
	case s.Fatigue > riskScore:
		focus = "Recovery and Rest"
	case s.InjuryRisk > riskScore:
		focus = "Injury Prevention"
	case s.Readiness < lowReadiness:
		focus = "Low Intensity Training"
	}
	return Result{
		Status:    fallbackStatus,
		FocusArea: focus,
		Exercises: []string{
			"Warm-up: 10 minutes light cardio",
			"Main session: 30 minutes moderate intensity training",
			"Cool-down: 10 minutes stretching",
			"Focus on: " + focus,
		},
		Fallback: true,
	}
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
