// Package aiclient implements the HTTP client for the AI adventure
// subsystem: scenario generation and choice evaluation with retry,
// exponential backoff, and trace-id propagation.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"finkid-backend/internal/config"
)

// ErrUnavailable is returned when every attempt failed with a retryable
// error. Callers surface it as ServiceUnavailable.
var ErrUnavailable = errors.New("ai service unavailable")

// APIError is a non-retryable upstream response, surfaced verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ai service returned %d: %s", e.StatusCode, e.Message)
}

// GenerateRequest is the adventure generation payload.
type GenerateRequest struct {
	UserAge          int      `json:"user_age"`
	Allowance        float64  `json:"allowance"`
	GoalContext      string   `json:"goal_context,omitempty"`
	RecentActivities []string `json:"recent_activities,omitempty"`
}

// GenerateResponse is the generated scenario with its trace id.
type GenerateResponse struct {
	Scenario    string   `json:"scenario"`
	Choices     []string `json:"choices"`
	OpikTraceID string   `json:"opik_trace_id"`
}

// EvaluateRequest is the choice evaluation payload.
type EvaluateRequest struct {
	Scenario    string             `json:"scenario"`
	ChoiceIndex int                `json:"choice_index"`
	ChoiceText  string             `json:"choice_text"`
	UserAge     int                `json:"user_age"`
	Amounts     map[string]float64 `json:"amounts,omitempty"`
}

// EvaluateResponse carries the feedback, named scores in [0,1], and the
// evaluation trace id.
type EvaluateResponse struct {
	Feedback    string             `json:"feedback"`
	Scores      map[string]float64 `json:"scores"`
	OpikTraceID string             `json:"opik_trace_id"`
}

// errorBody is the upstream error envelope; only the message is used.
type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Client calls the AI subsystem. It is safe for concurrent use.
type Client struct {
	baseURL    string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
}

// New creates a Client from the AI service configuration.
func New(cfg *config.AIServiceConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Client{
		baseURL:    cfg.URL,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// GenerateAdventure requests a new scenario for the player.
func (c *Client) GenerateAdventure(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	var resp GenerateResponse
	if err := c.doPost(ctx, "/api/adventure/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EvaluateChoice requests the evaluation of a submitted choice.
func (c *Client) EvaluateChoice(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	var resp EvaluateResponse
	if err := c.doPost(ctx, "/api/adventure/evaluate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doPost issues the request up to maxRetries times. An attempt is
// retried iff it failed with a network/timeout error or a 5xx/429
// status; the wait before attempt n+1 is retryDelay * 2^n, aborted when
// the caller's deadline expires.
func (c *Client) doPost(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode ai request: %w", err)
	}

	url := c.baseURL + path
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * (1 << (attempt - 1))
			log.Warn().
				Str("url", url).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Err(lastErr).
				Msg("Retrying AI request")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		var retryable bool
		retryable, lastErr = c.attempt(ctx, url, payload, out)
		if lastErr == nil {
			return nil
		}
		if !retryable {
			return lastErr
		}
	}

	log.Error().Str("url", url).Int("attempts", c.maxRetries).Err(lastErr).Msg("AI request exhausted retries")
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// attempt performs one POST and reports whether a failure is retryable.
func (c *Client) attempt(ctx context.Context, url string, payload []byte, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to build ai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Context cancellation is the caller's deadline, not an
		// upstream failure. Everything else at the transport level
		// (refused connections, timeouts, resets) is retryable.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		return true, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("failed to read ai response: %w", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return true, &APIError{StatusCode: resp.StatusCode, Message: upstreamMessage(raw)}
	}
	if resp.StatusCode != http.StatusOK {
		return false, &APIError{StatusCode: resp.StatusCode, Message: upstreamMessage(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode ai response: %w", err)
	}
	return false, nil
}

func upstreamMessage(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Detail != "" {
			return body.Detail
		}
	}
	if len(raw) > 0 {
		const max = 200
		if len(raw) > max {
			return string(raw[:max])
		}
		return string(raw)
	}
	return "empty response body"
}
