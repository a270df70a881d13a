package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"live-quiz-service/internal/domain"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx reply from the game API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// NotFound reports whether the session (or the addressed player) is gone.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// ActionRequest is the body of PATCH /api/games.
type ActionRequest struct {
	Action        string `json:"action"`
	GamePin       string `json:"gamePin"`
	PlayerName    string `json:"playerName,omitempty"`
	QuestionIndex *int   `json:"questionIndex,omitempty"`
	Answer        *int   `json:"answer,omitempty"`
	TimeSpent     int    `json:"timeSpent,omitempty"`
}

// Client talks to the game session REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type envelope struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error"`
	Session domain.SessionDetail `json:"session"`
}

type statusEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	domain.StatusSummary
}

// Status fetches the cheap polling projection.
func (c *Client) Status(ctx context.Context, pin string) (domain.StatusSummary, error) {
	var out statusEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/games/status?pin="+url.QueryEscape(pin), nil, &out); err != nil {
		return domain.StatusSummary{}, err
	}
	return out.StatusSummary, nil
}

// Session fetches the full session with its quiz.
func (c *Client) Session(ctx context.Context, pin string) (domain.SessionDetail, error) {
	var out envelope
	if err := c.do(ctx, http.MethodGet, "/api/games?pin="+url.QueryEscape(pin), nil, &out); err != nil {
		return domain.SessionDetail{}, err
	}
	return out.Session, nil
}

// Act applies one action and returns the resulting session.
func (c *Client) Act(ctx context.Context, req ActionRequest) (domain.SessionDetail, error) {
	var out envelope
	if err := c.do(ctx, http.MethodPatch, "/api/games", req, &out); err != nil {
		return domain.SessionDetail{}, err
	}
	return out.Session, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		if failure.Error == "" {
			failure.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: failure.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
