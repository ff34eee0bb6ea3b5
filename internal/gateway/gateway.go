// Package gateway is the HTTP client for the central submission API. Every
// call is fire-once with a bounded timeout; retry policy lives in the
// reconciler, not here.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chromamind-service/internal/domain"
)

const defaultTimeout = 5 * time.Second

type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	SessionID string     `json:"sessionId,omitempty"`
	User      submitUser `json:"user"`
	Answers   []string   `json:"answers"`
}

type submitUser struct {
	Name string `json:"name"`
	Age  int    `json:"age,omitempty"`
}

type submitResponse struct {
	Success bool              `json:"success"`
	Result  domain.Submission `json:"result"`
}

func (g *HTTPGateway) Create(ctx context.Context, input domain.SubmissionInput) (domain.Submission, error) {
	body, err := json.Marshal(submitRequest{
		SessionID: input.SessionID,
		User:      submitUser{Name: input.Name, Age: input.Age},
		Answers:   input.Answers,
	})
	if err != nil {
		return domain.Submission{}, fmt.Errorf("marshal submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/quiz/submit", bytes.NewReader(body))
	if err != nil {
		return domain.Submission{}, fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return domain.Submission{}, err
	}

	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Submission{}, fmt.Errorf("%w: malformed submit response: %v", domain.ErrServerRejected, err)
	}
	return parsed.Result, nil
}

func (g *HTTPGateway) List(ctx context.Context, limit int) ([]domain.Submission, error) {
	url := g.baseURL + "/api/submissions"
	if limit > 0 {
		url += "?limit=" + strconv.Itoa(limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}

	var subs []domain.Submission
	if err := json.NewDecoder(resp.Body).Decode(&subs); err != nil {
		return nil, fmt.Errorf("%w: malformed list response: %v", domain.ErrServerRejected, err)
	}
	return subs, nil
}

func (g *HTTPGateway) DeleteOne(ctx context.Context, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, g.baseURL+"/api/submissions/"+sessionID, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	defer resp.Body.Close()
	return statusError(resp)
}

func (g *HTTPGateway) DeleteAll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, g.baseURL+"/api/submissions", nil)
	if err != nil {
		return fmt.Errorf("build delete-all request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	defer resp.Body.Close()
	return statusError(resp)
}

// statusError maps HTTP status codes onto the domain error taxonomy.
func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode < 400:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode < 500:
		return fmt.Errorf("%w: %s", domain.ErrValidation, errorMessage(resp))
	default:
		return fmt.Errorf("%w: %s", domain.ErrServerRejected, errorMessage(resp))
	}
}

func errorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return resp.Status
	}
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return resp.Status
}
