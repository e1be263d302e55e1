package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/go-job-board/jobs"
)

var _ jobs.Source = (*Client)(nil)

// Client is the akil-backend API client. Bearer tokens are passed per call
// because one client serves every viewer.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Login exchanges credentials for an application token pair. A 2xx answer
// is returned as-is, including success=false bodies; callers decide.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &resp, nil
}

// LinkOAuthUser finds or creates the application user for a verified OAuth identity.
func (c *Client) LinkOAuthUser(ctx context.Context, req LinkRequest) (*LinkResponse, error) {
	var env linkEnvelope
	if err := c.post(ctx, "/google-auth", "", req, &env); err != nil {
		return nil, fmt.Errorf("client.LinkOAuthUser: %w", err)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "account linking rejected"
		}
		return nil, fmt.Errorf("client.LinkOAuthUser: %w", &HTTPError{StatusCode: http.StatusOK, Message: msg})
	}
	if env.Data != nil {
		return env.Data, nil
	}
	return &env.LinkResponse, nil
}

// Signup registers a new account. 409 means the email is already registered.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	if err := c.post(ctx, "/signup", "", req, nil); err != nil {
		return fmt.Errorf("client.Signup: %w", err)
	}
	return nil
}

// VerifyEmail submits the one-time code sent after signup.
func (c *Client) VerifyEmail(ctx context.Context, req VerifyEmailRequest) error {
	if err := c.post(ctx, "/verify-email", "", req, nil); err != nil {
		return fmt.Errorf("client.VerifyEmail: %w", err)
	}
	return nil
}

// AddBookmark bookmarks a job. 409 means it is already bookmarked.
func (c *Client) AddBookmark(ctx context.Context, token, jobID string) error {
	if err := c.doRequest(ctx, http.MethodPost, "/bookmarks/"+url.PathEscape(jobID), token, struct{}{}, nil); err != nil {
		return fmt.Errorf("client.AddBookmark: %w", err)
	}
	return nil
}

// RemoveBookmark removes a job bookmark.
func (c *Client) RemoveBookmark(ctx context.Context, token, jobID string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/bookmarks/"+url.PathEscape(jobID), token, nil, nil); err != nil {
		return fmt.Errorf("client.RemoveBookmark: %w", err)
	}
	return nil
}

// SearchOpportunities returns the job listing. The token is optional; when
// present the backend reports per-viewer bookmark flags.
func (c *Client) SearchOpportunities(ctx context.Context, token string) ([]jobs.JobSummary, error) {
	var env envelope[[]jobs.JobSummary]
	if err := c.get(ctx, "/opportunities/search", token, &env); err != nil {
		return nil, fmt.Errorf("client.SearchOpportunities: %w", err)
	}
	if env.Data == nil {
		return []jobs.JobSummary{}, nil
	}
	return env.Data, nil
}

// GetOpportunity fetches a single job by ID.
func (c *Client) GetOpportunity(ctx context.Context, token, id string) (*jobs.JobSummary, error) {
	var env envelope[*jobs.JobSummary]
	if err := c.get(ctx, "/opportunities/"+url.PathEscape(id), token, &env); err != nil {
		return nil, fmt.Errorf("client.GetOpportunity: %w", err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("client.GetOpportunity: %w", &HTTPError{StatusCode: http.StatusNotFound, Message: "Job not found"})
	}
	return env.Data, nil
}

func (c *Client) get(ctx context.Context, path, token string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, token, nil, out)
}

func (c *Client) post(ctx context.Context, path, token string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, token, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path, token string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		var apiErr struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil {
			if apiErr.Message != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Message}
			}
			if apiErr.Error != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
			}
		}
		return &HTTPError{StatusCode: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
