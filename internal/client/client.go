// Package client is an HTTP client for the mediajobs API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/mediajobs/internal/api/dto"
)

// Client calls the mediajobs API
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a new client for the given base URL
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// NotFound reports whether the API answered 404
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// SubmitJob sends POST /api/v1/jobs
func (c *Client) SubmitJob(ctx context.Context, req dto.SubmitJobRequest) (*dto.JobStatusResponse, error) {
	var result dto.JobStatusResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJob sends GET /api/v1/jobs/{id}
func (c *Client) GetJob(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	var result dto.JobStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+url.PathEscape(jobID), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs sends GET /api/v1/jobs
func (c *Client) ListJobs(ctx context.Context, req dto.ListJobsRequest) (*dto.ListJobsResponse, error) {
	query := url.Values{}
	query.Set("requester_id", req.RequesterID)
	if req.State != "" {
		query.Set("state", req.State)
	}
	if req.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(req.PageSize))
	}
	if req.Cursor != "" {
		query.Set("cursor", req.Cursor)
	}

	var result dto.ListJobsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// WaitForJob polls the job until it reaches a terminal state or ctx ends
func (c *Client) WaitForJob(ctx context.Context, jobID string, interval time.Duration) (*dto.JobStatusResponse, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if status.State == "COMPLETED" || status.State == "FAILED" {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ListNotifications sends GET /api/v1/consumers/{id}/notifications
func (c *Client) ListNotifications(ctx context.Context, consumerID string, req dto.ListNotificationsRequest) (*dto.ListNotificationsResponse, error) {
	query := url.Values{}
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Cursor != "" {
		query.Set("cursor", req.Cursor)
	}

	var result dto.ListNotificationsResponse
	if err := c.do(ctx, http.MethodGet, notificationsPath(consumerID), query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UnreadCount sends GET /api/v1/consumers/{id}/notifications/unread-count
func (c *Client) UnreadCount(ctx context.Context, consumerID string) (int, error) {
	var result dto.UnreadCountResponse
	if err := c.do(ctx, http.MethodGet, notificationsPath(consumerID)+"/unread-count", nil, nil, &result); err != nil {
		return 0, err
	}
	return result.UnreadCount, nil
}

// MarkRead sends POST /api/v1/consumers/{id}/notifications/{notification_id}/read
func (c *Client) MarkRead(ctx context.Context, consumerID, notificationID string) error {
	path := notificationsPath(consumerID) + "/" + url.PathEscape(notificationID) + "/read"
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}

// MarkAllRead sends POST /api/v1/consumers/{id}/notifications/read-all
func (c *Client) MarkAllRead(ctx context.Context, consumerID string) (int, error) {
	var result dto.MarkAllReadResponse
	if err := c.do(ctx, http.MethodPost, notificationsPath(consumerID)+"/read-all", nil, nil, &result); err != nil {
		return 0, err
	}
	return result.Marked, nil
}

func notificationsPath(consumerID string) string {
	return "/api/v1/consumers/" + url.PathEscape(consumerID) + "/notifications"
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var errResp dto.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return strings.TrimSpace(string(body))
}
