package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
)

// SecretHeader carries the shared revalidation secret
const SecretHeader = "X-Revalidate-Secret"

// Revalidator asks an external HTTP cache (a frontend's on-demand revalidation
// route) to drop keys.
type Revalidator struct {
	url        string
	secret     string
	httpClient *http.Client
}

// NewRevalidator creates a new Revalidator instance
func NewRevalidator(url, secret string, timeout time.Duration) *Revalidator {
	if timeout <= 0 {
		timeout = defaultInvalidateTimeout
	}
	return &Revalidator{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type revalidateRequest struct {
	Keys []string `json:"keys"`
}

// Invalidate implements domain.Cache
func (r *Revalidator) Invalidate(ctx context.Context, keys []string) error {
	body, err := json.Marshal(revalidateRequest{Keys: keys})
	if err != nil {
		return fmt.Errorf("failed to marshal revalidate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build revalidate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.secret != "" {
		req.Header.Set(SecretHeader, r.secret)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call revalidate endpoint: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("revalidate endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Multi invalidates several caches and reports every failure
type Multi []domain.Cache

// Invalidate implements domain.Cache
func (m Multi) Invalidate(ctx context.Context, keys []string) error {
	var errs []error
	for _, c := range m {
		if err := c.Invalidate(ctx, keys); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
