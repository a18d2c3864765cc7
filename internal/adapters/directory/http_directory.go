// Package directory writes role claims into the identity system's user directory.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harborline/backoffice/internal/domain/model"
	"github.com/harborline/backoffice/internal/ports"
)

// ErrNotConfigured is returned when no directory endpoint is configured.
var ErrNotConfigured = errors.New("role directory not configured")

// Config captures how to reach the directory endpoint.
type Config struct {
	URL        string
	Token      string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// HTTPDirectory posts role assignments as JSON to a directory endpoint.
type HTTPDirectory struct {
	url        string
	token      string
	retryLimit int
	client     *http.Client
}

var _ ports.RoleDirectory = (*HTTPDirectory)(nil)

// NewHTTPDirectory builds a directory client. Callers should pass a validated config.
func NewHTTPDirectory(cfg Config) (*HTTPDirectory, error) {
	u := strings.TrimSpace(cfg.URL)
	if u == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := max(cfg.RetryLimit, 0)
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &HTTPDirectory{url: u, token: strings.TrimSpace(cfg.Token), retryLimit: retries, client: hc}, nil
}

type assignmentPayload struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	Organization string `json:"organization,omitempty"`
	Actor        string `json:"actor"`
}

// permanentError marks a response that retrying will not fix.
type permanentError struct{ status int }

func (e *permanentError) Error() string { return fmt.Sprintf("directory rejected assignment: status %d", e.status) }

// AssignRole writes the assignment, retrying transport failures and 5xx responses.
func (d *HTTPDirectory) AssignRole(ctx context.Context, in model.RoleAssignment) error {
	body, err := json.Marshal(assignmentPayload{
		Email:        in.Email,
		Role:         in.Role,
		Organization: in.Organization,
		Actor:        in.Actor,
	})
	if err != nil {
		return fmt.Errorf("encode assignment: %w", err)
	}

	attempts := d.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		err = d.post(ctx, body)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return err
		}
		lastErr = err
		if attempt < attempts-1 {
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func (d *HTTPDirectory) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create directory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("directory unavailable: status %d", resp.StatusCode)
	default:
		return &permanentError{status: resp.StatusCode}
	}
}

// Unconfigured is the RoleDirectory used when no endpoint is set; every assignment fails.
type Unconfigured struct{}

// AssignRole always returns ErrNotConfigured.
func (Unconfigured) AssignRole(context.Context, model.RoleAssignment) error { return ErrNotConfigured }
