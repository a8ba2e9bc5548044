// Package registration talks to the platform's registration endpoint.
package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/neomorfeo/fleetsignup/internal/domain"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 1 << 20

// Compile-time check: Client implements domain.Registrar.
var _ domain.Registrar = (*Client)(nil)

// Client implements domain.Registrar over HTTP.
type Client struct {
	url     string
	http    *http.Client
	timeout time.Duration
	session domain.SessionContext
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each registration call, whichever HTTP client is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithSessionContext supplies bearer credentials for outbound calls.
func WithSessionContext(s domain.SessionContext) Option {
	return func(c *Client) { c.session = s }
}

// New creates a client posting to url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:  url,
		http: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register posts the registration request. Non-2xx answers become a
// *domain.RemoteError with a display message extracted from the body;
// transport failures become a *domain.NetworkError.
func (c *Client) Register(ctx context.Context, req domain.RegistrationRequest) (domain.RegistrationResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.RegistrationResponse{}, fmt.Errorf("encoding registration request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return domain.RegistrationResponse{}, fmt.Errorf("building registration request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.RegistrationResponse{}, &domain.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return domain.RegistrationResponse{}, &domain.NetworkError{Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized && c.session != nil {
		c.session.ClearSession()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := ParseErrorBody(resp.StatusCode, http.StatusText(resp.StatusCode), body)
		return domain.RegistrationResponse{}, &domain.RemoteError{
			StatusCode: resp.StatusCode,
			Message:    detail.Message(),
		}
	}

	// The account exists at this point; an odd success body only costs us
	// the name in the welcome message.
	var out domain.RegistrationResponse
	_ = json.Unmarshal(body, &out)
	return out, nil
}
