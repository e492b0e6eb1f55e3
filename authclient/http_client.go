package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
	logoutPath  = "/auth/logout"
)

var _ Client = (*HTTPClient)(nil)

// HTTPClient talks JSON to the credential-issuing backend.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// HTTPClientOption modifies an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) HTTPClientOption {
	return func(c *HTTPClient) { c.httpClient = httpClient }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) HTTPClientOption {
	return func(c *HTTPClient) { c.log = log }
}

// NewHTTPClient creates a client rooted at baseURL.
func NewHTTPClient(baseURL string, options ...HTTPClientOption) *HTTPClient {
	client := &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(client)
	}
	return client
}

func (c *HTTPClient) IssueSession(ctx context.Context, creds Credentials) (*Grant, error) {
	var grant Grant
	if err := c.postJSON(ctx, loginPath, "", creds, &grant); err != nil {
		return nil, errors.Wrap(err, "[HTTPClient.IssueSession]")
	}
	return &grant, nil
}

func (c *HTTPClient) RenewSession(ctx context.Context, refreshToken string) (*Renewal, error) {
	body := map[string]string{"refreshToken": refreshToken}
	var renewal Renewal
	if err := c.postJSON(ctx, refreshPath, "", body, &renewal); err != nil {
		return nil, errors.Wrap(err, "[HTTPClient.RenewSession]")
	}
	return &renewal, nil
}

func (c *HTTPClient) InvalidateSession(ctx context.Context, accessToken string) error {
	if err := c.postJSON(ctx, logoutPath, accessToken, struct{}{}, nil); err != nil {
		return errors.Wrap(err, "[HTTPClient.InvalidateSession]")
	}
	return nil
}

// errorEnvelope is the backend's error response shape.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HTTPClient) postJSON(ctx context.Context, path, bearer string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("took", time.Since(started)).Msg("auth request")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.serviceError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServiceError{Status: resp.StatusCode, Code: CodeServerError, Message: "malformed response body"}
	}
	return nil
}

func (c *HTTPClient) serviceError(resp *http.Response) error {
	svcErr := &ServiceError{Status: resp.StatusCode, Code: CodeServerError}
	if resp.StatusCode == http.StatusUnauthorized {
		svcErr.Code = CodeNotAuthenticated
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return svcErr
	}
	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		svcErr.Code = envelope.Error.Code
		svcErr.Message = envelope.Error.Message
	}
	return svcErr
}

func transportError(err error) error {
	code := CodeNetworkError
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		code = CodeTimeout
	}
	return &ServiceError{Code: code, Message: err.Error()}
}
