package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"mantrify/internal/config"
	"mantrify/internal/logging"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultUserAgent   = "mantrify-cli"
	maxErrorBody       = 64 * 1024
)

// Config describes the backend endpoint.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// ConfigFromApp extracts client settings from application configuration.
func ConfigFromApp(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.RequestTimeout(),
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCredentials sets the credential capability used for bearer auth.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) {
		if creds != nil {
			c.creds = creds
		}
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "api")
	}
}

// Client talks to the Mantrify backend. It is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	userAgent string
	http      *http.Client
	creds     Credentials
	logger    *slog.Logger
}

// NewClient validates cfg and returns a client. Without WithCredentials the
// client sends anonymous requests.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: base url is required")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must use http or https", base)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	c := &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
		creds:     anonymous{},
		logger:    logging.NewComponentLogger(nil, "api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type call struct {
	op        string
	method    string
	path      []string
	body      any
	out       any
	anonymous bool
	// upload sends a multipart form instead of a JSON body.
	upload *upload
	// sink receives the raw response body instead of decoding into out.
	sink io.Writer
}

// upload is one file sent as a multipart form field.
type upload struct {
	field    string
	filename string
	content  io.Reader
}

func (u *upload) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile(u.field, u.filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, u.content); err != nil {
		return nil, "", err
	}
	if err := form.Close(); err != nil {
		return nil, "", err
	}
	return &buf, form.FormDataContentType(), nil
}

// do performs one HTTP exchange. It never retries.
func (c *Client) do(ctx context.Context, req call) error {
	if c == nil {
		return errors.New("api: client is nil")
	}
	endpoint := c.baseURL.JoinPath(req.path...)

	var body io.Reader
	var contentType string
	switch {
	case req.upload != nil:
		encoded, ct, err := req.upload.encode()
		if err != nil {
			return fmt.Errorf("%s: encode upload: %w", req.op, err)
		}
		body, contentType = encoded, ct
	case req.body != nil:
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", req.op, err)
		}
		body, contentType = bytes.NewReader(payload), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", req.op, err)
	}
	requestID, ok := logging.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	if req.sink != nil {
		httpReq.Header.Set("Accept", "application/octet-stream, */*")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	authenticated := false
	if !req.anonymous {
		if token, ok := c.creds.Credential(); ok {
			httpReq.Header.Set("Authorization", "Bearer "+token)
			authenticated = true
		}
	}

	logger := logging.WithContext(logging.WithRequestID(ctx, requestID), c.logger)
	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", req.op, ctxErr)
		}
		logger.Debug("request failed",
			logging.String("method", req.method),
			logging.String("path", endpoint.Path),
			logging.Error(err),
		)
		return &Error{Kind: ErrTransient, Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	logger.Debug("request completed",
		logging.String("method", req.method),
		logging.String("path", endpoint.Path),
		logging.Int("status_code", resp.StatusCode),
		logging.Bool("authenticated", authenticated),
		logging.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := decodeErrorBody(req.op, resp.StatusCode, raw)
		if resp.StatusCode == http.StatusUnauthorized && authenticated {
			logger.Warn("credential rejected by backend",
				logging.String(logging.FieldEventType, "unauthorized"),
				logging.String(logging.FieldImpact, "stored session will be cleared"),
			)
			c.creds.OnUnauthorized()
		}
		return apiErr
	}

	if req.sink != nil {
		if _, err := io.Copy(req.sink, resp.Body); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%s: %w", req.op, ctxErr)
			}
			return fmt.Errorf("%s: copy response: %w", req.op, err)
		}
		return nil
	}
	if req.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(req.out); err != nil {
		return &Error{Kind: ErrProtocol, Op: req.op, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}
