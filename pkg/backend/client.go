package backend

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

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	appErrors "github.com/MVitabar/Notas-Frontend-sub001/pkg/errors"
)

const maxBodyBytes = 4 << 20

// Observer receives timing for every backend round trip.
type Observer interface {
	ObserveBackendCall(method, resource string, status int, duration time.Duration)
}

// Config configures the backend client.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
	HTTPClient    *http.Client
	Observer      Observer
	Logger        *zap.Logger
}

// Client speaks JSON to the grade-management REST API.
type Client struct {
	baseURL       string
	http          *http.Client
	maxRetries    int
	retryInterval time.Duration
	observer      Observer
	logger        *zap.Logger
}

// New constructs a backend client with sane defaults.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 200 * time.Millisecond
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		http:          cfg.HTTPClient,
		maxRetries:    cfg.MaxRetries,
		retryInterval: cfg.RetryInterval,
		observer:      cfg.Observer,
		logger:        cfg.Logger,
	}
}

// Get fetches path into dest. It retries transient failures and reports false when the
// backend answered without data.
func (c *Client) Get(ctx context.Context, path string, dest interface{}) (bool, error) {
	var found bool
	operation := func() error {
		var err error
		found, err = c.do(ctx, http.MethodGet, path, nil, dest)
		if err != nil && !appErrors.HasCode(err, appErrors.ErrBackendUnavailable.Code) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("backend get failed, retrying", zap.String("path", path), zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(operation, retry, notify); err != nil {
		return false, err
	}
	return found, nil
}

// Post sends body and decodes the response into dest.
func (c *Client) Post(ctx context.Context, path string, body, dest interface{}) (bool, error) {
	return c.do(ctx, http.MethodPost, path, body, dest)
}

// Put sends body and decodes the response into dest.
func (c *Client) Put(ctx context.Context, path string, body, dest interface{}) (bool, error) {
	return c.do(ctx, http.MethodPut, path, body, dest)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, dest interface{}) (bool, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode backend request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build backend request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reqID := RequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.observe(method, path, http.StatusServiceUnavailable, duration)
		return false, appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, fmt.Sprintf("backend %s %s failed", method, path))
	}
	defer resp.Body.Close()
	c.observe(method, path, resp.StatusCode, duration)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, "failed to read backend response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return false, statusError(resp.StatusCode, raw)
	}
	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}

	found, err := DecodeData(raw, dest)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, "malformed backend response")
	}
	return found, nil
}

func (c *Client) observe(method, path string, status int, duration time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveBackendCall(method, resourceOf(path), status, duration)
}

// DecodeData unwraps the backend's optional {"data": ...} envelope into dest. It reports
// false for empty bodies, JSON null and a null data member.
func DecodeData(raw []byte, dest interface{}) (bool, error) {
	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return false, nil
	}

	if payload[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(payload, &probe); err != nil {
			return false, err
		}
		if inner, ok := probe["data"]; ok {
			payload = bytes.TrimSpace(inner)
			if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
				return false, nil
			}
		}
	}

	if dest == nil {
		return true, nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

func statusError(status int, raw []byte) *appErrors.Error {
	var base *appErrors.Error
	switch {
	case status == http.StatusNotFound:
		base = appErrors.ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		base = appErrors.ErrValidation
	case status == http.StatusUnauthorized:
		base = appErrors.ErrUnauthorized
	case status == http.StatusForbidden:
		base = appErrors.ErrForbidden
	case status == http.StatusConflict:
		base = appErrors.ErrConflict
	default:
		base = appErrors.ErrBackendUnavailable
	}

	message := backendMessage(raw)
	if message == "" {
		message = base.Message
	}
	appErr := appErrors.Clone(base, message)
	appErr.Err = fmt.Errorf("backend responded with status %d", status)
	return appErr.WithDetails(map[string]interface{}{"backend_status": status})
}

// backendMessage extracts a human readable message from the common error body shapes:
// {"message": "..."}, {"error": "..."} and {"error": {"message": "..."}}.
func backendMessage(raw []byte) string {
	var body struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	if len(body.Error) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(body.Error, &text); err == nil {
		return text
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body.Error, &nested); err == nil {
		return nested.Message
	}
	return ""
}

// resourceOf keeps metric label cardinality low by dropping identifiers from the path.
func resourceOf(path string) string {
	trimmed := strings.Trim(path, "/")
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		return "root"
	}
	if len(parts) > 1 && parts[1] == "current" {
		return parts[0] + "/current"
	}
	if len(parts) > 1 {
		return parts[0] + "/:id"
	}
	return parts[0]
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	return errors.Is(err, appErrors.ErrNotFound)
}
