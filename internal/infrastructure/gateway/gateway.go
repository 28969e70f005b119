// Package gateway is the HTTP client side of the floor API. It implements
// remote.Gateway against the routes served by the apprest server.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/logger"
	"github.com/chrisfalcon1208/apprest/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	apiPrefix       = "/api/v1"
	terminalHeader  = "X-Terminal-ID"
	maxResponseSize = 32 << 20
)

// Config holds the client settings
type Config struct {
	BaseURL    string
	TerminalID string
	// Timeout bounds each request; zero leaves it to the caller's context
	Timeout time.Duration
}

// HTTPGateway implements remote.Gateway over HTTP/JSON
type HTTPGateway struct {
	baseURL    string
	terminalID string
	client     *http.Client
	tokens     remote.TokenSource
	logger     *zap.Logger
}

var _ remote.Gateway = (*HTTPGateway)(nil)

// New creates a gateway. tokens supplies the bearer credential of every call
// except Login.
func New(cfg Config, tokens remote.TokenSource, zl *zap.Logger) (*HTTPGateway, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway: invalid server url %q", cfg.BaseURL)
	}
	if tokens == nil {
		return nil, errors.New("gateway: token source is required")
	}
	return &HTTPGateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		terminalID: cfg.TerminalID,
		client:     &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		logger:     zl.Named("gateway"),
	}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

// do sends one request. out, when not nil, receives the validated payload.
func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out any, authenticated bool) error {
	var token string
	if authenticated {
		t, ok := g.tokens.Token()
		if !ok {
			return remote.ErrNoSession
		}
		token = t
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("gateway: create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(logger.RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if g.terminalID != "" {
		req.Header.Set(terminalHeader, g.terminalID)
	}

	log := g.logger.With(zap.String("request_id", requestID), zap.String("method", method), zap.String("path", path))
	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		log.Debug("request failed", zap.Error(err))
		return &remote.Failure{Kind: remote.ErrTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &remote.Failure{Kind: remote.ErrTransport, Status: resp.StatusCode, Message: err.Error()}
	}
	log.Debug("request done", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		return failure(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return malformed(resp.StatusCode, "response is not a JSON envelope: %v", err)
	}
	if !env.Success || len(env.Data) == 0 || string(env.Data) == "null" {
		return malformed(resp.StatusCode, "response carries no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return malformed(resp.StatusCode, "decode payload: %v", err)
	}
	if err := dto.Validate(out); err != nil {
		return malformed(resp.StatusCode, "invalid payload: %v", err)
	}
	return nil
}

// failure classifies an error status, keeping the server's code when the
// body has one
func failure(status int, raw []byte) error {
	f := &remote.Failure{Status: status}
	switch {
	case status == http.StatusUnauthorized:
		f.Kind = remote.ErrUnauthorized
	case status == http.StatusNotFound:
		f.Kind = remote.ErrNotFound
	case status == http.StatusConflict:
		f.Kind = remote.ErrConflict
	case status >= http.StatusInternalServerError:
		f.Kind = remote.ErrTransport
	default:
		f.Kind = remote.ErrRejected
	}
	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Error != nil {
		f.Code, f.Message = env.Error.Code, env.Error.Message
	}
	return f
}

func malformed(status int, format string, args ...any) error {
	return &remote.Failure{Kind: remote.ErrMalformedResponse, Status: status, Message: fmt.Sprintf(format, args...)}
}
