// Package backend is the HTTP client for the clinic backend REST API that owns
// patients, appointments, recalls, slots and payments.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinicbook/internal/observability/metrics"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

var backendTracer = otel.Tracer("clinicbook.internal.backend")

type tokenKey struct{}

// WithToken attaches the caller's backend bearer token to ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client calls the clinic backend. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.BookingMetrics
}

// NewClient creates a backend client. timeout <= 0 means no client timeout.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithHTTPClient overrides the underlying HTTP client (for testing).
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.httpClient = h
	}
	return c
}

// WithMetrics records call counts and latency.
func (c *Client) WithMetrics(m *metrics.BookingMetrics) *Client {
	c.metrics = m
	return c
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("backend: %s: encode: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}
	return c.do(ctx, op, method, path, query, body, "application/json", out)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	ctx, span := backendTracer.Start(ctx, "backend."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("clinicbook.backend.path", path),
	)

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("backend: %s: request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := tokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveBackendCall(op, "transport_error", time.Since(start).Seconds())
		span.RecordError(err)
		return fmt.Errorf("backend: %s: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveBackendCall(op, "read_error", time.Since(start).Seconds())
		return fmt.Errorf("backend: %s: read body: %w", op, err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := decodeAPIError(op, resp.StatusCode, raw)
		c.metrics.ObserveBackendCall(op, fmt.Sprintf("%d", resp.StatusCode), time.Since(start).Seconds())
		c.logger.Warn("backend call failed", "operation", op, "status", resp.StatusCode, "error", apiErr.Error())
		span.RecordError(apiErr)
		return apiErr
	}

	// Some endpoints answer 200 with success=false.
	var envelope errorBody
	if len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &envelope) == nil && envelope.Success != nil && !*envelope.Success {
		apiErr := decodeAPIError(op, resp.StatusCode, raw)
		c.metrics.ObserveBackendCall(op, "unsuccessful", time.Since(start).Seconds())
		span.RecordError(apiErr)
		return apiErr
	}

	c.metrics.ObserveBackendCall(op, "ok", time.Since(start).Seconds())
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("backend: %s: decode: %w", op, err)
	}
	return nil
}
