package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Client is a traced HTTP client shared by all outbound adapters. It carries
// no global timeout: every call is bounded by the context the caller passes
// in, which keeps the deadline decision with the orchestration layer.
type Client struct {
	tracer trace.Tracer
	http   *http.Client
}

func New(tracer trace.Tracer) *Client {
	return &Client{
		tracer: tracer,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
	}
}

// StatusError is returned when the downstream answered with a non-2xx code.
// The raw body is retained so callers can decode structured error payloads.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream returned %d: %s", e.StatusCode, e.Body)
}

// DoJSON performs an HTTP call with a JSON request body (may be nil) and
// decodes a JSON response into out (may be nil). Trace context is propagated
// on the request headers.
func (c *Client) DoJSON(ctx context.Context, method, url string, in, out any) error {
	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("http.%s", method),
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("http.url", url),
		attribute.String("http.method", method),
	)

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			span.RecordError(err)
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		serr := &StatusError{StatusCode: resp.StatusCode, Body: raw}
		span.RecordError(serr)
		span.SetStatus(codes.Error, serr.Error())
		return serr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			span.RecordError(err)
			return fmt.Errorf("decode response from %s: %w", url, err)
		}
	}
	return nil
}
