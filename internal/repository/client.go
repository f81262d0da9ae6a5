package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"remotion_studio/internal/lib/apperr"
	"remotion_studio/internal/metrics"
)

const maxErrorBody = 64 << 10

type client struct {
	log     *slog.Logger
	baseURL string
	http    *http.Client
}

// envelope is the {data: ...} wrapper every successful response uses.
type envelope[T any] struct {
	Data T `json:"data"`
}

type errorBody struct {
	Message       string `json:"message"`
	Error         string `json:"error"`
	RetryPossible bool   `json:"retryPossible"`
}

// do issues one request and decodes the JSON response into out (when
// non-nil). Every failure comes back as *apperr.Error.
func (c *client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return c.fail(op, apperr.InvalidInput(op, fmt.Sprintf("encode request: %v", err)))
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return c.fail(op, apperr.InvalidInput(op, fmt.Sprintf("build request: %v", err)))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("api request",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("url", u),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(op, apperr.Wrap(op, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(op, decodeError(op, resp))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return c.fail(op, apperr.Wrap(op, fmt.Errorf("decode response: %w", err)))
		}
	}

	metrics.APIRequestsTotal.WithLabelValues(op, "ok").Inc()
	return nil
}

func (c *client) fail(op string, err *apperr.Error) error {
	metrics.APIRequestsTotal.WithLabelValues(op, err.Kind.String()).Inc()
	c.log.Debug("api request failed",
		slog.String("op", op),
		slog.String("kind", err.Kind.String()),
		slog.Int("status", err.Status),
	)
	return err
}

func decodeError(op string, resp *http.Response) *apperr.Error {
	e := &apperr.Error{
		Kind:   apperr.FromStatus(resp.StatusCode),
		Op:     op,
		Status: resp.StatusCode,
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		e.Message = body.Message
		if e.Message == "" {
			e.Message = body.Error
		}
		if body.RetryPossible && e.Kind == apperr.KindUnknown {
			e.Kind = apperr.KindTemporarilyUnavailable
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}

	return e
}
