// Package analysis talks to a hosted generative model for zone advisories,
// plant image health checks and yield forecasts.
package analysis

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
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/LeonardoBeccarini/hydroponics/internal/metrics"
)

const maxResponseBytes = 4 << 20

type Config struct {
	BaseURL string // e.g. https://generativelanguage.googleapis.com/v1beta
	APIKey  string
	Model   string
	Timeout time.Duration // per HTTP attempt

	MaxRetries     int
	RetryBaseDelay time.Duration

	BreakerFailures int
	BreakerOpenFor  time.Duration
	BreakerInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-3-flash-preview",
		Timeout:         20 * time.Second,
		MaxRetries:      2,
		RetryBaseDelay:  250 * time.Millisecond,
		BreakerFailures: 5,
		BreakerOpenFor:  30 * time.Second,
		BreakerInterval: time.Minute,
	}
}

// Client is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	def := DefaultConfig()
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = def.RetryBaseDelay
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = def.BreakerOpenFor
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("analysis: API key is required")
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: mkCB("genai", cfg.BreakerFailures, cfg.BreakerOpenFor, cfg.BreakerInterval),
		log:     logger,
	}, nil
}

func mkCB(name string, fails int, openFor, interval time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: interval,
		Timeout:  openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		// 4xx (except 429) are our fault, not the upstream's
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return !se.Retryable()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// BreakerState is exposed on the readiness endpoint.
func (c *Client) BreakerState() string { return c.breaker.State().String() }

// ====== wire format ======

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

// generate sends parts with a JSON response schema and decodes the answer into out.
func (c *Client) generate(ctx context.Context, kind string, parts []part, schema map[string]any, out any) error {
	ctx, span := otel.Tracer("hydroponics-analysis").Start(ctx, "analysis."+kind)
	defer span.End()
	span.SetAttributes(
		attribute.String("genai.model", c.cfg.Model),
		attribute.String("analysis.kind", kind),
	)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	start := time.Now()
	err = c.call(ctx, body, out)
	metrics.AnalysisLatencySeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AnalysisCallsTotal.WithLabelValues(kind, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	metrics.AnalysisCallsTotal.WithLabelValues(kind, "ok").Inc()
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Client) call(ctx context.Context, body []byte, out any) error {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.postWithRetry(ctx, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return err
	}

	var resp generateResponse
	if err := json.Unmarshal(res.([]byte), &resp); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	text := resp.text()
	if text == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return fmt.Errorf("%w (blocked: %s)", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}

// postWithRetry retries transport errors, 429 and 5xx with exponential backoff.
func (c *Client) postWithRetry(ctx context.Context, body []byte) ([]byte, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryBaseDelay
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.MaxRetries)), ctx)

	attempt := 0
	return backoff.RetryWithData[[]byte](func() ([]byte, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.cfg.APIKey)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("analysis: request failed")
			return nil, fmt.Errorf("genai request error: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("genai read error: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			se := &StatusError{Code: resp.StatusCode, Body: truncate(string(raw), 256)}
			if se.Retryable() {
				c.log.Warn().Int("status", se.Code).Int("attempt", attempt).Msg("analysis: upstream busy")
				return nil, se
			}
			return nil, backoff.Permanent(se)
		}
		return raw, nil
	}, policy)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
