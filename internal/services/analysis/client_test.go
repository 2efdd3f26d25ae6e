package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
	"github.com/LeonardoBeccarini/hydroponics/internal/simulator"
)

// modelReply wraps text the way the generateContent endpoint does.
func modelReply(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}}},
		},
	})
}

func newTestClient(t *testing.T, srv *httptest.Server, tweak func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:         srv.URL + "/v1beta",
		APIKey:          "test-key",
		Model:           "test-model",
		Timeout:         2 * time.Second,
		MaxRetries:      2,
		RetryBaseDelay:  time.Millisecond,
		BreakerFailures: 3,
		BreakerOpenFor:  time.Minute,
	}
	if tweak != nil {
		tweak(&cfg)
	}
	c, err := NewClient(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestAnalyzeZoneRequestAndDecode(t *testing.T) {
	zone := simulator.DefaultZones(time.Now())[1]

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1beta/models/test-model:generateContent" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.GenerationConfig.ResponseMimeType != "application/json" || req.GenerationConfig.ResponseSchema["type"] != "OBJECT" {
			t.Errorf("generation config %+v", req.GenerationConfig)
		}
		prompt := req.Contents[0].Parts[0].Text
		if !strings.Contains(prompt, "Growth Zone B") || !strings.Contains(prompt, "pH: 5.40") {
			t.Errorf("prompt %q", prompt)
		}
		modelReply(t, w, `{"status":"WARNING","summary":"acidic","recommendations":[{"parameter":"pH","action":"Dose pH up","priority":"HIGH","rationale":"below 5.5"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	adv, err := c.AnalyzeZone(context.Background(), zone)
	if err != nil {
		t.Fatalf("AnalyzeZone: %v", err)
	}
	if len(adv) != 1 || adv[0].Parameter != "pH" || adv[0].Priority != "HIGH" {
		t.Fatalf("advisories %+v", adv)
	}
}

func TestRetriesOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		modelReply(t, w, `{"status":"OPTIMAL","summary":"fine","recommendations":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	adv, err := c.AnalyzeZone(context.Background(), simulator.DefaultZones(time.Now())[0])
	if err != nil {
		t.Fatalf("AnalyzeZone: %v", err)
	}
	if adv == nil || len(adv) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", adv)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad key"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.AnalyzeZone(context.Background(), simulator.DefaultZones(time.Now())[0])
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusForbidden {
		t.Fatalf("got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
	if c.BreakerState() != "closed" {
		t.Fatalf("4xx tripped the breaker: %s", c.BreakerState())
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(cfg *Config) {
		cfg.MaxRetries = 0
		cfg.BreakerFailures = 2
	})
	zone := simulator.DefaultZones(time.Now())[0]
	for i := 0; i < 2; i++ {
		if _, err := c.AnalyzeZone(context.Background(), zone); err == nil {
			t.Fatal("expected failure")
		}
	}

	_, err := c.AnalyzeZone(context.Background(), zone)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("open breaker still called upstream: %d", calls.Load())
	}
	if c.BreakerState() != "open" {
		t.Fatalf("state %s", c.BreakerState())
	}
}

func TestEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.AnalyzeZone(context.Background(), simulator.DefaultZones(time.Now())[0])
	if !errors.Is(err, ErrEmptyResponse) || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("got %v", err)
	}
}

func TestAnalyzePlantImage(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		parts := req.Contents[0].Parts
		if len(parts) != 2 || parts[0].InlineData == nil {
			t.Errorf("parts %+v", parts)
			return
		}
		if parts[0].InlineData.MimeType != "image/png" || parts[0].InlineData.Data != base64.StdEncoding.EncodeToString(img) {
			t.Errorf("inline data %+v", parts[0].InlineData)
		}
		if !strings.Contains(parts[1].Text, "Lettuce") {
			t.Errorf("default crop missing: %q", parts[1].Text)
		}
		modelReply(t, w, `{"healthScore":120,"detectedIssues":["tip burn"],"severity":"low","treatmentPlan":"lower EC","confidence":87}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	got, err := c.AnalyzePlantImage(context.Background(), img, "image/png", "")
	if err != nil {
		t.Fatalf("AnalyzePlantImage: %v", err)
	}
	if got.HealthScore != 100 || got.Confidence != 0.87 || got.Severity != "low" || len(got.DetectedIssues) != 1 {
		t.Fatalf("analysis %+v", got)
	}
}

func TestAnalyzePlantImageWithoutImage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	c := newTestClient(t, srv, nil)
	if _, err := c.AnalyzePlantImage(context.Background(), nil, "", ""); !errors.Is(err, ErrNoImage) {
		t.Fatalf("got %v", err)
	}
}

func TestPredictYield(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !strings.Contains(req.Contents[0].Parts[0].Text, `"pH":6.1`) {
			t.Errorf("history not embedded: %q", req.Contents[0].Parts[0].Text)
		}
		modelReply(t, w, `{"estimatedYieldKg":4.2,"harvestDate":"2026-04-01","confidence":0.7}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	if _, err := c.PredictYield(context.Background(), nil); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("empty history: %v", err)
	}

	hist := []entities.HistoryPoint{{ZoneID: "z1", Time: time.Now(), TemperatureC: 24, HumidityPct: 65, PH: 6.1, Samples: 12}}
	got, err := c.PredictYield(context.Background(), hist)
	if err != nil {
		t.Fatalf("PredictYield: %v", err)
	}
	if got.EstimatedYieldKg != 4.2 || got.HarvestDate != "2026-04-01" || got.OptimizationTips == nil {
		t.Fatalf("forecast %+v", got)
	}
}
