package dashboard

import (
	"context"
	"net/http"
	"time"
)

type probeResult struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

func (a *App) runProbes(ctx context.Context) []probeResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out := make([]probeResult, 0, len(a.Probes))
	for _, p := range a.Probes {
		res := probeResult{Name: p.Name, Required: p.Required, OK: true}
		if err := p.Check(ctx); err != nil {
			res.OK = false
			res.Error = err.Error()
		}
		out = append(out, res)
	}
	return out
}

// healthz risponde sempre 200: ok, degraded (fallisce una dipendenza opzionale)
// o down (fallisce una dipendenza richiesta).
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	probes := a.runProbes(r.Context())
	status := "ok"
	for _, p := range probes {
		if p.OK {
			continue
		}
		if p.Required {
			status = "down"
			break
		}
		status = "degraded"
	}
	replyJSON(w, http.StatusOK, map[string]any{"status": status, "checks": probes})
}

// readyz: 200 solo se tutte le dipendenze richieste sono ok.
func (a *App) readyz(w http.ResponseWriter, r *http.Request) {
	ready := true
	for _, p := range a.runProbes(r.Context()) {
		if p.Required && !p.OK {
			ready = false
		}
	}
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	replyJSON(w, code, map[string]bool{"ready": ready})
}
