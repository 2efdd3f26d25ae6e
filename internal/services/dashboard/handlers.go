package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/LeonardoBeccarini/hydroponics/internal/advisor"
	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
	"github.com/LeonardoBeccarini/hydroponics/internal/services/analysis"
)

type zonesPayload struct {
	Zones []entities.Zone `json:"zones"`
	Stats Summary         `json:"stats"`
}

func (a *App) listZones(w http.ResponseWriter, _ *http.Request) {
	zones := a.Zones.Snapshot()
	replyJSON(w, http.StatusOK, zonesPayload{Zones: zones, Stats: summarize(zones)})
}

func (a *App) getZone(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	z, ok := a.Zones.Zone(id)
	if !ok {
		replyError(w, http.StatusNotFound, "zone "+id+" not found")
		return
	}
	replyJSON(w, http.StatusOK, z)
}

func (a *App) listRecommendations(w http.ResponseWriter, r *http.Request) {
	var recs []entities.Recommendation
	switch strings.ToLower(r.URL.Query().Get("status")) {
	case "", "pending":
		recs = a.Advisor.Pending()
	case "decided":
		recs = a.Advisor.Decided()
	case "all":
		recs = a.Advisor.All()
	default:
		replyError(w, http.StatusBadRequest, "status must be pending, decided or all")
		return
	}
	if recs == nil {
		recs = []entities.Recommendation{}
	}
	replyJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

type refreshPayload struct {
	RunID    string                    `json:"run_id"`
	Added    []entities.Recommendation `json:"added"`
	Replaced int                       `json:"replaced"`
	Warnings []string                  `json:"warnings"`
}

func (a *App) refreshRecommendations(w http.ResponseWriter, r *http.Request) {
	if a.Analyze == nil {
		replyError(w, http.StatusServiceUnavailable, "no analysis source configured")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.refreshTimeout())
	defer cancel()

	report, err := a.Advisor.Refresh(ctx, a.Zones.Snapshot(), a.Analyze)
	if err != nil {
		if errors.Is(err, advisor.ErrAnalysis) {
			replyError(w, http.StatusBadGateway, err.Error())
			return
		}
		replyError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := refreshPayload{RunID: report.RunID, Added: report.Added, Replaced: report.Replaced, Warnings: []string{}}
	if out.Added == nil {
		out.Added = []entities.Recommendation{}
	}
	for _, f := range report.Warnings {
		out.Warnings = append(out.Warnings, f.Error())
	}
	replyJSON(w, http.StatusOK, out)
}

func (a *App) decideRecommendation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	outcome, ok := entities.ParseOutcome(vars["action"])
	if !ok {
		replyError(w, http.StatusBadRequest, "unknown action "+vars["action"])
		return
	}
	rec, err := a.Advisor.Decide(vars["id"], outcome)
	switch {
	case errors.Is(err, advisor.ErrNotFound):
		replyError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, advisor.ErrInvalidTransition):
		replyError(w, http.StatusConflict, err.Error())
	case err != nil:
		replyError(w, http.StatusInternalServerError, err.Error())
	default:
		a.Log.Info().Str("id", rec.ID).Str("outcome", string(rec.Status)).Msg("dashboard: recommendation decided")
		replyJSON(w, http.StatusOK, rec)
	}
}

func (a *App) plantHealth(w http.ResponseWriter, r *http.Request) {
	if a.Plants == nil {
		replyError(w, http.StatusServiceUnavailable, "no analysis source configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.maxImageBytes())
	if err := r.ParseMultipartForm(a.maxImageBytes()); err != nil {
		replyError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, hdr, err := r.FormFile("image")
	if err != nil {
		replyError(w, http.StatusBadRequest, "missing image field")
		return
	}
	defer file.Close()
	img, err := io.ReadAll(file)
	if err != nil {
		replyError(w, http.StatusBadRequest, "cannot read image: "+err.Error())
		return
	}

	mime := hdr.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(img)
	}
	crop := strings.TrimSpace(r.FormValue("crop"))
	if crop == "" {
		crop = analysis.DefaultCrop
	}

	res, err := a.Plants.AnalyzePlantImage(r.Context(), img, mime, crop)
	switch {
	case errors.Is(err, analysis.ErrNoImage):
		replyError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		a.Log.Warn().Err(err).Msg("dashboard: plant health analysis failed")
		replyError(w, http.StatusBadGateway, err.Error())
	default:
		replyJSON(w, http.StatusOK, res)
	}
}

var errZoneNotFound = errors.New("zone not found")

type yieldRequest struct {
	ZoneID  string                  `json:"zone_id"`
	History []entities.HistoryPoint `json:"history"`
}

// predictYield usa la history nel body se presente, altrimenti quella
// raccolta per la zona richiesta (o per tutte le zone).
func (a *App) predictYield(w http.ResponseWriter, r *http.Request) {
	if a.Yield == nil {
		replyError(w, http.StatusServiceUnavailable, "no analysis source configured")
		return
	}
	var req yieldRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			replyError(w, http.StatusBadRequest, "invalid body: "+err.Error())
			return
		}
	}

	history := req.History
	if len(history) == 0 {
		var err error
		history, err = a.collectHistory(r.Context(), req.ZoneID)
		if err != nil {
			if errors.Is(err, errZoneNotFound) {
				replyError(w, http.StatusNotFound, err.Error())
				return
			}
			replyError(w, http.StatusBadGateway, err.Error())
			return
		}
	}
	if len(history) == 0 {
		replyError(w, http.StatusUnprocessableEntity, analysis.ErrNoHistory.Error())
		return
	}

	res, err := a.Yield.PredictYield(r.Context(), history)
	switch {
	case errors.Is(err, analysis.ErrNoHistory):
		replyError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		a.Log.Warn().Err(err).Msg("dashboard: yield prediction failed")
		replyError(w, http.StatusBadGateway, err.Error())
	default:
		replyJSON(w, http.StatusOK, res)
	}
}

func (a *App) collectHistory(ctx context.Context, zoneID string) ([]entities.HistoryPoint, error) {
	if a.History == nil {
		return nil, nil
	}
	if zoneID != "" {
		if _, ok := a.Zones.Zone(zoneID); !ok {
			return nil, fmt.Errorf("%w: %s", errZoneNotFound, zoneID)
		}
		return a.History.Points(ctx, zoneID)
	}
	var all []entities.HistoryPoint
	for _, z := range a.Zones.Snapshot() {
		ps, err := a.History.Points(ctx, z.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, ps...)
	}
	return all, nil
}
