package dashboard

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/hydroponics/internal/metrics"
)

func NewRouter(app *App) http.Handler {
	r := mux.NewRouter()
	r.Use(instrument)

	r.HandleFunc("/healthz", app.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", app.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/zones", app.listZones).Methods(http.MethodGet)
	r.HandleFunc("/zones/{id}", app.getZone).Methods(http.MethodGet)

	r.HandleFunc("/recommendations", app.listRecommendations).Methods(http.MethodGet)
	r.HandleFunc("/recommendations/refresh", app.refreshRecommendations).Methods(http.MethodPost)
	r.HandleFunc("/recommendations/{id}/{action:approve|reject}", app.decideRecommendation).Methods(http.MethodPost)

	r.HandleFunc("/plant-health", app.plantHealth).Methods(http.MethodPost)
	r.HandleFunc("/yield/predict", app.predictYield).Methods(http.MethodPost)

	h := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(r)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(h)
	return handlers.CombinedLoggingHandler(accessLog{app}, h)
}

// accessLog routes gorilla's Apache-style lines through zerolog at debug level.
type accessLog struct{ app *App }

func (l accessLog) Write(p []byte) (int, error) {
	l.app.Log.Debug().Msg(string(trimNewline(p)))
	return len(p), nil
}

func trimNewline(p []byte) []byte {
	if n := len(p); n > 0 && p[n-1] == '\n' {
		return p[:n-1]
	}
	return p
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.HttpRequestLatencySeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
