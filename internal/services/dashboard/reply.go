package dashboard

import (
	"encoding/json"
	"net/http"
)

func replyJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func replyError(w http.ResponseWriter, status int, msg string) {
	replyJSON(w, status, map[string]any{"error": msg})
}
