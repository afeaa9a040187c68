package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"fitplan"
)

func writeOutcome(w http.ResponseWriter, status int, outcome fitplan.Outcome) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		slog.Error("HTTP: Failed to encode outcome", "error", err)
	}
}
