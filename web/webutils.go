package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type jsonError struct {
	Error string `json:"error"`
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Debug("error writing response", "error", err)
	}
}

// writeError reports err as {"error": "..."} with the given status code.
func writeError(w http.ResponseWriter, status int, err error) {
	data, _ := json.Marshal(jsonError{Error: err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Debug("error writing response", "error", err)
	}
}
