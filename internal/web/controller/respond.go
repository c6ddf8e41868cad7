package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"headless/internal/apperr"
	"headless/internal/web/middleware"
	"headless/internal/web/viewmodels"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err with its mapped status. Only server errors are
// logged; their details never reach the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("request_id", middleware.RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, viewmodels.Error{Message: apperr.Message(err)})
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id <= 0 {
		return 0, apperr.NotFound("No Page matches the given query.")
	}
	return id, nil
}

// baseURL is the scheme and host the request was made to.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
