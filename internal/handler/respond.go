// Package handler exposes the service layer over HTTP.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:    string(apperrors.CodeOf(err)),
		Message: msg,
	}})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid request body"))
		return false
	}
	return true
}
