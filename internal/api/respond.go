// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/stayapp/stay-middleware/internal/logging"
	"github.com/stayapp/stay-middleware/internal/strapi"
)

// errorResponse is the only error envelope the middleware emits.
type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

// respondRaw forwards an upstream body verbatim.
func respondRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Error().Err(err).Msg("failed to write response")
	}
}

// respondError writes the error envelope for a failed upstream call:
// the upstream status and message when present, a generic 500 otherwise.
func respondError(w http.ResponseWriter, err error) {
	var apiErr *strapi.APIError
	if errors.As(err, &apiErr) {
		respondJSON(w, apiErr.Status, errorResponse{Error: apiErr.Message})
		return
	}
	respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
}

// respondBadRequest writes a local 400 for missing or invalid input.
// Handlers call this before any upstream request is made.
func respondBadRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// decodeBody decodes a JSON request body into dst. An empty body is an
// error; handlers treat it the same as missing required fields.
func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
