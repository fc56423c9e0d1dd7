// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/stayapp/stay-middleware/internal/strapi"
)

// analysisWrite carries the AI analysis fields verbatim, omitting
// whatever the client did not send.
type analysisWrite struct {
	WeakPoints        json.RawMessage `json:"weakPoints,omitempty"`
	BlindSpots        json.RawMessage `json:"blindSpots,omitempty"`
	StrongPoints      json.RawMessage `json:"strongPoints,omitempty"`
	Metrics           json.RawMessage `json:"metrics,omitempty"`
	AreaOfImprovement json.RawMessage `json:"areaOfImprovement,omitempty"`
	Transcription     json.RawMessage `json:"transcription,omitempty"`
	StudySession      strapi.ID       `json:"study_session,omitempty"`
}

// CreateAnalysis stores a session analysis.
func (h *Handler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisWrite
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	raw, err := h.content.Post(r.Context(), "/api/analyses", strapi.Payload{Data: req})
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// GetAnalyses lists analyses. sessionId is sugar for the session filter;
// anything else forwards to the upstream unchanged.
func (h *Handler) GetAnalyses(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	q := strapi.NewQuery()
	if sessionID := params.Get("sessionId"); sessionID != "" {
		q.Eq("study_session.id", sessionID)
	}
	passthrough(q, params)

	raw, err := h.content.Get(r.Context(), "/api/analyses", q.Values())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}
