// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/stayapp/stay-middleware/internal/strapi"
)

type createTopicRequest struct {
	Name         string          `json:"name"`
	Subject      strapi.ID       `json:"subject"`
	OwnerProfile strapi.ID       `json:"ownerProfile"`
	Section      json.RawMessage `json:"section"`
}

type topicWrite struct {
	Name         string          `json:"name"`
	Subject      strapi.ID       `json:"subject"`
	OwnerProfile strapi.ID       `json:"ownerProfile,omitempty"`
	Section      json.RawMessage `json:"section,omitempty"`
}

// CreateTopic creates a catalog topic. A topic with an ownerProfile is
// personal to that profile; without one it is shared.
func (h *Handler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.Name == "" || req.Subject.IsZero() {
		respondBadRequest(w, "Name and subject are required")
		return
	}

	write := topicWrite{
		Name:         req.Name,
		Subject:      req.Subject,
		OwnerProfile: req.OwnerProfile,
		Section:      req.Section,
	}
	raw, err := h.content.Post(r.Context(), "/api/topics", strapi.Payload{Data: write})
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// GetTopics lists topics, optionally narrowed by subject and by a
// substring of the name.
func (h *Handler) GetTopics(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	q := strapi.NewQuery().Populate("*")
	if subject := params.Get("subject"); subject != "" {
		q.Eq("subject", subject)
	}
	if name := params.Get("name"); name != "" {
		q.Contains("name", name)
	}
	passthrough(q, params)

	raw, err := h.content.Get(r.Context(), "/api/topics", q.Values())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// DeleteTopic removes a topic by document identifier.
func (h *Handler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentId")

	raw, err := h.content.Delete(r.Context(), "/api/topics/"+id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}
