// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stayapp/stay-middleware/internal/coordinator"
	"github.com/stayapp/stay-middleware/internal/strapi"
)

type findOrCreateUserTopicRequest struct {
	TopicID   strapi.ID `json:"topicId"`
	ProfileID strapi.ID `json:"profileId"`

	coordinator.UserTopicFields
}

// FindOrCreateUserTopic upserts the user-topic keyed by (topic, profile).
func (h *Handler) FindOrCreateUserTopic(w http.ResponseWriter, r *http.Request) {
	var req findOrCreateUserTopicRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.TopicID.IsZero() || req.ProfileID.IsZero() {
		respondBadRequest(w, "topicId and profileId are required")
		return
	}

	raw, _, err := h.coord.FindOrCreateUserTopic(r.Context(),
		coordinator.UserTopicKey{TopicID: req.TopicID, ProfileID: req.ProfileID},
		req.UserTopicFields)
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// GetUserTopics lists a profile's user-topics, projected to the sync
// fields with topic names and session ids populated.
func (h *Handler) GetUserTopics(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	profileID := params.Get("profileId")
	if profileID == "" {
		respondBadRequest(w, "profileId is required")
		return
	}

	q := strapi.NewQuery().
		Fields("memoryLocation", "lastSession", "nextSession", "timeTotal",
			"timeRemaining", "revisionsDone", "documentId").
		PopulateFields("topic", "name", "section").
		PopulateFields("sessions", "id").
		Eq("profile.documentId", profileID).
		Limit(5000)
	if lastSync := params.Get("lastSync"); lastSync != "" {
		q.UpdatedSince(lastSync)
	}
	passthrough(q, params)

	raw, err := h.content.Get(r.Context(), "/api/user-topics", q.Values())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// DeleteUserTopic removes a user-topic by identifier.
func (h *Handler) DeleteUserTopic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userTopicId")

	raw, err := h.content.Delete(r.Context(), "/api/user-topics/"+id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}
