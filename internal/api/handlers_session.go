// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/stayapp/stay-middleware/internal/coordinator"
	"github.com/stayapp/stay-middleware/internal/strapi"
)

type findOrCreateSessionRequest struct {
	UserTopicID  strapi.ID `json:"userTopicId"`
	ScheduledFor string    `json:"scheduledFor"`

	// ID and StayTopicID both name the client-side topic; either works,
	// ID wins when both are present.
	ID          strapi.ID `json:"id"`
	StayTopicID strapi.ID `json:"stayTopicId"`

	coordinator.SessionFields
}

// FindOrCreateSession upserts a study session keyed by
// (user-topic, scheduled date).
func (h *Handler) FindOrCreateSession(w http.ResponseWriter, r *http.Request) {
	var req findOrCreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.UserTopicID.IsZero() || req.ScheduledFor == "" {
		respondBadRequest(w, "userTopicId and scheduledFor are required")
		return
	}
	stayID := req.ID
	if stayID.IsZero() {
		stayID = req.StayTopicID
	}
	if stayID.IsZero() {
		respondBadRequest(w, "id or stayTopicId is required")
		return
	}

	fields := req.SessionFields
	fields.StayTopicID = stayID

	raw, _, err := h.coord.FindOrCreateSession(r.Context(),
		coordinator.SessionKey{UserTopicID: req.UserTopicID, ScheduledFor: req.ScheduledFor},
		fields)
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// GetSessions lists sessions for a user-topic or, transitively, for all
// the user-topics of a profile.
func (h *Handler) GetSessions(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	userTopicID := params.Get("userTopicId")
	profileID := params.Get("profileId")
	if userTopicID == "" && profileID == "" {
		respondBadRequest(w, "userTopicId or profileId is required")
		return
	}

	q := strapi.NewQuery().
		Populate("*").
		Fields("id", "isPaused", "scheduledFor", "timeTakenForRevision",
			"timeTakenForActivity", "timeAllotted", "scoreActivity",
			"difficultyLevel", "stayTopicId").
		Limit(5000)
	if userTopicID != "" {
		q.Eq("user_topic.id", userTopicID)
	} else {
		q.Eq("user_topic.profile.id", profileID)
	}
	if lastSync := params.Get("lastSync"); lastSync != "" {
		q.UpdatedSince(lastSync)
	}
	passthrough(q, params)

	raw, err := h.content.Get(r.Context(), "/api/study-sessions", q.Values())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}
