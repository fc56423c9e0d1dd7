// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/stayapp/stay-middleware/internal/strapi"
)

type assignTopicRequest struct {
	ClassID             strapi.ID `json:"classId"`
	TopicID             strapi.ID `json:"topicId"`
	TeacherInstructions string    `json:"teacherInstructions"`
}

type assignStats struct {
	TotalStudents int `json:"totalStudents"`
	Created       int `json:"created"`
	Updated       int `json:"updated"`
}

// AssignTopicToClass assigns a topic to every student of a classroom,
// upserting a user-topic and a same-day study session per student. One
// student's failure never fails the request; it only shows in the
// counts.
func (h *Handler) AssignTopicToClass(w http.ResponseWriter, r *http.Request) {
	var req assignTopicRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.ClassID.IsZero() || req.TopicID.IsZero() {
		respondBadRequest(w, "classId and topicId are required")
		return
	}

	result, err := h.coord.AssignTopicToClass(r.Context(), req.ClassID, req.TopicID, req.TeacherInstructions)
	if err != nil {
		if strapi.IsNotFound(err) {
			respondJSON(w, http.StatusNotFound, errorResponse{Error: "Classroom not found"})
			return
		}
		respondError(w, err)
		return
	}

	if result.Total == 0 {
		respondJSON(w, http.StatusOK, map[string]any{
			"message": "No students in classroom",
			"count":   0,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Assignment complete",
		"stats": assignStats{
			TotalStudents: result.Total,
			Created:       result.Created,
			Updated:       result.Updated,
		},
	})
}

// GetTopicStats reports a topic's memory-location histogram across a
// classroom.
func (h *Handler) GetTopicStats(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	classID := params.Get("classId")
	topicID := params.Get("topicId")
	if classID == "" || topicID == "" {
		respondBadRequest(w, "classId and topicId are required")
		return
	}

	stats, err := h.coord.ClassTopicStats(r.Context(), strapi.ID(classID), strapi.ID(topicID))
	if err != nil {
		if strapi.IsNotFound(err) {
			respondJSON(w, http.StatusNotFound, errorResponse{Error: "Classroom not found"})
			return
		}
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"stats":               stats.Stats,
		"totalStudents":       stats.TotalStudents,
		"assignedCount":       stats.AssignedCount,
		"teacherInstructions": stats.TeacherInstructions,
	})
}

// UpdateTopicInstructions rewrites the teacher instructions on every
// assigned student's user-topic for the topic.
func (h *Handler) UpdateTopicInstructions(w http.ResponseWriter, r *http.Request) {
	var req assignTopicRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.ClassID.IsZero() || req.TopicID.IsZero() {
		respondBadRequest(w, "classId and topicId are required")
		return
	}

	updated, err := h.coord.UpdateClassInstructions(r.Context(), req.ClassID, req.TopicID, req.TeacherInstructions)
	if err != nil {
		if strapi.IsNotFound(err) {
			respondJSON(w, http.StatusNotFound, errorResponse{Error: "Classroom not found"})
			return
		}
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":      "Instructions updated",
		"updatedCount": updated,
	})
}
