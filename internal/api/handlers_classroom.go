// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/stayapp/stay-middleware/internal/strapi"
)

// GetClassrooms lists an institute's classrooms, fully populated.
func (h *Handler) GetClassrooms(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	instituteID := params.Get("instituteId")
	if instituteID == "" {
		respondBadRequest(w, "instituteId is required")
		return
	}

	q := strapi.NewQuery().
		Eq("institute.id", instituteID).
		Populate("*")
	passthrough(q, params)

	raw, err := h.content.Get(r.Context(), "/api/classrooms", q.Values())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// GetClassroomByCode resolves a classroom from its join code, with the
// relations a joining student needs populated deeply.
func (h *Handler) GetClassroomByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "classCode")

	q := strapi.NewQuery().
		Eq("classCode", code).
		PopulateList("students.user", "teachers", "institute", "topics", "topics.subject")

	raw, err := h.content.Get(r.Context(), "/api/classrooms", q.Values())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

type createClassroomRequest struct {
	Name      string          `json:"name"`
	Exam      json.RawMessage `json:"exam"`
	ClassCode string          `json:"classCode"`
	Institute strapi.ID       `json:"institute"`
}

// CreateClassroom creates a classroom owned by the calling teacher. The
// caller's own JWT resolves who that is; the classroom write itself
// runs under the content scope.
func (h *Handler) CreateClassroom(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "Authorization header is required"})
		return
	}

	var req createClassroomRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.Name == "" || req.ClassCode == "" || req.Institute.IsZero() {
		respondBadRequest(w, "Name, classCode and institute are required")
		return
	}

	bearer := strings.TrimPrefix(auth, "Bearer ")
	me, err := h.user.GetAs(r.Context(), "/api/users/me", nil, bearer)
	if err != nil {
		respondError(w, err)
		return
	}
	var caller struct {
		ID strapi.ID `json:"id"`
	}
	if err := json.Unmarshal(me, &caller); err != nil || caller.ID.IsZero() {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "Could not resolve user"})
		return
	}

	write := map[string]any{
		"name":      req.Name,
		"classCode": req.ClassCode,
		"institute": req.Institute,
		"teachers":  []strapi.ID{caller.ID},
	}
	if len(req.Exam) > 0 {
		write["exam"] = req.Exam
	}

	raw, err := h.content.Post(r.Context(), "/api/classrooms", strapi.Payload{Data: write})
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

type updateClassroomRequest struct {
	Name string `json:"name"`
}

// UpdateClassroom renames a classroom.
func (h *Handler) UpdateClassroom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateClassroomRequest
	if err := decodeBody(r, &req); err != nil || req.Name == "" {
		respondBadRequest(w, "Name is required")
		return
	}

	raw, err := h.content.Put(r.Context(), "/api/classrooms/"+id,
		strapi.Payload{Data: map[string]string{"name": req.Name}})
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}
