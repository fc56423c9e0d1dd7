// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/stayapp/stay-middleware/internal/strapi"
)

// GetExams lists exam names only.
func (h *Handler) GetExams(w http.ResponseWriter, r *http.Request) {
	q := strapi.NewQuery().Fields("name")

	raw, err := h.content.Get(r.Context(), "/api/exams", q.Values())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// GetSubjects lists the subjects of one exam, with their topics
// projected to section and name. The exam relation is populated
// filtered to the requested exam so each subject carries exactly one
// exam entry.
func (h *Handler) GetSubjects(w http.ResponseWriter, r *http.Request) {
	exam := r.URL.Query().Get("exam")
	if exam == "" {
		respondBadRequest(w, "Exam is required")
		return
	}

	q := strapi.NewQuery().
		Fields("name").
		Eq("exams.name", exam).
		PopulateFields("topics", "section", "name").
		PopulateFields("exams", "name").
		PopulateFilterEq("exams", "name", exam)

	raw, err := h.content.Get(r.Context(), "/api/subjects", q.Values())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}
