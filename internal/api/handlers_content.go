// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stayapp/stay-middleware/internal/strapi"
)

// GetArticles proxies the article catalog with all relations populated.
func (h *Handler) GetArticles(w http.ResponseWriter, r *http.Request) {
	q := strapi.NewQuery().Populate("*")
	passthrough(q, r.URL.Query())

	raw, err := h.content.Get(r.Context(), "/api/articles", q.Values())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// GetCategory proxies a single category with all relations populated.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := strapi.NewQuery().Populate("*")

	raw, err := h.content.Get(r.Context(), "/api/categories/"+id, q.Values())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}
