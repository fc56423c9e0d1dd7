// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/stayapp/stay-middleware/internal/strapi"
)

// GetUser looks up users by email on the users-permissions surface.
// Responses from that plugin are bare arrays, not data envelopes; they
// pass through as-is.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	email := params.Get("email")
	if email == "" {
		respondBadRequest(w, "Email is required")
		return
	}

	q := strapi.NewQuery().AndEq(0, "email", email)
	if lastSync := params.Get("lastSync"); lastSync != "" {
		q.UpdatedSince(lastSync)
	}
	if populate := params.Get("populate"); populate != "" {
		q.Populate(populate)
	}
	passthrough(q, params)

	raw, err := h.user.Get(r.Context(), "/api/users", q.Values())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// CreateUser registers a new user. The upstream requires a username, so
// the email doubles as one.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(r, &req); err != nil || req.Email == "" || req.Password == "" {
		respondBadRequest(w, "Email and password are required")
		return
	}

	body := map[string]string{
		"email":    req.Email,
		"username": req.Email,
		"password": req.Password,
		"name":     req.Name,
	}
	raw, err := h.user.Post(r.Context(), "/api/auth/local/register", body)
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Login exchanges credentials for a JWT. The upstream auth endpoint
// rejects requests that carry an API token, so no bearer is attached.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil || req.Identifier == "" || req.Password == "" {
		respondBadRequest(w, "Identifier and password are required")
		return
	}

	raw, err := h.user.PostNoAuth(r.Context(), "/api/auth/local", req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

type updateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UpdateUser renames a user, resolved by email first.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeBody(r, &req); err != nil || req.Email == "" {
		respondBadRequest(w, "Email is required")
		return
	}

	user, err := h.lookupUserByEmail(r, req.Email)
	if err != nil {
		respondError(w, err)
		return
	}
	if user == nil {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "User not found"})
		return
	}

	raw, err := h.user.Put(r.Context(), "/api/users/"+user.ID.String(), map[string]string{"name": req.Name})
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

type deleteUserRequest struct {
	Email string `json:"email"`
}

// DeleteUser removes a user, resolved by email first.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	var req deleteUserRequest
	if err := decodeBody(r, &req); err != nil || req.Email == "" {
		respondBadRequest(w, "Email is required")
		return
	}

	user, err := h.lookupUserByEmail(r, req.Email)
	if err != nil {
		respondError(w, err)
		return
	}
	if user == nil {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "User not found"})
		return
	}

	raw, err := h.user.Delete(r.Context(), "/api/users/"+user.ID.String())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

type userRecord struct {
	ID strapi.ID `json:"id"`
}

// lookupUserByEmail finds the user record for an email. A nil result
// with nil error means no such user.
func (h *Handler) lookupUserByEmail(r *http.Request, email string) (*userRecord, error) {
	q := strapi.NewQuery().AndEq(0, "email", email)
	raw, err := h.user.Get(strapi.WithQuiet404(r.Context()), "/api/users", q.Values())
	if err != nil {
		return nil, err
	}

	var users []userRecord
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}
