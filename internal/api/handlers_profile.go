// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/stayapp/stay-middleware/internal/coordinator"
	"github.com/stayapp/stay-middleware/internal/strapi"
)

// GetProfiles lists profiles by owning user email, fully populated.
func (h *Handler) GetProfiles(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	email := params.Get("email")
	if email == "" {
		respondBadRequest(w, "Email is required")
		return
	}

	q := strapi.NewQuery().
		Populate("*").
		Eq("user.email", email)
	if lastSync := params.Get("lastSync"); lastSync != "" {
		q.UpdatedSince(lastSync)
	}
	passthrough(q, params)

	raw, err := h.content.Get(r.Context(), "/api/profiles", q.Values())
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// profileRequest is the inbound profile body. Passthrough fields keep
// their raw JSON so absent, null and typed values survive unchanged;
// interpreted fields are typed. Clients may wrap the body in a "data"
// envelope or send it flat.
type profileRequest struct {
	ExamType               json.RawMessage `json:"examType,omitempty"`
	ExamDate               json.RawMessage `json:"examDate,omitempty"`
	StudyMode              json.RawMessage `json:"studyMode,omitempty"`
	IsInstituteLinked      json.RawMessage `json:"isInstituteLinked,omitempty"`
	College                json.RawMessage `json:"college,omitempty"`
	CollegeEmail           string          `json:"collegeEmail,omitempty"`
	Year                   json.RawMessage `json:"year,omitempty"`
	RollNo                 json.RawMessage `json:"rollNo,omitempty"`
	DailyTopicLimit        json.RawMessage `json:"dailyTopicLimit,omitempty"`
	DefaultSessionDuration json.RawMessage `json:"defaultSessionDuration,omitempty"`
	VivaCount              json.RawMessage `json:"vivaCount,omitempty"`
	User                   strapi.ID       `json:"user,omitempty"`

	// ClassCode drives the classroom-membership sub-protocol: absent
	// leaves membership alone, "" clears it, a code adds or removes one
	// classroom per ClassCodeOp.
	ClassCode   *string `json:"classCode,omitempty"`
	ClassCodeOp string  `json:"classCodeOp,omitempty"`
}

// profileWrite is the outgoing payload. Fields absent from the request
// stay absent here; the upstream rejects explicit nulls on some of them.
type profileWrite struct {
	ExamType               json.RawMessage `json:"examType,omitempty"`
	ExamDate               json.RawMessage `json:"examDate,omitempty"`
	StudyMode              json.RawMessage `json:"studyMode,omitempty"`
	IsInstituteLinked      json.RawMessage `json:"isInstituteLinked,omitempty"`
	College                json.RawMessage `json:"college,omitempty"`
	CollegeEmail           string          `json:"collegeEmail,omitempty"`
	Year                   json.RawMessage `json:"year,omitempty"`
	RollNo                 json.RawMessage `json:"rollNo,omitempty"`
	DailyTopicLimit        json.RawMessage `json:"dailyTopicLimit,omitempty"`
	DefaultSessionDuration json.RawMessage `json:"defaultSessionDuration,omitempty"`
	VivaCount              json.RawMessage `json:"vivaCount,omitempty"`
	User                   strapi.ID       `json:"user,omitempty"`
	Institute              strapi.ID       `json:"institute,omitempty"`

	// Classrooms is a pointer so "write an empty list" (clear) and
	// "leave untouched" (omit) stay distinct on the wire.
	Classrooms *[]strapi.ID `json:"classrooms,omitempty"`
}

var rawTrue = json.RawMessage(`true`)

// decodeProfileBody accepts both the flat and the data-wrapped form.
func decodeProfileBody(r *http.Request) (*profileRequest, error) {
	var outer struct {
		Data json.RawMessage `json:"data"`
	}
	var buf json.RawMessage
	if err := decodeBody(r, &buf); err != nil {
		return nil, err
	}
	body := buf
	if err := json.Unmarshal(buf, &outer); err == nil && len(outer.Data) > 0 {
		body = outer.Data
	}

	var req profileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (req *profileRequest) write() profileWrite {
	return profileWrite{
		ExamType:               req.ExamType,
		ExamDate:               req.ExamDate,
		StudyMode:              req.StudyMode,
		IsInstituteLinked:      req.IsInstituteLinked,
		College:                req.College,
		CollegeEmail:           req.CollegeEmail,
		Year:                   req.Year,
		RollNo:                 req.RollNo,
		DailyTopicLimit:        req.DailyTopicLimit,
		DefaultSessionDuration: req.DefaultSessionDuration,
		VivaCount:              req.VivaCount,
		User:                   req.User,
	}
}

func classOp(req *profileRequest) coordinator.ClassOp {
	if req.ClassCodeOp == string(coordinator.ClassOpRemove) {
		return coordinator.ClassOpRemove
	}
	return coordinator.ClassOpAdd
}

// CreateProfile creates a profile, auto-linking an institute by the
// college email domain and a classroom by class code when supplied.
// Both links are best effort: a miss never blocks the create.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	req, err := decodeProfileBody(r)
	if err != nil || req.User.IsZero() {
		respondBadRequest(w, "User is required")
		return
	}

	write := req.write()
	if req.CollegeEmail != "" {
		if instituteID, ok := h.coord.LinkInstituteByEmail(r.Context(), req.CollegeEmail); ok {
			write.Institute = instituteID
			write.IsInstituteLinked = rawTrue
		}
	}
	if members, changed := h.coord.ApplyClassCode(r.Context(), nil, req.ClassCode, classOp(req)); changed {
		write.Classrooms = &members
	}

	raw, err := h.content.Post(r.Context(), "/api/profiles", strapi.Payload{Data: write})
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// UpdateProfile updates a profile. Identity fields (user, exam type and
// date) are not updatable here. The institute link only forces
// isInstituteLinked when the caller did not set it explicitly.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileId")

	req, err := decodeProfileBody(r)
	if err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	write := req.write()
	write.ExamType = nil
	write.ExamDate = nil
	write.User = ""

	if req.CollegeEmail != "" {
		if instituteID, ok := h.coord.LinkInstituteByEmail(r.Context(), req.CollegeEmail); ok {
			write.Institute = instituteID
			if len(req.IsInstituteLinked) == 0 {
				write.IsInstituteLinked = rawTrue
			}
		}
	}

	if req.ClassCode != nil {
		current, err := h.coord.ProfileClassrooms(r.Context(), strapi.ID(profileID))
		if err != nil {
			respondError(w, err)
			return
		}
		if members, changed := h.coord.ApplyClassCode(r.Context(), current, req.ClassCode, classOp(req)); changed {
			write.Classrooms = &members
		}
	}

	raw, err := h.content.Put(r.Context(), "/api/profiles/"+profileID, strapi.Payload{Data: write})
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// DeleteProfile removes a profile by id.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileId")

	raw, err := h.content.Delete(r.Context(), "/api/profiles/"+profileID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}
