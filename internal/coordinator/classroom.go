// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package coordinator

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/stayapp/stay-middleware/internal/logging"
	"github.com/stayapp/stay-middleware/internal/strapi"
)

// ClassOp selects how a resolved classroom changes the membership set.
type ClassOp string

const (
	ClassOpAdd    ClassOp = "add"
	ClassOpRemove ClassOp = "remove"
)

// ApplyClassCode computes a profile's new classroom-membership list from
// a submitted class code. The two edge policies are deliberate:
//
//   - code == nil (field absent): membership is untouched.
//   - *code == "" (explicit empty string): membership is cleared entirely.
//   - non-empty code: the classroom is resolved by classCode and added to
//     (default) or removed from the current set per op. An unknown code
//     is a lookup miss, not an error: membership is left unchanged.
//
// The second return value reports whether the membership list should be
// written at all.
func (c *Coordinator) ApplyClassCode(ctx context.Context, current []strapi.ID, code *string, op ClassOp) ([]strapi.ID, bool) {
	if code == nil {
		return current, false
	}
	if *code == "" {
		return []strapi.ID{}, true
	}

	classID, ok := c.ResolveClassroomByCode(ctx, *code)
	if !ok {
		log := logging.Ctx(ctx)
		log.Debug().
			Str("classCode", *code).
			Msg("class code matched no classroom, membership unchanged")
		return current, false
	}

	if op == ClassOpRemove {
		next := make([]strapi.ID, 0, len(current))
		removed := false
		for _, id := range current {
			if id == classID {
				removed = true
				continue
			}
			next = append(next, id)
		}
		return next, removed
	}

	for _, id := range current {
		if id == classID {
			return current, false
		}
	}
	return append(append([]strapi.ID{}, current...), classID), true
}

// ResolveClassroomByCode looks up a classroom id by its unique class
// code. A miss or lookup failure returns ok=false.
func (c *Coordinator) ResolveClassroomByCode(ctx context.Context, code string) (strapi.ID, bool) {
	query := strapi.NewQuery().
		Eq("classCode", code).
		Fields("id").
		Limit(1)

	raw, err := c.content.Get(strapi.WithQuiet404(ctx), "/api/classrooms", query.Values())
	if err != nil {
		return "", false
	}
	records, err := strapi.DecodeRecords(raw)
	if err != nil || len(records) == 0 {
		return "", false
	}
	return numericID(records[0]), true
}

// ProfileClassrooms fetches a profile's current classroom membership,
// projected to ids only.
func (c *Coordinator) ProfileClassrooms(ctx context.Context, profileID strapi.ID) ([]strapi.ID, error) {
	query := strapi.NewQuery().PopulateFields("classrooms", "id")

	raw, err := c.content.Get(ctx, "/api/profiles/"+profileID.String(), query.Values())
	if err != nil {
		return nil, err
	}

	var env struct {
		Data struct {
			Classrooms []strapi.Record `json:"classrooms"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	ids := make([]strapi.ID, 0, len(env.Data.Classrooms))
	for _, rec := range env.Data.Classrooms {
		ids = append(ids, numericID(rec))
	}
	return ids, nil
}
