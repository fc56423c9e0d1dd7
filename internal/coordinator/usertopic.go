// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package coordinator

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/stayapp/stay-middleware/internal/strapi"
)

// UserTopicKey is the natural key of a user-topic: one record per
// (topic, profile) pair.
type UserTopicKey struct {
	TopicID   strapi.ID
	ProfileID strapi.ID
}

// UserTopicFields are the optional creation fields. Pointer fields that
// are nil are omitted from the payload entirely; the upstream rejects
// explicit nulls on some of them.
type UserTopicFields struct {
	MemoryLocation      *string `json:"memoryLocation,omitempty"`
	LastSession         *string `json:"lastSession,omitempty"`
	NextSession         *string `json:"nextSession,omitempty"`
	TimeTotal           *int    `json:"timeTotal,omitempty"`
	TimeRemaining       *int    `json:"timeRemaining,omitempty"`
	RevisionsDone       *int    `json:"revisionsDone,omitempty"`
	TeacherInstructions *string `json:"teacherInstructions,omitempty"`
}

type userTopicCreate struct {
	UserTopicFields
	Topic   strapi.ID `json:"topic"`
	Profile strapi.ID `json:"profile"`
}

// FindOrCreateUserTopic looks up the user-topic for the key and creates
// it when absent. The returned body always has the lookup response shape
// ({"data": [...]}), whether the record was found or just created.
func (c *Coordinator) FindOrCreateUserTopic(ctx context.Context, key UserTopicKey, fields UserTopicFields) (json.RawMessage, bool, error) {
	query := strapi.NewQuery().
		Eq("topic.id", key.TopicID.String()).
		Eq("profile.id", key.ProfileID.String()).
		Limit(1)

	found, err := c.content.Get(strapi.WithQuiet404(ctx), "/api/user-topics", query.Values())
	if err != nil {
		return nil, false, err
	}

	entries, err := strapi.DecodeList(found)
	if err != nil {
		return nil, false, err
	}
	if len(entries) > 0 {
		return found, false, nil
	}

	payload := strapi.Payload{Data: userTopicCreate{
		UserTopicFields: fields,
		Topic:           key.TopicID,
		Profile:         key.ProfileID,
	}}
	created, err := c.content.Post(ctx, "/api/user-topics", payload)
	if err != nil {
		return nil, false, err
	}

	normalized, err := asListShape(created)
	if err != nil {
		return nil, false, err
	}
	return normalized, true, nil
}

// asListShape rewraps a single-record create response ({"data": {...}})
// into the collection shape ({"data": [...]}) so callers see one shape
// regardless of which branch ran.
func asListShape(raw json.RawMessage) (json.RawMessage, error) {
	var env strapi.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	list := strapi.ListEnvelope{Data: []json.RawMessage{env.Data}}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		list.Data = []json.RawMessage{}
	}
	return json.Marshal(list)
}
