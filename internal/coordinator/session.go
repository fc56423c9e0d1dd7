// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package coordinator

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/stayapp/stay-middleware/internal/strapi"
)

// SessionKey is the natural key of a study session: one record per
// (user-topic, scheduled date) pair.
type SessionKey struct {
	UserTopicID  strapi.ID
	ScheduledFor string
}

// SessionFields are the optional creation fields, omitted when nil.
type SessionFields struct {
	IsPaused             *bool     `json:"isPaused,omitempty"`
	TimeTakenForRevision *int      `json:"timeTakenForRevision,omitempty"`
	TimeTakenForActivity *int      `json:"timeTakenForActivity,omitempty"`
	TimeAllotted         *int      `json:"timeAllotted,omitempty"`
	ScoreActivity        *float64  `json:"scoreActivity,omitempty"`
	DifficultyLevel      *string   `json:"difficultyLevel,omitempty"`
	StayTopicID          strapi.ID `json:"stayTopicId,omitempty"`
}

type sessionCreate struct {
	SessionFields
	UserTopic    strapi.ID `json:"user_topic"`
	ScheduledFor string    `json:"scheduledFor"`
}

// FindOrCreateSession looks up the session for the key and creates it
// when absent. The existence probe never applies incremental-sync
// filtering; the key alone decides identity. The returned body always
// has the lookup response shape ({"data": [...]}).
func (c *Coordinator) FindOrCreateSession(ctx context.Context, key SessionKey, fields SessionFields) (json.RawMessage, bool, error) {
	query := strapi.NewQuery().
		Eq("user_topic.id", key.UserTopicID.String()).
		Eq("scheduledFor", key.ScheduledFor).
		Limit(1)

	found, err := c.content.Get(strapi.WithQuiet404(ctx), "/api/study-sessions", query.Values())
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

	payload := strapi.Payload{Data: sessionCreate{
		SessionFields: fields,
		UserTopic:     key.UserTopicID,
		ScheduledFor:  key.ScheduledFor,
	}}
	created, err := c.content.Post(ctx, "/api/study-sessions", payload)
	if err != nil {
		return nil, false, err
	}

	normalized, err := asListShape(created)
	if err != nil {
		return nil, false, err
	}
	return normalized, true, nil
}
