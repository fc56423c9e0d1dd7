// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package coordinator implements the multi-step upstream workflows:
// find-or-create upserts keyed by natural keys (user-topic, study
// session), institute auto-linking by email domain, classroom membership
// by class code, and the class-wide topic assignment fold.
//
// None of the workflows are transactional. A crash between steps can
// leave partial state upstream (for example a classroom linked to a
// topic with only some students assigned); callers retry by re-running
// the request, which the upserts make safe.
package coordinator

import (
	"strconv"
	"time"

	"github.com/stayapp/stay-middleware/internal/strapi"
)

// Coordinator runs the find-or-create and auto-link workflows against
// the content-scoped upstream client.
type Coordinator struct {
	content *strapi.Client

	// now is the clock used for "today" scheduling. Overridable in tests.
	now func() time.Time
}

// New builds a Coordinator over the content-scoped client.
func New(content *strapi.Client) *Coordinator {
	return &Coordinator{
		content: content,
		now:     time.Now,
	}
}

// WithClock replaces the coordinator's clock. For tests.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// today returns the current day at midnight UTC in the upstream's
// ISO timestamp form, the value used for same-day session scheduling.
func (c *Coordinator) today() string {
	t := c.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Format("2006-01-02T15:04:05.000Z")
}

// numericID converts an upstream record's numeric id into the textual
// identifier form used in filters and payloads.
func numericID(r strapi.Record) strapi.ID {
	return strapi.ID(strconv.Itoa(r.ID))
}
