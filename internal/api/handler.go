// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api exposes the client-facing HTTP surface: one handlers file
// per resource, each translating simplified inbound parameters into the
// upstream filter dialect and forwarding the upstream body verbatim.
package api

import (
	"net/url"

	"github.com/stayapp/stay-middleware/internal/coordinator"
	"github.com/stayapp/stay-middleware/internal/strapi"
)

// Handler carries the upstream client pool and the workflow coordinator
// into the route handlers. Constructed once at startup and shared.
type Handler struct {
	content *strapi.Client
	user    *strapi.Client
	coord   *coordinator.Coordinator
}

// NewHandler builds the handler set over the scoped clients.
func NewHandler(clients *strapi.Clients) *Handler {
	return &Handler{
		content: clients.Content,
		user:    clients.User,
		coord:   coordinator.New(clients.Content),
	}
}

// reservedParams are inbound query keys the handlers interpret
// themselves; everything else is forwarded to the upstream unchanged.
var reservedParams = map[string]bool{
	"email":       true,
	"lastSync":    true,
	"populate":    true,
	"exam":        true,
	"subject":     true,
	"name":        true,
	"userTopicId": true,
	"profileId":   true,
	"instituteId": true,
	"sessionId":   true,
	"classId":     true,
	"topicId":     true,
}

// passthrough copies the inbound parameters the middleware does not
// interpret, for forward compatibility with upstream schema additions.
func passthrough(q *strapi.Query, inbound url.Values) {
	rest := url.Values{}
	for key, vals := range inbound {
		if reservedParams[key] {
			continue
		}
		rest[key] = vals
	}
	q.Merge(rest)
}
