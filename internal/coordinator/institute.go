// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package coordinator

import (
	"context"
	"strings"

	"github.com/stayapp/stay-middleware/internal/logging"
	"github.com/stayapp/stay-middleware/internal/strapi"
)

// LinkInstituteByEmail resolves an institute from the domain of a
// college email address. A miss or a lookup failure is never fatal:
// the profile write proceeds unlinked, so the error is logged here and
// swallowed.
func (c *Coordinator) LinkInstituteByEmail(ctx context.Context, email string) (strapi.ID, bool) {
	domain := emailDomain(email)
	if domain == "" {
		return "", false
	}

	query := strapi.NewQuery().
		Eq("emaildomain", domain).
		Fields("id")

	raw, err := c.content.Get(strapi.WithQuiet404(ctx), "/api/institutes", query.Values())
	if err != nil {
		log := logging.Ctx(ctx)
		log.Debug().Err(err).
			Str("domain", domain).
			Msg("institute lookup failed, proceeding unlinked")
		return "", false
	}

	records, err := strapi.DecodeRecords(raw)
	if err != nil || len(records) == 0 {
		return "", false
	}
	return numericID(records[0]), true
}

// emailDomain extracts the part after '@', lower-cased and trimmed.
// Returns "" when the input has no domain part.
func emailDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return ""
	}
	return strings.TrimSpace(strings.ToLower(domain))
}
