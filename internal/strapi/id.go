// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package strapi

import (
	"fmt"
	"strings"
)

// ID is a record identifier that clients send either as a JSON number
// (numeric id) or a JSON string (documentId). It keeps the textual form
// for filter values and re-emits numerics as numbers on marshal.
type ID string

// UnmarshalJSON accepts both string and number forms.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) >= 2 {
		*id = ID(s[1 : len(s)-1])
		return nil
	}
	*id = ID(s)
	return nil
}

// MarshalJSON emits a number when the value is purely numeric, a string
// otherwise.
func (id ID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if s == "" {
		return []byte(`""`), nil
	}
	if isDigits(s) {
		return []byte(s), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

// String returns the textual form, suitable for filter values and paths.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return id == ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
