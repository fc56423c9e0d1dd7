// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package strapi

import (
	"testing"

	json "github.com/goccy/go-json"
)

func TestIDUnmarshalBothForms(t *testing.T) {
	var payload struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":42,"b":"doc-abc","c":null}`), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.A != "42" {
		t.Errorf("numeric id = %q, want 42", payload.A)
	}
	if payload.B != "doc-abc" {
		t.Errorf("string id = %q, want doc-abc", payload.B)
	}
	if !payload.C.IsZero() {
		t.Errorf("null id = %q, want zero", payload.C)
	}
}

func TestIDMarshalPreservesType(t *testing.T) {
	numeric, err := json.Marshal(ID("42"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(numeric) != "42" {
		t.Errorf("numeric id marshals to %s, want 42", numeric)
	}

	doc, err := json.Marshal(ID("doc-abc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(doc) != `"doc-abc"` {
		t.Errorf("document id marshals to %s, want quoted", doc)
	}
}

func TestIDOmitemptyDropsZero(t *testing.T) {
	out, err := json.Marshal(struct {
		ID ID `json:"id,omitempty"`
	}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "{}" {
		t.Errorf("zero id serialized as %s, want omitted", out)
	}
}
