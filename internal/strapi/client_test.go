// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package strapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	json "github.com/goccy/go-json"
)

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret-token", nil)
	_, err := c.Get(context.Background(), "/api/profiles", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret-token")
	}
}

func TestClientPostNoAuthOmitsHeader(t *testing.T) {
	var hadAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		w.Write([]byte(`{"jwt":"x","user":{}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret-token", nil)
	_, err := c.PostNoAuth(context.Background(), "/api/auth/local", map[string]string{
		"identifier": "ada@example.com",
		"password":   "pw",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hadAuth {
		t.Error("Authorization header sent on no-auth request")
	}
}

func TestClientEncodesQueryAndBody(t *testing.T) {
	var gotQuery url.Values
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&gotBody)
		}
		w.Write([]byte(`{"data":{"id":1}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "t", nil)

	q := NewQuery().Eq("classCode", "XK42").Values()
	if _, err := c.Get(context.Background(), "/api/classrooms", q); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := gotQuery.Get("filters[classCode][$eq]"); got != "XK42" {
		t.Errorf("query param = %q, want XK42", got)
	}

	body := Payload{Data: map[string]any{"name": "Optics"}}
	if _, err := c.Post(context.Background(), "/api/topics", body); err != nil {
		t.Fatalf("post: %v", err)
	}
	data, ok := gotBody["data"].(map[string]any)
	if !ok || data["name"] != "Optics" {
		t.Errorf("body = %v, want data.name=Optics", gotBody)
	}
}

func TestClientParsesErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"status":400,"name":"ValidationError","message":"email must be unique"}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "t", nil)
	_, err := c.Post(context.Background(), "/api/auth/local/register", map[string]string{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", apiErr.Status)
	}
	if apiErr.Message != "email must be unique" {
		t.Errorf("Message = %q, want upstream message", apiErr.Message)
	}
}

func TestClientUnparseableErrorBodyFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "t", nil)
	_, err := c.Get(context.Background(), "/api/articles", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", apiErr.Status)
	}
	if apiErr.Message != "Internal Server Error" {
		t.Errorf("Message = %q, want generic fallback", apiErr.Message)
	}
}

func TestClientTransportErrorIs500(t *testing.T) {
	// Closed server: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := NewClient(server.URL, "t", nil)
	_, err := c.Get(context.Background(), "/api/articles", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", apiErr.Status)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(&APIError{Status: 404, Message: "Not Found"}) {
		t.Error("IsNotFound(404) = false, want true")
	}
	if IsNotFound(&APIError{Status: 500, Message: "x"}) {
		t.Error("IsNotFound(500) = true, want false")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("IsNotFound(plain error) = true, want false")
	}
}

func TestDecodeHelpers(t *testing.T) {
	raw := json.RawMessage(`{"data":[{"id":7,"documentId":"abc","attributes":{}}],"meta":{}}`)

	entries, err := DecodeList(raw)
	if err != nil {
		t.Fatalf("DecodeList: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("DecodeList entries = %d, want 1", len(entries))
	}

	recs, err := DecodeRecords(raw)
	if err != nil {
		t.Fatalf("DecodeRecords: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != 7 || recs[0].DocumentID != "abc" {
		t.Errorf("DecodeRecords = %+v, want id=7 documentId=abc", recs)
	}
}
