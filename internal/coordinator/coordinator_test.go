// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package coordinator

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/stayapp/stay-middleware/internal/strapi"
)

// upstreamStub is a fake Strapi that records every call and serves
// canned responses keyed by method and path.
type upstreamStub struct {
	t *testing.T

	mu    sync.Mutex
	calls []stubCall

	handler func(w http.ResponseWriter, r *http.Request)
}

type stubCall struct {
	method string
	path   string
	query  string
	body   []byte
}

func newStub(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*upstreamStub, *strapi.Client) {
	t.Helper()
	stub := &upstreamStub{t: t, handler: handler}
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)
	return stub, strapi.NewClient(server.URL, "test-token", nil)
}

func (s *upstreamStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	s.mu.Lock()
	s.calls = append(s.calls, stubCall{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.RawQuery,
		body:   body,
	})
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	s.handler(w, r)
}

func (s *upstreamStub) count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.method == method && c.path == path {
			n++
		}
	}
	return n
}

func fixedClock(iso string) func() time.Time {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func TestFindOrCreateUserTopicReturnsExisting(t *testing.T) {
	stub, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/api/user-topics" {
			w.Write([]byte(`{"data":[{"id":11,"documentId":"ut-11","memoryLocation":"Review"}],"meta":{}}`))
			return
		}
		t.Errorf("unexpected upstream call: %s %s", r.Method, r.URL.Path)
	})

	c := New(client)
	raw, created, err := c.FindOrCreateUserTopic(context.Background(),
		UserTopicKey{TopicID: "5", ProfileID: "9"}, UserTopicFields{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("created = true for an existing record")
	}
	if stub.count(http.MethodPost, "/api/user-topics") != 0 {
		t.Error("create issued despite existing record")
	}

	var env struct {
		Data []struct {
			ID int `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("response unreadable: %v", err)
	}
	if len(env.Data) != 1 || env.Data[0].ID != 11 {
		t.Errorf("response = %s, want the found record", raw)
	}
}

func TestFindOrCreateUserTopicCreatesOnMiss(t *testing.T) {
	stub, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/user-topics":
			w.Write([]byte(`{"data":[],"meta":{}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/user-topics":
			w.Write([]byte(`{"data":{"id":21,"documentId":"ut-21"},"meta":{}}`))
		default:
			t.Errorf("unexpected upstream call: %s %s", r.Method, r.URL.Path)
		}
	})

	mem := "New"
	c := New(client)
	raw, created, err := c.FindOrCreateUserTopic(context.Background(),
		UserTopicKey{TopicID: "5", ProfileID: "9"},
		UserTopicFields{MemoryLocation: &mem})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("created = false after a miss")
	}
	if stub.count(http.MethodPost, "/api/user-topics") != 1 {
		t.Errorf("create calls = %d, want 1", stub.count(http.MethodPost, "/api/user-topics"))
	}

	// Created records come back in the lookup shape.
	var env struct {
		Data []struct {
			ID int `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("response unreadable: %v", err)
	}
	if len(env.Data) != 1 || env.Data[0].ID != 21 {
		t.Errorf("response = %s, want created record in list shape", raw)
	}
}

func TestFindOrCreateUserTopicOmitsAbsentFields(t *testing.T) {
	var createBody map[string]any
	_, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.Write([]byte(`{"data":[],"meta":{}}`))
		case r.Method == http.MethodPost:
			json.NewDecoder(r.Body).Decode(&createBody)
			w.Write([]byte(`{"data":{"id":1,"documentId":"d"},"meta":{}}`))
		}
	})

	c := New(client)
	_, _, err := c.FindOrCreateUserTopic(context.Background(),
		UserTopicKey{TopicID: "5", ProfileID: "9"}, UserTopicFields{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, ok := createBody["data"].(map[string]any)
	if !ok {
		t.Fatalf("create body = %v, want data envelope", createBody)
	}
	for _, absent := range []string{"memoryLocation", "lastSession", "nextSession", "timeTotal", "timeRemaining", "revisionsDone"} {
		if _, present := data[absent]; present {
			t.Errorf("omitted field %q sent in create payload", absent)
		}
	}
	if data["topic"] != float64(5) || data["profile"] != float64(9) {
		t.Errorf("key fields = %v/%v, want 5/9", data["topic"], data["profile"])
	}
}

func TestFindOrCreateSessionCreatesWithStayTopicID(t *testing.T) {
	var createBody map[string]any
	stub, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/study-sessions":
			w.Write([]byte(`{"data":[],"meta":{}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/study-sessions":
			json.NewDecoder(r.Body).Decode(&createBody)
			w.Write([]byte(`{"data":{"id":33,"documentId":"ss-33"},"meta":{}}`))
		default:
			t.Errorf("unexpected upstream call: %s %s", r.Method, r.URL.Path)
		}
	})

	c := New(client)
	raw, created, err := c.FindOrCreateSession(context.Background(),
		SessionKey{UserTopicID: "42", ScheduledFor: "2024-01-01T00:00:00Z"},
		SessionFields{StayTopicID: "7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("created = false after a miss")
	}
	if stub.count(http.MethodPost, "/api/study-sessions") != 1 {
		t.Error("expected exactly one create")
	}

	data := createBody["data"].(map[string]any)
	if data["user_topic"] != float64(42) {
		t.Errorf("user_topic = %v, want 42", data["user_topic"])
	}
	if data["stayTopicId"] != float64(7) {
		t.Errorf("stayTopicId = %v, want 7", data["stayTopicId"])
	}
	if data["scheduledFor"] != "2024-01-01T00:00:00Z" {
		t.Errorf("scheduledFor = %v", data["scheduledFor"])
	}

	var env struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Data) != 1 {
		t.Errorf("response = %s, want {data:[...]} shape with one entry", raw)
	}
}

func TestFindOrCreateSessionIdempotent(t *testing.T) {
	first := true
	stub, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/study-sessions":
			if first {
				first = false
				w.Write([]byte(`{"data":[],"meta":{}}`))
			} else {
				w.Write([]byte(`{"data":[{"id":33,"documentId":"ss-33"}],"meta":{}}`))
			}
		case r.Method == http.MethodPost && r.URL.Path == "/api/study-sessions":
			w.Write([]byte(`{"data":{"id":33,"documentId":"ss-33"},"meta":{}}`))
		}
	})

	c := New(client)
	key := SessionKey{UserTopicID: "42", ScheduledFor: "2024-01-01T00:00:00Z"}

	_, created, err := c.FindOrCreateSession(context.Background(), key, SessionFields{})
	if err != nil || !created {
		t.Fatalf("first call: created=%v err=%v, want created", created, err)
	}
	_, created, err = c.FindOrCreateSession(context.Background(), key, SessionFields{})
	if err != nil || created {
		t.Fatalf("second call: created=%v err=%v, want found", created, err)
	}
	if stub.count(http.MethodPost, "/api/study-sessions") != 1 {
		t.Errorf("creates = %d, want 1", stub.count(http.MethodPost, "/api/study-sessions"))
	}
}

func TestLinkInstituteByEmail(t *testing.T) {
	var gotQuery string
	_, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"data":[{"id":88,"documentId":"inst-88"}],"meta":{}}`))
	})

	c := New(client)
	id, ok := c.LinkInstituteByEmail(context.Background(), "Student@ExampleU.EDU ")
	if !ok {
		t.Fatal("ok = false, want institute match")
	}
	if id != "88" {
		t.Errorf("institute id = %q, want 88", id)
	}
	// Domain is lower-cased and trimmed before matching.
	if want := "exampleu.edu"; !containsParam(t, gotQuery, "filters[emaildomain][$eq]", want) {
		t.Errorf("query = %q, want emaildomain filter on %q", gotQuery, want)
	}
}

func TestLinkInstituteByEmailMissIsNonFatal(t *testing.T) {
	_, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[],"meta":{}}`))
	})

	c := New(client)
	if _, ok := c.LinkInstituteByEmail(context.Background(), "a@unknown.test"); ok {
		t.Error("ok = true for unmatched domain")
	}
	if _, ok := c.LinkInstituteByEmail(context.Background(), "no-at-sign"); ok {
		t.Error("ok = true for address without a domain")
	}
}

func TestLinkInstituteByEmailLookupFailureIsNonFatal(t *testing.T) {
	_, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"status":500,"message":"boom"}}`))
	})

	c := New(client)
	if _, ok := c.LinkInstituteByEmail(context.Background(), "a@exampleu.edu"); ok {
		t.Error("ok = true despite lookup failure")
	}
}

func TestApplyClassCode(t *testing.T) {
	_, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filters[classCode][$eq]") == "XK42" {
			w.Write([]byte(`{"data":[{"id":7,"documentId":"class-7"}],"meta":{}}`))
			return
		}
		w.Write([]byte(`{"data":[],"meta":{}}`))
	})
	c := New(client)

	strPtr := func(s string) *string { return &s }

	tests := []struct {
		name        string
		current     []strapi.ID
		code        *string
		op          ClassOp
		want        []strapi.ID
		wantChanged bool
	}{
		{"absent code is a no-op", []strapi.ID{"1", "2"}, nil, ClassOpAdd, []strapi.ID{"1", "2"}, false},
		{"empty code clears all", []strapi.ID{"1", "2"}, strPtr(""), ClassOpAdd, []strapi.ID{}, true},
		{"valid code appends", []strapi.ID{"1"}, strPtr("XK42"), ClassOpAdd, []strapi.ID{"1", "7"}, true},
		{"already a member", []strapi.ID{"7"}, strPtr("XK42"), ClassOpAdd, []strapi.ID{"7"}, false},
		{"remove drops membership", []strapi.ID{"1", "7"}, strPtr("XK42"), ClassOpRemove, []strapi.ID{"1"}, true},
		{"remove of a non-member", []strapi.ID{"1"}, strPtr("XK42"), ClassOpRemove, []strapi.ID{"1"}, false},
		{"unknown code is a no-op", []strapi.ID{"1"}, strPtr("NOPE"), ClassOpAdd, []strapi.ID{"1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := c.ApplyClassCode(context.Background(), tt.current, tt.code, tt.op)
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("membership = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("membership = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestAssignTopicToClass(t *testing.T) {
	// Three students; s1 and s2 already hold a user-topic for the topic,
	// s3 does not. Sessions exist for s1 and s2 today.
	stub, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/classrooms/90":
			w.Write([]byte(`{"data":{"id":90,"documentId":"class-90","students":[
				{"id":1,"documentId":"s1"},
				{"id":2,"documentId":"s2"},
				{"id":3,"documentId":"s3"}]},"meta":{}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/classrooms/90":
			w.Write([]byte(`{"data":{"id":90},"meta":{}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/user-topics":
			switch q.Get("filters[profile][documentId][$eq]") {
			case "s1":
				w.Write([]byte(`{"data":[{"id":101,"documentId":"ut-s1"}],"meta":{}}`))
			case "s2":
				w.Write([]byte(`{"data":[{"id":102,"documentId":"ut-s2"}],"meta":{}}`))
			default:
				w.Write([]byte(`{"data":[],"meta":{}}`))
			}
		case r.Method == http.MethodPut:
			w.Write([]byte(`{"data":{},"meta":{}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/user-topics":
			w.Write([]byte(`{"data":{"id":103,"documentId":"ut-s3"},"meta":{}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/study-sessions":
			if q.Get("filters[user_topic][documentId][$eq]") == "ut-s3" {
				w.Write([]byte(`{"data":[],"meta":{}}`))
			} else {
				w.Write([]byte(`{"data":[{"id":200,"documentId":"ss"}],"meta":{}}`))
			}
		case r.Method == http.MethodPost && r.URL.Path == "/api/study-sessions":
			w.Write([]byte(`{"data":{"id":201,"documentId":"ss-new"},"meta":{}}`))
		default:
			t.Errorf("unexpected upstream call: %s %s", r.Method, r.URL.Path)
		}
	})

	c := New(client).WithClock(fixedClock("2026-08-28T10:30:00Z"))
	result, err := c.AssignTopicToClass(context.Background(), "90", "topic-doc", "read ch. 4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Total != 3 || result.Created != 1 || result.Updated != 2 {
		t.Errorf("result = %+v, want total 3, created 1, updated 2", result)
	}
	if got := stub.count(http.MethodPost, "/api/study-sessions"); got != 1 {
		t.Errorf("new sessions = %d, want exactly 1", got)
	}
}

func TestAssignTopicToClassSkipsFailedStudent(t *testing.T) {
	stub, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/classrooms/90":
			w.Write([]byte(`{"data":{"id":90,"students":[
				{"id":1,"documentId":"s1"},
				{"id":2,"documentId":"s2"}]},"meta":{}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/classrooms/90":
			w.Write([]byte(`{"data":{},"meta":{}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/user-topics":
			if q.Get("filters[profile][documentId][$eq]") == "s1" {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":{"status":500,"message":"boom"}}`))
				return
			}
			w.Write([]byte(`{"data":[],"meta":{}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/user-topics":
			w.Write([]byte(`{"data":{"id":7,"documentId":"ut-s2"},"meta":{}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/study-sessions":
			w.Write([]byte(`{"data":[],"meta":{}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/study-sessions":
			w.Write([]byte(`{"data":{"id":8},"meta":{}}`))
		}
	})

	c := New(client).WithClock(fixedClock("2026-08-28T10:30:00Z"))
	result, err := c.AssignTopicToClass(context.Background(), "90", "topic-doc", "")
	if err != nil {
		t.Fatalf("one student's failure must not fail the request: %v", err)
	}
	if result.Total != 2 || result.Created != 1 || result.Updated != 0 {
		t.Errorf("result = %+v, want total 2, created 1, updated 0", result)
	}
	if stub.count(http.MethodPost, "/api/user-topics") != 1 {
		t.Error("failed student should not reach the create step")
	}
}

func TestClassTopicStats(t *testing.T) {
	_, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/classrooms/90":
			w.Write([]byte(`{"data":{"id":90,"students":[
				{"id":1,"documentId":"s1"},
				{"id":2,"documentId":"s2"},
				{"id":3,"documentId":"s3"},
				{"id":4,"documentId":"s4"}]},"meta":{}}`))
		case r.URL.Path == "/api/user-topics":
			w.Write([]byte(`{"data":[
				{"id":1,"documentId":"a","memoryLocation":"Review","teacherInstructions":"do ch. 4"},
				{"id":2,"documentId":"b","memoryLocation":"Review"},
				{"id":3,"documentId":"c","memoryLocation":""}],"meta":{}}`))
		}
	})

	c := New(client)
	stats, err := c.ClassTopicStats(context.Background(), "90", "topic-doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TotalStudents != 4 || stats.AssignedCount != 3 {
		t.Errorf("totals = %d/%d, want 4 students, 3 assigned", stats.TotalStudents, stats.AssignedCount)
	}
	if stats.Stats["Review"] != 2 {
		t.Errorf("Review = %d, want 2", stats.Stats["Review"])
	}
	// Empty memory location defaults to New.
	if stats.Stats["New"] != 1 {
		t.Errorf("New = %d, want 1", stats.Stats["New"])
	}
	// Every bucket is present even at zero.
	for _, loc := range []string{"Short-term", "Long-term", "Transition"} {
		if v, present := stats.Stats[loc]; !present || v != 0 {
			t.Errorf("bucket %q = %d (present=%v), want 0", loc, v, present)
		}
	}
	if stats.TeacherInstructions != "do ch. 4" {
		t.Errorf("TeacherInstructions = %q, want first non-empty", stats.TeacherInstructions)
	}
}

func TestUpdateClassInstructions(t *testing.T) {
	stub, client := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/classrooms/90":
			w.Write([]byte(`{"data":{"id":90,"students":[
				{"id":1,"documentId":"s1"},{"id":2,"documentId":"s2"}]},"meta":{}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/user-topics":
			w.Write([]byte(`{"data":[
				{"id":1,"documentId":"ut-1"},
				{"id":2,"documentId":"ut-2"},
				{"id":3,"documentId":"ut-3"}],"meta":{}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/user-topics/ut-2":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"status":500,"message":"boom"}}`))
		case r.Method == http.MethodPut:
			w.Write([]byte(`{"data":{},"meta":{}}`))
		}
	})

	c := New(client)
	updated, err := c.UpdateClassInstructions(context.Background(), "90", "topic-doc", "revise formulas")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2 (one write failed)", updated)
	}
	if stub.count(http.MethodPut, "/api/user-topics/ut-1") != 1 {
		t.Error("missing update for ut-1")
	}
}

// containsParam reports whether the encoded query has key=value.
func containsParam(t *testing.T, rawQuery, key, value string) bool {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return req.URL.Query().Get(key) == value
}
