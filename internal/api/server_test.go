package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/pawswipe/internal/audit"
	"github.com/TimurManjosov/pawswipe/internal/auth"
	"github.com/TimurManjosov/pawswipe/internal/session"
	"github.com/TimurManjosov/pawswipe/internal/store"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
	"github.com/TimurManjosov/pawswipe/internal/testutil"
)

// Wire shapes decoded by the tests. Phase and Slot marshal as text only, so
// the tests read just the numeric state.
type stateDTO struct {
	Cursor        int    `json:"cursor"`
	DeckSize      int    `json:"deckSize"`
	Decisions     uint64 `json:"decisions"`
	Transitioning bool   `json:"transitioning"`
}

type frameDTO struct {
	Seq   uint64   `json:"seq"`
	State stateDTO `json:"state"`
	Phase string   `json:"phase"`
}

type infoDTO struct {
	ID         string   `json:"id"`
	Frame      frameDTO `json:"frame"`
	Watchers   int      `json:"watchers"`
	LastViewed *struct {
		ID string `json:"id"`
	} `json:"lastViewed"`
}

type testEnv struct {
	handler http.Handler
	mgr     *session.Manager
	store   *store.MemoryStore
	src     *testutil.StaticSource
}

func fastEngine() swipe.Options {
	return swipe.Options{FPS: 1000, ZeroDelays: true}
}

func newTestEnv(t *testing.T, engine swipe.Options, opts ...Option) *testEnv {
	t.Helper()
	src := testutil.NewStaticSource(testutil.Pets()...)
	st := store.NewMemoryStore()
	mgr := session.NewManager(session.Config{Engine: engine}, src, st, zerolog.Nop())
	t.Cleanup(func() { mgr.Close() })

	srv := NewServer(mgr, src, st, zerolog.Nop(), opts...)
	return &testEnv{handler: srv.Router(), mgr: mgr, store: st, src: src}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := &testutil.HTTPRequest{Method: method, Path: path, Body: body, Headers: map[string]string{}}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Headers[headers[i]] = headers[i+1]
	}
	return req.Do(t, e.handler)
}

func (e *testEnv) createSession(t *testing.T, body string) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/v1/sessions", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp.ID
}

func (e *testEnv) info(t *testing.T, id string) infoDTO {
	t.Helper()
	rr := e.do(t, http.MethodGet, "/v1/sessions/"+id, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var info infoDTO
	if err := json.NewDecoder(rr.Body).Decode(&info); err != nil {
		t.Fatalf("Failed to decode info: %v", err)
	}
	return info
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v (body %q)", err, rr.Body.String())
	}
	return resp
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, fastEngine())

	rr := env.do(t, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("Expected body 'ok', got %s", rr.Body.String())
	}
}

func TestListCandidates(t *testing.T) {
	env := newTestEnv(t, fastEngine())

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"all", "", []string{"p0", "p1", "p2", "p3"}},
		{"by attribute", "?attr.species=cat", []string{"p1", "p3"}},
		{"by tag", "?tag=calm", []string{"p1", "p3"}},
		{"attribute and tag", "?attr.species=cat&tag=indoor", []string{"p1"}},
		{"by expression", "?expr=" + strings.ReplaceAll(`attributes.size == "medium"`, " ", "%20"), []string{"p0", "p2"}},
		{"no match", "?attr.species=parrot", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/v1/candidates"+tt.query, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp candidatesResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Count != len(tt.wantIDs) {
				t.Fatalf("Expected %d candidates, got %d", len(tt.wantIDs), resp.Count)
			}
			for i, c := range resp.Candidates {
				if c.ID != tt.wantIDs[i] {
					t.Errorf("Candidate %d: expected %s, got %s", i, tt.wantIDs[i], c.ID)
				}
			}
		})
	}
}

func TestListCandidates_SeededShuffleIsStable(t *testing.T) {
	env := newTestEnv(t, fastEngine())

	ids := func() string {
		rr := env.do(t, http.MethodGet, "/v1/candidates?seed=abc", "")
		var resp candidatesResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		var out []string
		for _, c := range resp.Candidates {
			out = append(out, c.ID)
		}
		return strings.Join(out, ",")
	}

	first := ids()
	if first != ids() {
		t.Errorf("Expected the same order for the same seed")
	}
	if len(strings.Split(first, ",")) != 4 {
		t.Errorf("Expected all 4 candidates, got %s", first)
	}
}

func TestListCandidates_InvalidExpression(t *testing.T) {
	env := newTestEnv(t, fastEngine())

	rr := env.do(t, http.MethodGet, "/v1/candidates?expr=name", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Code != ErrCodeValidation {
		t.Errorf("Expected VALIDATION_ERROR, got %s", resp.Code)
	}
	if _, ok := resp.Fields["filter.expr"]; !ok {
		t.Errorf("Expected filter.expr field error, got %v", resp.Fields)
	}
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t, fastEngine())

	id := env.createSession(t, "")
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("Expected a UUID session id, got %q", id)
	}

	info := env.info(t, id)
	if info.Frame.State.DeckSize != 4 {
		t.Errorf("Expected deck size 4, got %d", info.Frame.State.DeckSize)
	}
	if info.LastViewed == nil || info.LastViewed.ID != "p0" {
		t.Errorf("Expected p0 to be the viewed candidate, got %+v", info.LastViewed)
	}

	filtered := env.createSession(t, `{"filter":{"attributes":{"species":"dog"}}}`)
	if got := env.info(t, filtered).Frame.State.DeckSize; got != 2 {
		t.Errorf("Expected filtered deck size 2, got %d", got)
	}
}

func TestCreateSession_BadRequests(t *testing.T) {
	env := newTestEnv(t, fastEngine())

	tests := []struct {
		name     string
		body     string
		wantCode ErrorCode
	}{
		{"malformed json", `{"filter":`, ErrCodeInvalidJSON},
		{"wrong type", `{"shuffle":"yes"}`, ErrCodeInvalidJSON},
		{"bad expression", `{"filter":{"expr":"name =="}}`, ErrCodeValidation},
		{"non-bool expression", `{"filter":{"expr":"name"}}`, ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/v1/sessions", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if resp := decodeError(t, rr); resp.Code != tt.wantCode {
				t.Errorf("Expected %s, got %s", tt.wantCode, resp.Code)
			}
		})
	}
	if env.mgr.Len() != 0 {
		t.Errorf("Expected no sessions, got %d", env.mgr.Len())
	}
}

func TestCreateSession_TooLarge(t *testing.T) {
	env := newTestEnv(t, fastEngine())

	body := `{"filter":{"expr":"` + strings.Repeat("a", MaxBodySize) + `"}}`
	rr := env.do(t, http.MethodPost, "/v1/sessions", body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected status 413, got %d", rr.Code)
	}
}

func TestSessionRoutes_UnknownAndInvalidIDs(t *testing.T) {
	env := newTestEnv(t, fastEngine())

	rr := env.do(t, http.MethodGet, "/v1/sessions/"+uuid.NewString(), "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != ErrCodeSessionNotFound {
		t.Errorf("Expected SESSION_NOT_FOUND, got %s", resp.Code)
	}

	rr = env.do(t, http.MethodPost, "/v1/sessions/not-a-uuid/commit", `{"outcome":"accept"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
}

func TestCommit_RecordsDecision(t *testing.T) {
	env := newTestEnv(t, fastEngine())
	id := env.createSession(t, "")

	rr := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/commit", `{"outcome":"like"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}

	waitFor(t, "cursor to advance", func() bool {
		st := env.info(t, id).Frame.State
		return st.Cursor == 1 && !st.Transitioning
	})
	waitFor(t, "decision to be stored", func() bool {
		list, _ := env.store.ListDecisions(context.Background(), store.Query{SessionID: id})
		return len(list) == 1
	})

	list, _ := env.store.ListDecisions(context.Background(), store.Query{SessionID: id})
	if list[0].CandidateID != "p0" || list[0].Outcome != "accept" {
		t.Errorf("Expected p0 accept, got %+v", list[0])
	}
}

func TestCommit_Validation(t *testing.T) {
	env := newTestEnv(t, fastEngine())
	id := env.createSession(t, "")

	for _, body := range []string{"", `{}`, `{"outcome":"maybe"}`} {
		rr := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/commit", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Body %q: expected status 400, got %d", body, rr.Code)
			continue
		}
		if resp := decodeError(t, rr); resp.Fields["outcome"] == "" {
			t.Errorf("Body %q: expected outcome field error, got %v", body, resp.Fields)
		}
	}
}

func TestCommit_DroppedWhileTransitioning(t *testing.T) {
	// The settle delay keeps the first transition open for the whole test.
	env := newTestEnv(t, swipe.Options{FPS: 1000, CommitDuration: time.Millisecond, SettleDelay: time.Hour})
	id := env.createSession(t, "")

	first := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/commit", `{"outcome":"accept"}`)
	if first.Code != http.StatusAccepted {
		t.Fatalf("Expected first commit 202, got %d", first.Code)
	}
	second := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/commit", `{"outcome":"reject"}`)
	if second.Code != http.StatusConflict {
		t.Fatalf("Expected second commit 409, got %d", second.Code)
	}
	if resp := decodeError(t, second); resp.Code != ErrCodeSwipeDropped {
		t.Errorf("Expected SWIPE_DROPPED, got %s", resp.Code)
	}

	waitFor(t, "single decision", func() bool {
		list, _ := env.store.ListDecisions(context.Background(), store.Query{})
		return len(list) == 1
	})
}

func TestCommit_EmptyDeck(t *testing.T) {
	env := newTestEnv(t, fastEngine())
	id := env.createSession(t, `{"filter":{"attributes":{"species":"parrot"}}}`)

	rr := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/commit", `{"outcome":"accept"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", rr.Code)
	}
}

func TestPointer_DragCommits(t *testing.T) {
	env := newTestEnv(t, fastEngine())
	id := env.createSession(t, "")
	path := "/v1/sessions/" + id + "/pointer"

	for _, body := range []string{
		`{"type":"down","x":0,"y":0}`,
		`{"type":"move","x":-120,"y":4}`,
		`{"type":"up","x":-200,"y":4}`,
	} {
		rr := env.do(t, http.MethodPost, path, body)
		if rr.Code != http.StatusAccepted {
			t.Fatalf("Pointer %s: expected 202, got %d: %s", body, rr.Code, rr.Body.String())
		}
	}

	waitFor(t, "drag to commit", func() bool {
		list, _ := env.store.ListDecisions(context.Background(), store.Query{SessionID: id})
		return len(list) == 1 && list[0].Outcome == "reject"
	})
}

func TestPointer_Validation(t *testing.T) {
	env := newTestEnv(t, fastEngine())
	id := env.createSession(t, "")

	rr := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/pointer", `{"type":"tap","x":1e9}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Fields["type"] == "" || resp.Fields["x"] == "" {
		t.Errorf("Expected type and x field errors, got %v", resp.Fields)
	}
}

func TestPointer_RateLimited(t *testing.T) {
	env := newTestEnv(t, fastEngine(), WithRateLimit(2))
	id := env.createSession(t, "")
	path := "/v1/sessions/" + id + "/pointer"

	for i := 0; i < 2; i++ {
		if rr := env.do(t, http.MethodPost, path, `{"type":"move","x":1,"y":1}`); rr.Code != http.StatusAccepted {
			t.Fatalf("Request %d: expected 202, got %d", i, rr.Code)
		}
	}
	rr := env.do(t, http.MethodPost, path, `{"type":"move","x":1,"y":1}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected status 429, got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != ErrCodeRateLimited {
		t.Errorf("Expected RATE_LIMITED, got %s", resp.Code)
	}

	// Commits are not rate limited.
	if rr := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/commit", `{"outcome":"accept"}`); rr.Code != http.StatusAccepted {
		t.Errorf("Expected commit 202, got %d", rr.Code)
	}
}

func TestReloadDeck(t *testing.T) {
	env := newTestEnv(t, fastEngine())
	id := env.createSession(t, "")

	rr := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/deck", `{"filter":{"tags":["calm"]},"shuffle":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var info infoDTO
	if err := json.NewDecoder(rr.Body).Decode(&info); err != nil {
		t.Fatalf("Failed to decode info: %v", err)
	}
	if info.Frame.State.DeckSize != 2 || info.Frame.State.Cursor != 0 {
		t.Errorf("Expected a fresh deck of 2, got %+v", info.Frame.State)
	}
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t, fastEngine())
	id := env.createSession(t, "")

	rr := env.do(t, http.MethodDelete, "/v1/sessions/"+id, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/v1/sessions/"+id, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", rr.Code)
	}
}

func seedDecisions(t *testing.T, st store.Store) {
	t.Helper()
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	sid := uuid.NewString()
	for i, outcome := range []string{"accept", "reject", "accept"} {
		err := st.RecordDecision(context.Background(), store.Decision{
			ID:          "d" + string(rune('0'+i)),
			SessionID:   sid,
			CandidateID: "p" + string(rune('0'+i)),
			Outcome:     outcome,
			DecidedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordDecision: %v", err)
		}
	}
}

func TestListDecisions(t *testing.T) {
	env := newTestEnv(t, fastEngine())
	seedDecisions(t, env.store)

	rr := env.do(t, http.MethodGet, "/v1/decisions?outcome=accept", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var resp listDecisionsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Count != 2 || resp.Decisions[0].ID != "d2" {
		t.Errorf("Expected d2 then d0, got %+v", resp.Decisions)
	}

	rr = env.do(t, http.MethodGet, "/v1/decisions?limit=0", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for limit=0, got %d", rr.Code)
	}
}

func TestListDecisions_Formats(t *testing.T) {
	env := newTestEnv(t, fastEngine())
	seedDecisions(t, env.store)

	rr := env.do(t, http.MethodGet, "/v1/decisions?format=csv", "")
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 4 || lines[0] != "ID,SessionID,CandidateID,Outcome,DecidedAt" {
		t.Errorf("Unexpected CSV:\n%s", rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/v1/decisions?format=jsonl", "")
	if n := len(strings.Split(strings.TrimSpace(rr.Body.String()), "\n")); n != 3 {
		t.Errorf("Expected 3 JSON lines, got %d", n)
	}

	rr = env.do(t, http.MethodGet, "/v1/decisions?format=xml", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for xml, got %d", rr.Code)
	}
}

func TestGetDecision(t *testing.T) {
	env := newTestEnv(t, fastEngine())
	seedDecisions(t, env.store)

	rr := env.do(t, http.MethodGet, "/v1/decisions/d1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var d store.Decision
	if err := json.NewDecoder(rr.Body).Decode(&d); err != nil {
		t.Fatalf("Failed to decode decision: %v", err)
	}
	if d.Outcome != "reject" {
		t.Errorf("Expected reject, got %s", d.Outcome)
	}

	rr = env.do(t, http.MethodGet, "/v1/decisions/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != ErrCodeDecisionNotFound {
		t.Errorf("Expected DECISION_NOT_FOUND, got %s", resp.Code)
	}
}

func TestAuth_ProtectsDecisionsAndAdmin(t *testing.T) {
	readKey, err := auth.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	hash, err := auth.HashAPIKey(readKey)
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}
	authn, err := auth.NewAuthenticator("admin-secret", []string{"readonly:" + hash})
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}

	ring := audit.NewRingSink(50)
	svc := audit.NewService(ring, zerolog.Nop(), 16)
	t.Cleanup(func() { svc.Close() })

	env := newTestEnv(t, fastEngine(), WithAuth(authn), WithAudit(svc, ring))

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"decisions without token", http.MethodGet, "/v1/decisions", "", http.StatusUnauthorized},
		{"decisions with bad token", http.MethodGet, "/v1/decisions", "psk_wrong", http.StatusUnauthorized},
		{"decisions readonly", http.MethodGet, "/v1/decisions", readKey, http.StatusOK},
		{"decisions admin", http.MethodGet, "/v1/decisions", "admin-secret", http.StatusOK},
		{"admin with readonly", http.MethodGet, "/v1/admin/sessions", readKey, http.StatusForbidden},
		{"admin sessions", http.MethodGet, "/v1/admin/sessions", "admin-secret", http.StatusOK},
		{"admin reload", http.MethodPost, "/v1/admin/reload", "admin-secret", http.StatusOK},
		{"candidates stay public", http.MethodGet, "/v1/candidates", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headers []string
			if tt.token != "" {
				headers = []string{"Authorization", "Bearer " + tt.token}
			}
			rr := env.do(t, tt.method, tt.path, "", headers...)
			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if rr.Code == http.StatusUnauthorized {
				if resp := decodeError(t, rr); resp.Code != ErrCodeUnauthorized {
					t.Errorf("Expected UNAUTHORIZED, got %s", resp.Code)
				}
			}
		})
	}

	waitFor(t, "auth failures to be audited", func() bool {
		n := 0
		for _, e := range ring.Recent(0) {
			if e.Action == audit.ActionAuthFailed {
				n++
			}
		}
		return n == 3
	})
}

func TestAdmin_SessionsAuditAndReload(t *testing.T) {
	ring := audit.NewRingSink(50)
	svc := audit.NewService(ring, zerolog.Nop(), 16)
	t.Cleanup(func() { svc.Close() })

	env := newTestEnv(t, fastEngine(), WithAudit(svc, ring))
	id := env.createSession(t, "")

	rr := env.do(t, http.MethodGet, "/v1/admin/sessions", "")
	var sessions struct {
		Sessions []infoDTO `json:"sessions"`
		Count    int       `json:"count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&sessions); err != nil {
		t.Fatalf("Failed to decode sessions: %v", err)
	}
	if sessions.Count != 1 || sessions.Sessions[0].ID != id {
		t.Fatalf("Expected session %s, got %+v", id, sessions)
	}

	env.src.Replace(testutil.Pets()[:3]...)
	rr = env.do(t, http.MethodPost, "/v1/admin/reload", "")
	var reload reloadResponse
	if err := json.NewDecoder(rr.Body).Decode(&reload); err != nil {
		t.Fatalf("Failed to decode reload: %v", err)
	}
	if reload.Reloaded != 1 {
		t.Errorf("Expected 1 reloaded session, got %d", reload.Reloaded)
	}
	if got := env.info(t, id).Frame.State.DeckSize; got != 3 {
		t.Errorf("Expected deck size 3 after reload, got %d", got)
	}

	waitFor(t, "audit events", func() bool { return len(ring.Recent(0)) >= 2 })

	rr = env.do(t, http.MethodGet, "/v1/admin/audit?limit=10", "")
	var events listAuditResponse
	if err := json.NewDecoder(rr.Body).Decode(&events); err != nil {
		t.Fatalf("Failed to decode audit: %v", err)
	}
	if events.Events[0].Action != audit.ActionReloaded || events.Events[1].Action != audit.ActionCreated {
		t.Errorf("Expected reloaded then created, got %+v", events.Events)
	}
	if events.Events[1].ResourceID != id {
		t.Errorf("Expected created event for %s, got %s", id, events.Events[1].ResourceID)
	}

	rr = env.do(t, http.MethodGet, "/v1/admin/audit?format=csv", "")
	if !strings.HasPrefix(rr.Body.String(), "ID,Timestamp,Action") {
		t.Errorf("Unexpected CSV header: %q", rr.Body.String())
	}
}
