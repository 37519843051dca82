// Package testutil holds fixtures shared by package tests: a replaceable
// in-memory catalog, a small pet deck and an HTTP request helper.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/TimurManjosov/pawswipe/internal/catalog"
	"github.com/TimurManjosov/pawswipe/internal/deck"
)

// Pets returns four candidates: two dogs (p0, p2) and two cats (p1, p3).
func Pets() []deck.Candidate {
	return []deck.Candidate{
		{ID: "p0", Name: "Biscuit", Tags: []string{"good-with-kids"}, Attributes: map[string]string{"species": "dog", "size": "medium"}},
		{ID: "p1", Name: "Miso", Tags: []string{"indoor", "calm"}, Attributes: map[string]string{"species": "cat", "size": "small"}},
		{ID: "p2", Name: "Juniper", Tags: []string{"energetic"}, Attributes: map[string]string{"species": "dog", "size": "medium"}},
		{ID: "p3", Name: "Pepper", Tags: []string{"calm"}, Attributes: map[string]string{"species": "cat", "size": "large"}},
	}
}

// StaticSource is a catalog.Source over a candidate list that tests can
// replace at runtime.
type StaticSource struct {
	mu      sync.Mutex
	cands   []deck.Candidate
	changes chan struct{}
}

var _ catalog.Source = (*StaticSource)(nil)

// NewStaticSource serves cands.
func NewStaticSource(cands ...deck.Candidate) *StaticSource {
	return &StaticSource{cands: cands, changes: make(chan struct{}, 1)}
}

// Candidates applies f to the current list.
func (s *StaticSource) Candidates(_ context.Context, f catalog.Filter) ([]deck.Candidate, error) {
	s.mu.Lock()
	cands := append([]deck.Candidate(nil), s.cands...)
	s.mu.Unlock()
	return f.Apply(cands)
}

// Changes signals after every Replace.
func (s *StaticSource) Changes() <-chan struct{} { return s.changes }

// Replace swaps the candidate list and signals a change. A pending signal is
// coalesced with this one.
func (s *StaticSource) Replace(cands ...deck.Candidate) {
	s.mu.Lock()
	s.cands = cands
	s.mu.Unlock()
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
