// Package client is an HTTP and WebSocket client for the pawswipe API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TimurManjosov/pawswipe/internal/audit"
	"github.com/TimurManjosov/pawswipe/internal/catalog"
	"github.com/TimurManjosov/pawswipe/internal/deck"
	"github.com/TimurManjosov/pawswipe/internal/session"
	"github.com/TimurManjosov/pawswipe/internal/store"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
)

// ErrDropped is returned by Commit when the server dropped the swipe because
// a transition was in flight or the deck was empty.
var ErrDropped = errors.New("swipe dropped")

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status    int               `json:"-"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error (status %d): %s: %s", e.Status, e.Code, e.Message)
	for field, reason := range e.Fields {
		msg += fmt.Sprintf("; %s: %s", field, reason)
	}
	return msg
}

// Client is an HTTP client for the pawswipe API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. Any status outside want is returned as an *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out any, want ...int) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	ok := false
	for _, code := range want {
		ok = ok || resp.StatusCode == code
	}
	if !ok {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(bodyBytes, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(bodyBytes))
	}
	return apiErr
}

// CandidateQuery narrows ListCandidates. Seed, if set, shuffles the result
// deterministically.
type CandidateQuery struct {
	Filter catalog.Filter
	Seed   string
}

// ListCandidates lists catalog candidates matching q.
func (c *Client) ListCandidates(ctx context.Context, q CandidateQuery) ([]deck.Candidate, error) {
	v := url.Values{}
	for k, val := range q.Filter.Attributes {
		v.Set("attr."+k, val)
	}
	for _, tag := range q.Filter.Tags {
		v.Add("tag", tag)
	}
	if q.Filter.Expr != "" {
		v.Set("expr", q.Filter.Expr)
	}
	if q.Seed != "" {
		v.Set("seed", q.Seed)
	}
	path := "/v1/candidates"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var result struct {
		Candidates []deck.Candidate `json:"candidates"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Candidates, nil
}

type deckRequest struct {
	Filter  catalog.Filter `json:"filter"`
	Shuffle bool           `json:"shuffle"`
}

// CreateSession starts a session over the candidates matching f.
func (c *Client) CreateSession(ctx context.Context, f catalog.Filter, shuffle bool) (string, swipe.Frame, error) {
	var result struct {
		ID    string      `json:"id"`
		Frame swipe.Frame `json:"frame"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/sessions", deckRequest{Filter: f, Shuffle: shuffle}, &result, http.StatusCreated)
	return result.ID, result.Frame, err
}

// GetSession describes a session.
func (c *Client) GetSession(ctx context.Context, id string) (*session.Info, error) {
	var info session.Info
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(id), nil, &info, http.StatusOK); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteSession closes a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(id), nil, nil, http.StatusNoContent)
}

// ReloadDeck replaces a session's deck.
func (c *Client) ReloadDeck(ctx context.Context, id string, f catalog.Filter, shuffle bool) (*session.Info, error) {
	var info session.Info
	err := c.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(id)+"/deck",
		deckRequest{Filter: f, Shuffle: shuffle}, &info, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Commit swipes the active card. It returns ErrDropped when the server
// refused the swipe.
func (c *Client) Commit(ctx context.Context, id string, o swipe.Outcome) (swipe.Frame, error) {
	var result struct {
		Frame swipe.Frame `json:"frame"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(id)+"/commit",
		map[string]string{"outcome": string(o)}, &result, http.StatusAccepted)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return swipe.Frame{}, ErrDropped
	}
	return result.Frame, err
}

// Pointer sends one raw pointer event.
func (c *Client) Pointer(ctx context.Context, id, kind string, x, y float64) error {
	body := map[string]any{"type": kind, "x": x, "y": y}
	return c.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(id)+"/pointer", body, nil, http.StatusAccepted)
}

// DecisionQuery filters ListDecisions. Zero fields do not filter.
type DecisionQuery struct {
	SessionID string
	Outcome   string
	Limit     int
}

func (q DecisionQuery) values() url.Values {
	v := url.Values{}
	if q.SessionID != "" {
		v.Set("session", q.SessionID)
	}
	if q.Outcome != "" {
		v.Set("outcome", q.Outcome)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// ListDecisions lists recorded decisions, newest first.
func (c *Client) ListDecisions(ctx context.Context, q DecisionQuery) ([]store.Decision, error) {
	v := q.values()
	path := "/v1/decisions"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var result struct {
		Decisions []store.Decision `json:"decisions"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Decisions, nil
}

// GetDecision fetches one decision.
func (c *Client) GetDecision(ctx context.Context, id string) (*store.Decision, error) {
	var d store.Decision
	if err := c.do(ctx, http.MethodGet, "/v1/decisions/"+url.PathEscape(id), nil, &d, http.StatusOK); err != nil {
		return nil, err
	}
	return &d, nil
}

// ExportDecisions streams decisions in format (csv, json or jsonl) to w.
func (c *Client) ExportDecisions(ctx context.Context, q DecisionQuery, format string, w io.Writer) error {
	v := q.values()
	v.Set("format", format)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/decisions?"+v.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// AdminSessions lists live sessions.
func (c *Client) AdminSessions(ctx context.Context) ([]session.Info, error) {
	var result struct {
		Sessions []session.Info `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/admin/sessions", nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Sessions, nil
}

// AdminReload rebuilds every session's deck and returns how many reloaded.
func (c *Client) AdminReload(ctx context.Context) (int, error) {
	var result struct {
		Reloaded int `json:"reloaded"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/admin/reload", nil, &result, http.StatusOK)
	return result.Reloaded, err
}

// AdminAudit returns up to limit recent audit events, newest first.
func (c *Client) AdminAudit(ctx context.Context, limit int) ([]audit.Event, error) {
	path := "/v1/admin/audit"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var result struct {
		Events []audit.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Events, nil
}

// ServerVersion returns the build version the server reports.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	var result struct {
		Version string `json:"version"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/version", nil, &result, http.StatusOK)
	return result.Version, err
}

// ---- WebSocket ----

// Message is one server message on a session connection.
type Message struct {
	Type     string            `json:"type"`
	Info     *session.Info     `json:"info,omitempty"`
	Frame    *swipe.Frame      `json:"frame,omitempty"`
	Notice   *session.Notice   `json:"notice,omitempty"`
	Accepted *bool             `json:"accepted,omitempty"`
	Error    string            `json:"error,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// Conn is a live WebSocket connection to one session. Reads and writes may
// run on separate goroutines, but each side on at most one.
type Conn struct {
	ws *websocket.Conn
}

// Dial opens the session's WebSocket.
func (c *Client) Dial(ctx context.Context, id string) (*Conn, error) {
	u, err := url.Parse(c.BaseURL + "/v1/sessions/" + url.PathEscape(id) + "/ws")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	header := http.Header{}
	if c.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.APIKey)
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, decodeAPIError(resp)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return &Conn{ws: ws}, nil
}

// Next blocks for the next server message.
func (c *Conn) Next() (Message, error) {
	var msg Message
	err := c.ws.ReadJSON(&msg)
	return msg, err
}

// Pointer sends a raw pointer event.
func (c *Conn) Pointer(kind string, x, y float64) error {
	return c.ws.WriteJSON(map[string]any{"type": kind, "x": x, "y": y})
}

// Commit asks for a programmatic swipe. The answer arrives as a "committed"
// message.
func (c *Conn) Commit(o swipe.Outcome) error {
	return c.ws.WriteJSON(map[string]any{"type": "commit", "outcome": string(o)})
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}
