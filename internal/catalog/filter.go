package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
	"github.com/google/cel-go/cel"

	"github.com/TimurManjosov/pawswipe/internal/deck"
)

// ErrInvalidLogic is returned when a filter's rule is not valid JSON Logic.
var ErrInvalidLogic = errors.New("invalid filter: not valid JSON Logic")

// Filter is a plain predicate over candidates. Attribute values must match
// exactly (case-insensitive) and every listed tag must be present. Logic, if
// set, is a JSON Logic rule and Expr a CEL expression; both are evaluated
// against the candidate's fields and must hold.
type Filter struct {
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Tags       []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Logic      json.RawMessage   `json:"logic,omitempty" yaml:"-"`
	Expr       string            `json:"expr,omitempty" yaml:"expr,omitempty"`
}

// IsZero reports whether the filter accepts everything.
func (f Filter) IsZero() bool {
	return len(f.Attributes) == 0 && len(f.Tags) == 0 && !f.hasLogic() && f.Expr == ""
}

func (f Filter) hasLogic() bool {
	return len(bytes.TrimSpace(f.Logic)) > 0
}

// Validate checks the JSON Logic rule against an empty candidate and
// compiles the CEL expression.
func (f Filter) Validate() error {
	if f.hasLogic() {
		if _, err := evalLogic(f.Logic, map[string]any{}); err != nil {
			return err
		}
	}
	if f.Expr != "" {
		if _, err := compileExpr(f.Expr); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns the candidates accepted by f, preserving order.
func (f Filter) Apply(cands []deck.Candidate) ([]deck.Candidate, error) {
	if f.IsZero() {
		return cands, nil
	}
	m, err := f.matcher()
	if err != nil {
		return nil, err
	}
	out := make([]deck.Candidate, 0, len(cands))
	for _, c := range cands {
		ok, err := m(c)
		if err != nil {
			return nil, fmt.Errorf("filter candidate %s: %w", c.ID, err)
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Match evaluates f against a single candidate.
func (f Filter) Match(c deck.Candidate) (bool, error) {
	m, err := f.matcher()
	if err != nil {
		return false, err
	}
	return m(c)
}

// matcher compiles the expression once and returns the combined predicate.
func (f Filter) matcher() (func(deck.Candidate) (bool, error), error) {
	var prg cel.Program
	if f.Expr != "" {
		p, err := compileExpr(f.Expr)
		if err != nil {
			return nil, err
		}
		prg = p
	}
	return func(c deck.Candidate) (bool, error) {
		for k, want := range f.Attributes {
			if !strings.EqualFold(c.Attributes[k], want) {
				return false, nil
			}
		}
		for _, tag := range f.Tags {
			if !slices.ContainsFunc(c.Tags, func(t string) bool { return strings.EqualFold(t, tag) }) {
				return false, nil
			}
		}
		if f.hasLogic() {
			ok, err := evalLogic(f.Logic, candidateData(c))
			if err != nil || !ok {
				return false, err
			}
		}
		if prg != nil {
			return evalExpr(prg, c)
		}
		return true, nil
	}, nil
}

// candidateData exposes a candidate to JSON Logic as
// {"id", "name", "tags", "images", <attributes...>}.
func candidateData(c deck.Candidate) map[string]any {
	data := make(map[string]any, len(c.Attributes)+4)
	for k, v := range c.Attributes {
		data[k] = v
	}
	data["id"] = c.ID
	data["name"] = c.Name
	data["tags"] = c.Tags
	data["images"] = c.Images
	return data
}

func evalLogic(rule json.RawMessage, data map[string]any) (bool, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return false, err
	}

	var resultBuf bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(rule), bytes.NewReader(dataBytes), &resultBuf); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidLogic, err)
	}

	var result any
	if err := json.Unmarshal(resultBuf.Bytes(), &result); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidLogic, err)
	}
	return isTruthy(result), nil
}

// isTruthy follows JavaScript-like truthiness.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
