// Package validation provides validation rules for swipe requests and filters.
package validation

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/TimurManjosov/pawswipe/internal/catalog"
	"github.com/TimurManjosov/pawswipe/internal/store"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
)

const (
	// MaxFilterTags is the maximum number of required tags in a filter
	MaxFilterTags = 32
	// MaxFilterAttributes is the maximum number of attribute constraints in a filter
	MaxFilterAttributes = 32
	// MaxAttributeLength is the maximum length of an attribute name or value
	MaxAttributeLength = 64
	// MaxExprLength is the maximum length of a CEL filter expression
	MaxExprLength = 2048
	// MaxLogicSize is the maximum size of a JSON Logic rule in bytes
	MaxLogicSize = 16 * 1024
	// MaxCoordinate bounds pointer coordinates in either direction
	MaxCoordinate = 1e6
)

// attrPattern matches attribute names such as "species" or "good_with_kids".
var attrPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// PointerParams are the fields of one pointer event.
type PointerParams struct {
	Type string
	X, Y float64
}

// ValidatePointer validates a pointer event
func ValidatePointer(p PointerParams) *ValidationResult {
	result := NewValidationResult()

	switch p.Type {
	case "down", "move", "up":
	case "":
		result.AddError("type", "Type is required")
	default:
		result.AddError("type", "Type must be one of down, move, up")
	}

	if !validCoordinate(p.X) {
		result.AddError("x", "X must be a finite number within ±1e6")
	}
	if !validCoordinate(p.Y) {
		result.AddError("y", "Y must be a finite number within ±1e6")
	}
	return result
}

func validCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) <= MaxCoordinate
}

// ValidateOutcome validates a commit outcome and returns the parsed value
func ValidateOutcome(s string) (*ValidationResult, swipe.Outcome) {
	result := NewValidationResult()

	if strings.TrimSpace(s) == "" {
		result.AddError("outcome", "Outcome is required")
		return result, ""
	}
	o, err := swipe.ParseOutcome(s)
	if err != nil {
		result.AddError("outcome", "Outcome must be accept or reject")
		return result, ""
	}
	return result, o
}

// ValidateFilter validates the shape of a filter and compiles its rules
func ValidateFilter(f catalog.Filter) *ValidationResult {
	result := NewValidationResult()

	if len(f.Attributes) > MaxFilterAttributes {
		result.AddError("filter.attributes", "Filter must not have more than 32 attributes")
	} else {
		for k, v := range f.Attributes {
			if !attrPattern.MatchString(k) || utf8.RuneCountInString(k) > MaxAttributeLength {
				result.AddError("filter.attributes", "Attribute names must be 1-64 alphanumeric characters, dots, underscores, or hyphens")
				break
			}
			if utf8.RuneCountInString(v) > MaxAttributeLength {
				result.AddError("filter.attributes", "Attribute values must not exceed 64 characters")
				break
			}
		}
	}

	if len(f.Tags) > MaxFilterTags {
		result.AddError("filter.tags", "Filter must not have more than 32 tags")
	} else {
		for _, tag := range f.Tags {
			if strings.TrimSpace(tag) == "" {
				result.AddError("filter.tags", "Tags cannot be empty")
				break
			}
		}
	}

	if len(f.Logic) > MaxLogicSize {
		result.AddError("filter.logic", "Logic rule must not exceed 16KB")
	}
	if utf8.RuneCountInString(f.Expr) > MaxExprLength {
		result.AddError("filter.expr", "Expression must not exceed 2048 characters")
	}
	if !result.Valid {
		return result
	}

	if err := f.Validate(); err != nil {
		switch {
		case errors.Is(err, catalog.ErrInvalidExpr):
			result.AddError("filter.expr", "Invalid expression: "+err.Error())
		default:
			result.AddError("filter.logic", "Invalid logic rule: "+err.Error())
		}
	}
	return result
}

// ValidateSessionID validates a session identifier
func ValidateSessionID(id string) *ValidationResult {
	result := NewValidationResult()

	if strings.TrimSpace(id) == "" {
		result.AddError("id", "Session id is required")
		return result
	}
	if _, err := uuid.Parse(id); err != nil {
		result.AddError("id", "Session id must be a UUID")
	}
	return result
}

// DecisionQueryParams are the raw query string values of a decision listing.
type DecisionQueryParams struct {
	SessionID string
	Outcome   string
	Limit     string
}

// ValidateDecisionQuery validates decision listing parameters and returns
// the store query they describe
func ValidateDecisionQuery(p DecisionQueryParams) (*ValidationResult, store.Query) {
	result := NewValidationResult()
	q := store.Query{SessionID: strings.TrimSpace(p.SessionID)}

	if q.SessionID != "" {
		result.Merge(renameField(ValidateSessionID(q.SessionID), "id", "session"))
	}

	if p.Outcome != "" {
		outcomeResult, o := ValidateOutcome(p.Outcome)
		result.Merge(outcomeResult)
		q.Outcome = string(o)
	}

	if p.Limit != "" {
		n, err := strconv.Atoi(p.Limit)
		switch {
		case err != nil:
			result.AddError("limit", "Limit must be an integer")
		case n < 1 || n > store.MaxLimit:
			result.AddError("limit", "Limit must be between 1 and "+strconv.Itoa(store.MaxLimit))
		default:
			q.Limit = n
		}
	}

	return result, q
}

func renameField(r *ValidationResult, from, to string) *ValidationResult {
	if msg, ok := r.Errors[from]; ok {
		delete(r.Errors, from)
		r.Errors[to] = msg
	}
	return r
}
