// Package catalog supplies the adoption candidates a session browses. It is
// the external collaborator of the swipe engine: it fetches and filters, the
// engine only displays.
package catalog

import (
	"context"
	"errors"

	"github.com/TimurManjosov/pawswipe/internal/deck"
)

// ErrUnsupportedFormat is returned for catalog files that are neither YAML nor JSON.
var ErrUnsupportedFormat = errors.New("catalog: unsupported file format")

// Source lists candidates matching a filter.
type Source interface {
	Candidates(ctx context.Context, f Filter) ([]deck.Candidate, error)

	// Changes signals that the underlying candidate set was replaced. Sources
	// that never change return nil.
	Changes() <-chan struct{}
}

// Load builds a Deck straight from a source.
func Load(ctx context.Context, src Source, f Filter) (deck.Deck, error) {
	cands, err := src.Candidates(ctx, f)
	if err != nil {
		return deck.Deck{}, err
	}
	return deck.New(cands), nil
}
