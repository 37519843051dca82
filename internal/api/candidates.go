package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/TimurManjosov/pawswipe/internal/catalog"
	"github.com/TimurManjosov/pawswipe/internal/deck"
	"github.com/TimurManjosov/pawswipe/internal/validation"
)

type candidatesResponse struct {
	Candidates []deck.Candidate `json:"candidates"`
	Count      int              `json:"count"`
}

// filterFromQuery reads ?tag=a&tag=b&attr.species=dog&expr=... into a Filter.
func filterFromQuery(q url.Values) catalog.Filter {
	var f catalog.Filter
	for key, values := range q {
		name, ok := strings.CutPrefix(key, "attr.")
		if !ok || name == "" || len(values) == 0 {
			continue
		}
		if f.Attributes == nil {
			f.Attributes = make(map[string]string)
		}
		f.Attributes[name] = values[0]
	}
	f.Tags = q["tag"]
	f.Expr = q.Get("expr")
	return f
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := filterFromQuery(q)
	if validationFailed(w, r, validation.ValidateFilter(f)) {
		return
	}

	cands, err := s.catalog.Candidates(r.Context(), f)
	if err != nil {
		s.log.Error().Err(err).Msg("list candidates")
		InternalError(w, r, "Failed to load candidates")
		return
	}
	if seed := q.Get("seed"); seed != "" {
		cands = catalog.Shuffle(cands, seed)
	}
	if cands == nil {
		cands = []deck.Candidate{}
	}
	writeJSON(w, http.StatusOK, candidatesResponse{Candidates: cands, Count: len(cands)})
}
