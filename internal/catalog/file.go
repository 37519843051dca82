package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/pawswipe/internal/deck"
)

//go:embed data/seed.yaml
var seedFS embed.FS

// Parse decodes a candidate list. name selects the format by extension.
func Parse(name string, raw []byte) ([]deck.Candidate, error) {
	var cands []deck.Candidate
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &cands); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", name, err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &cands); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	return cands, nil
}

// EmbeddedSource serves the built-in seed deck.
type EmbeddedSource struct {
	once  sync.Once
	cands []deck.Candidate
	err   error
}

func NewEmbeddedSource() *EmbeddedSource {
	return &EmbeddedSource{}
}

func (s *EmbeddedSource) init() {
	raw, err := seedFS.ReadFile("data/seed.yaml")
	if err != nil {
		s.err = fmt.Errorf("read embedded catalog: %w", err)
		return
	}
	s.cands, s.err = Parse("seed.yaml", raw)
}

func (s *EmbeddedSource) Candidates(_ context.Context, f Filter) ([]deck.Candidate, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return nil, s.err
	}
	return f.Apply(s.cands)
}

// Changes is nil: the embedded deck never changes.
func (s *EmbeddedSource) Changes() <-chan struct{} { return nil }

// FileSource reads candidates from a YAML or JSON file and, once Watch is
// running, reloads it whenever the file is rewritten.
type FileSource struct {
	path    string
	log     zerolog.Logger
	changes chan struct{}

	mu    sync.RWMutex
	cands []deck.Candidate
}

// NewFileSource reads path once; a missing or malformed file is an error.
func NewFileSource(path string, log zerolog.Logger) (*FileSource, error) {
	s := &FileSource{
		path:    path,
		log:     log.With().Str("component", "catalog").Str("path", path).Logger(),
		changes: make(chan struct{}, 1),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSource) Candidates(_ context.Context, f Filter) ([]deck.Candidate, error) {
	s.mu.RLock()
	cands := s.cands
	s.mu.RUnlock()
	return f.Apply(cands)
}

func (s *FileSource) Changes() <-chan struct{} { return s.changes }

func (s *FileSource) reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	cands, err := Parse(s.path, raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cands = cands
	s.mu.Unlock()
	return nil
}

// Watch blocks until ctx is done, reloading the file on change and signalling
// Changes after each successful reload. The parent directory is watched so
// editors that replace the file by rename are picked up too.
func (s *FileSource) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", s.path, err)
	}
	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if err := s.reload(); err != nil {
				// Keep serving the previous deck; a half-written file is common.
				s.log.Warn().Err(err).Msg("catalog reload failed")
				continue
			}
			s.log.Info().Msg("catalog reloaded")
			select {
			case s.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Error().Err(err).Msg("catalog watcher error")
		}
	}
}
