package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/xiaoyuanzhu-com/claudechat/config"
	"github.com/xiaoyuanzhu-com/claudechat/log"
	"github.com/xiaoyuanzhu-com/claudechat/utils"
)

// Store persists the history cache as a single JSON file. Every save
// rewrites the whole file through a temp file and rename.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store at cfg.HistoryPath.
func NewStore(cfg *config.Config) *Store {
	return &Store{path: cfg.HistoryPath}
}

// Path returns the cache file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. A missing file yields an empty document. A file
// that cannot be decoded is moved aside and an empty document is returned,
// since everything but user memory can be rebuilt from the transcripts.
func (s *Store) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save writes the document atomically.
func (s *Store) Save(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

// Update loads the document, applies fn, and saves the result. Nothing is
// written when fn returns an error.
func (s *Store) Update(fn func(*Document) error) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
		log.Warn().Err(err).Str("backup", backup).Msg("history cache is corrupt, starting fresh")
		if rerr := os.Rename(s.path, backup); rerr != nil {
			return nil, fmt.Errorf("failed to move corrupt history aside: %w", rerr)
		}
		return NewDocument(), nil
	}
	doc.normalize()
	return doc, nil
}

func (s *Store) save(doc *Document) error {
	if err := utils.WriteJSONAtomic(s.path, doc); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("failed to save history")
		return err
	}
	return nil
}
