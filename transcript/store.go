package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xiaoyuanzhu-com/claudechat/claude/models"
	domain "github.com/xiaoyuanzhu-com/claudechat/models"
	"github.com/xiaoyuanzhu-com/claudechat/config"
	"github.com/xiaoyuanzhu-com/claudechat/log"
)

// ErrNotFound is returned when no bucket holds a transcript for the session.
var ErrNotFound = errors.New("transcript not found")

// ErrInvalidSessionID is returned for ids that cannot be used as a filename.
var ErrInvalidSessionID = errors.New("invalid session id")

const fileExt = ".jsonl"

// File is one transcript on disk.
type File struct {
	SessionID string
	Path      string
	Group     string // Bucket display name
	ModTime   time.Time
}

// Store reads and appends per-session JSONL transcripts spread across an
// ordered list of bucket directories. Locate always returns the match in the
// earliest bucket, so a session id found twice resolves the same way every time.
type Store struct {
	buckets    []config.Bucket
	dirs       []string
	defaultDir string
	cwd        string

	now   func() time.Time
	newID func() string

	mu sync.Mutex // serializes appends from this process
}

// NewStore creates a store over the configured buckets.
func NewStore(cfg *config.Config) *Store {
	return &Store{
		buckets:    cfg.Buckets,
		dirs:       cfg.BucketDirs(),
		defaultDir: cfg.DefaultBucketDir(),
		cwd:        cfg.ClaudeDir,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// ValidSessionID reports whether id is safe to use as a transcript filename.
func ValidSessionID(id string) bool {
	if id == "" || strings.HasPrefix(id, ".") {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

// Locate returns the path of the session's transcript.
func (s *Store) Locate(sessionID string) (string, error) {
	f, err := s.LocateFile(sessionID)
	if err != nil {
		return "", err
	}
	return f.Path, nil
}

// LocateFile is Locate plus the owning bucket.
func (s *Store) LocateFile(sessionID string) (File, error) {
	if !ValidSessionID(sessionID) {
		return File{}, fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}
	for i, dir := range s.dirs {
		path := filepath.Join(dir, sessionID+fileExt)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return File{
				SessionID: sessionID,
				Path:      path,
				Group:     s.buckets[i].Name,
				ModTime:   info.ModTime(),
			}, nil
		}
	}
	return File{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
}

// List returns every transcript in bucket order, then filename order.
// A session id already seen in an earlier bucket is skipped.
func (s *Store) List() ([]File, error) {
	seen := make(map[string]bool)
	var files []File

	for i, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read bucket %s: %w", s.buckets[i].Dir, err)
		}
		sort.Slice(entries, func(a, b int) bool { return entries[a].Name() < entries[b].Name() })

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
				continue
			}
			id := strings.TrimSuffix(name, fileExt)
			if !ValidSessionID(id) || seen[id] {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				log.Warn().Err(err).Str("file", name).Msg("failed to stat transcript")
				continue
			}
			seen[id] = true
			files = append(files, File{
				SessionID: id,
				Path:      filepath.Join(dir, name),
				Group:     s.buckets[i].Name,
				ModTime:   info.ModTime(),
			})
		}
	}
	return files, nil
}

// Create writes a new transcript in the default bucket whose first record is
// a user message carrying title. It fails if the session already exists.
func (s *Store) Create(sessionID, title string) (string, error) {
	if _, err := s.Locate(sessionID); err == nil {
		return "", fmt.Errorf("transcript already exists: %s", sessionID)
	} else if errors.Is(err, ErrInvalidSessionID) {
		return "", err
	}

	path := filepath.Join(s.defaultDir, sessionID+fileExt)
	rec := s.newMessageRecord(sessionID, domain.RoleUser, title)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLines(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, rec); err != nil {
		return "", err
	}
	return path, nil
}

// Append adds one message record to the session's transcript. When the
// transcript does not exist yet it is created in the default bucket, led by
// a title record derived from content. Errors are logged and returned;
// callers treat a failed append as non-fatal.
func (s *Store) Append(sessionID, role, content string) error {
	if !domain.ValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}

	var records []models.Record
	path, err := s.Locate(sessionID)
	if errors.Is(err, ErrNotFound) {
		path = filepath.Join(s.defaultDir, sessionID+fileExt)
		records = append(records, s.newTitleRecord(sessionID, DeriveTitle(content)))
	} else if err != nil {
		return err
	}
	records = append(records, s.newMessageRecord(sessionID, role, content))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLines(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, records...); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Str("role", role).Msg("failed to append transcript record")
		return err
	}
	return nil
}

// AppendTitle records an explicit rename. Discovery uses the latest one.
func (s *Store) AppendTitle(sessionID, title string) error {
	path, err := s.Locate(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLines(path, os.O_APPEND|os.O_WRONLY, s.newTitleRecord(sessionID, title))
}

// Delete removes the session's transcript. A missing transcript is not an error.
func (s *Store) Delete(sessionID string) error {
	path, err := s.Locate(sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

// Dirs returns the absolute bucket directories in search order.
func (s *Store) Dirs() []string {
	return s.dirs
}

func (s *Store) newMessageRecord(sessionID, role, content string) models.Record {
	userType := "external"
	if role == domain.RoleAssistant {
		userType = "claude"
	}
	return models.Record{
		BaseMessage: models.BaseMessage{
			Type:      role,
			UUID:      s.newID(),
			Timestamp: s.timestamp(),
		},
		EnvelopeFields: models.EnvelopeFields{
			UserType:  userType,
			CWD:       s.cwd,
			SessionID: sessionID,
		},
		Message: models.NewTextMessage(role, content),
	}
}

func (s *Store) newTitleRecord(sessionID, title string) models.Record {
	return models.Record{
		BaseMessage: models.BaseMessage{
			Type:      models.TypeCustomTitle,
			Timestamp: s.timestamp(),
		},
		EnvelopeFields: models.EnvelopeFields{SessionID: sessionID},
		CustomTitle:    title,
	}
}

func (s *Store) timestamp() models.Timestamp {
	return models.Timestamp(s.now().UTC().Format(time.RFC3339Nano))
}

// writeLines encodes records as one buffer and writes it with a single call
// so a concurrent reader never sees half of a record followed by another.
func (s *Store) writeLines(path string, flag int, records ...models.Record) error {
	var buf []byte
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return f.Close()
}

// Buckets returns the configured buckets in search order.
func (s *Store) Buckets() []config.Bucket {
	return s.buckets
}
