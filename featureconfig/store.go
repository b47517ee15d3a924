package featureconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xiaoyuanzhu-com/claudechat/config"
	"github.com/xiaoyuanzhu-com/claudechat/db"
	"github.com/xiaoyuanzhu-com/claudechat/log"
)

// FilePrefix names the snapshot files the external tool writes.
const FilePrefix = "statsig.cached.evaluations."

// ErrSnapshotNotFound is returned when deleting a snapshot that does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Gate is one evaluated feature gate.
type Gate struct {
	Name   string `json:"name"`
	Value  bool   `json:"value"`
	RuleID string `json:"rule_id,omitempty"`
}

// DynamicConfig is one evaluated dynamic config.
type DynamicConfig struct {
	Name   string `json:"name"`
	Value  any    `json:"value"`
	RuleID string `json:"rule_id,omitempty"`
}

// Snapshot is the decoded feature-config state for one session.
type Snapshot struct {
	Path           string                   `json:"path,omitempty"`
	FeatureGates   map[string]Gate          `json:"feature_gates"`
	DynamicConfigs map[string]DynamicConfig `json:"dynamic_configs"`
}

// FileInfo describes a snapshot file on disk.
type FileInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// mtimeSlack covers filesystems with coarse modification times.
const mtimeSlack = 2 * time.Second

// Index remembers which snapshot mentions a session.
type Index interface {
	Lookup(ctx context.Context, sessionID string) (*db.SnapshotEntry, error)
	Put(ctx context.Context, sessionID, path string) error
	Forget(ctx context.Context, sessionID string) error
	ForgetPath(ctx context.Context, path string) error
}

// Store finds and decodes feature-config snapshots. It never writes them,
// apart from the explicit delete and clear operations.
type Store struct {
	dir   string
	index Index
}

// NewStore creates a store over cfg.StatsigDir. index may be nil, in which
// case every lookup scans the snapshot files.
func NewStore(cfg *config.Config, index Index) *Store {
	return &Store{dir: cfg.StatsigDir, index: index}
}

// Find returns the path of the first snapshot, in directory listing order,
// whose raw text contains sessionID. "" means none does.
func (s *Store) Find(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", nil
	}

	if s.index != nil {
		entry, err := s.index.Lookup(ctx, sessionID)
		if err != nil {
			log.Warn().Err(err).Str("sessionId", sessionID).Msg("snapshot index lookup failed, scanning")
		} else if entry != nil {
			path, err := s.validate(sessionID, entry)
			if err != nil {
				return "", err
			}
			if path == entry.Path {
				return path, nil
			}
			if path == "" {
				// Stale entry: the file was rewritten or removed
				if err := s.index.Forget(ctx, sessionID); err != nil {
					log.Warn().Err(err).Str("sessionId", sessionID).Msg("failed to drop stale snapshot index entry")
				}
			} else {
				s.remember(ctx, sessionID, path)
				return path, nil
			}
		}
	}

	path, err := s.scan(sessionID)
	if err != nil || path == "" {
		return path, err
	}
	s.remember(ctx, sessionID, path)
	return path, nil
}

func (s *Store) remember(ctx context.Context, sessionID, path string) {
	if s.index == nil {
		return
	}
	if err := s.index.Put(ctx, sessionID, path); err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("failed to index snapshot")
	}
}

// validate checks an index entry against the directory. Files listed before
// the indexed one were non-matches when it was indexed, so only those
// modified since then are read again. The result is the first match in
// listing order, or "" when the indexed file no longer mentions the session.
func (s *Store) validate(sessionID string, entry *db.SnapshotEntry) (string, error) {
	entries, err := s.snapshotEntries()
	if err != nil {
		return "", err
	}
	indexed := filepath.Base(entry.Path)
	since := entry.IndexedAt.Add(-mtimeSlack)
	for _, e := range entries {
		path := filepath.Join(s.dir, e.Name())
		if e.Name() == indexed {
			if mentions(path, sessionID) {
				return path, nil
			}
			return "", nil
		}
		if e.Name() > indexed {
			break
		}
		info, err := e.Info()
		if err != nil || info.ModTime().Before(since) {
			continue
		}
		if mentions(path, sessionID) {
			return path, nil
		}
	}
	return "", nil
}

// Load returns the session's snapshot. Sessions with no snapshot, or whose
// snapshot cannot be decoded, get an empty one.
func (s *Store) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	path, err := s.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return emptySnapshot(), nil
	}
	snap, err := ParseFile(path)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("unreadable feature-config snapshot")
		return emptySnapshot(), nil
	}
	return snap, nil
}

// Client builds a flag client bound to one session.
func (s *Store) Client(ctx context.Context, sessionID string) (*Client, error) {
	snap, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return NewClient(snap), nil
}

// CheckFeature reports a gate's value for a session, or def when unknown.
func (s *Store) CheckFeature(ctx context.Context, sessionID, name string, def bool) bool {
	c, err := s.Client(ctx, sessionID)
	if err != nil {
		return def
	}
	return c.IsEnabled(name, def)
}

// ConfigValue returns a dynamic config's value for a session, or def when unknown.
func (s *Store) ConfigValue(ctx context.Context, sessionID, name string, def any) any {
	c, err := s.Client(ctx, sessionID)
	if err != nil {
		return def
	}
	return c.Value(name, def)
}

// ListFiles describes every snapshot file, in name order.
func (s *Store) ListFiles() ([]FileInfo, error) {
	entries, err := s.snapshotEntries()
	if err != nil {
		return nil, err
	}
	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:     e.Name(),
			Path:     filepath.Join(s.dir, e.Name()),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	return files, nil
}

// DeleteFile removes one snapshot by file name.
func (s *Store) DeleteFile(ctx context.Context, name string) error {
	if !strings.HasPrefix(name, FilePrefix) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	path := filepath.Join(s.dir, name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if s.index != nil {
		if err := s.index.ForgetPath(ctx, path); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("failed to drop snapshot from index")
		}
	}
	return nil
}

// Clear removes every snapshot file and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int, error) {
	entries, err := s.snapshotEntries()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if err := s.DeleteFile(ctx, e.Name()); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// ParseFile decodes a snapshot. The file's "data" field is itself a JSON
// document, usually encoded as a string.
func ParseFile(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var outer struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if len(outer.Data) == 0 {
		return nil, fmt.Errorf("snapshot has no data field")
	}

	inner := []byte(outer.Data)
	var encoded string
	if err := json.Unmarshal(outer.Data, &encoded); err == nil {
		inner = []byte(encoded)
	}

	snap := emptySnapshot()
	if err := json.Unmarshal(inner, snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot data: %w", err)
	}
	if snap.FeatureGates == nil {
		snap.FeatureGates = map[string]Gate{}
	}
	if snap.DynamicConfigs == nil {
		snap.DynamicConfigs = map[string]DynamicConfig{}
	}
	snap.Path = path
	return snap, nil
}

func (s *Store) scan(sessionID string) (string, error) {
	entries, err := s.snapshotEntries()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		path := filepath.Join(s.dir, e.Name())
		if mentions(path, sessionID) {
			return path, nil
		}
	}
	return "", nil
}

func (s *Store) snapshotEntries() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}
	var out []os.DirEntry
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), FilePrefix) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func mentions(path, sessionID string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return bytes.Contains(raw, []byte(sessionID))
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		FeatureGates:   map[string]Gate{},
		DynamicConfigs: map[string]DynamicConfig{},
	}
}
