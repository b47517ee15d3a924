package featureconfig

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/claudechat/config"
	"github.com/xiaoyuanzhu-com/claudechat/db"
)

const sampleData = `{"feature_gates":{"12345":{"name":"enable_export_chat","value":true,"rule_id":"r1"},"tengu_x":{"name":"67890","value":false}},"dynamic_configs":{"987":{"name":"chat_limits","value":{"max_messages":20}}}}`

func writeSnapshot(t *testing.T, dir, suffix, sessionID, data string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	outer, err := json.Marshal(map[string]any{
		"data":   data,
		"user":   map[string]any{"userID": sessionID},
		"source": "Network",
	})
	require.NoError(t, err)
	path := filepath.Join(dir, FilePrefix+suffix)
	require.NoError(t, os.WriteFile(path, outer, 0644))
	return path
}

type memIndex struct {
	entries map[string]string
	at      map[string]time.Time
	lookups int
}

func newMemIndex() *memIndex {
	return &memIndex{entries: map[string]string{}, at: map[string]time.Time{}}
}

func (m *memIndex) Lookup(_ context.Context, id string) (*db.SnapshotEntry, error) {
	m.lookups++
	p, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &db.SnapshotEntry{Path: p, IndexedAt: m.at[id]}, nil
}
func (m *memIndex) Put(_ context.Context, id, path string) error {
	m.entries[id] = path
	m.at[id] = time.Now()
	return nil
}
func (m *memIndex) Forget(_ context.Context, id string) error { delete(m.entries, id); return nil }
func (m *memIndex) ForgetPath(_ context.Context, path string) error {
	for k, v := range m.entries {
		if v == path {
			delete(m.entries, k)
		}
	}
	return nil
}

func TestFindFirstMatchInListingOrder(t *testing.T) {
	cfg := config.ForClaudeDir(t.TempDir())
	writeSnapshot(t, cfg.StatsigDir, "b", "sess-1", sampleData)
	first := writeSnapshot(t, cfg.StatsigDir, "a", "sess-1", sampleData)
	writeSnapshot(t, cfg.StatsigDir, "c", "other", sampleData)

	s := NewStore(cfg, nil)
	path, err := s.Find(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, first, path)

	path, err = s.Find(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestMissingDirectoryIsEmpty(t *testing.T) {
	s := NewStore(config.ForClaudeDir(t.TempDir()), nil)
	snap, err := s.Load(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, snap.FeatureGates)
	files, err := s.ListFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCheckFeatureAndConfigValue(t *testing.T) {
	cfg := config.ForClaudeDir(t.TempDir())
	writeSnapshot(t, cfg.StatsigDir, "a", "sess-1", sampleData)
	s := NewStore(cfg, nil)
	ctx := context.Background()

	// by name
	assert.True(t, s.CheckFeature(ctx, "sess-1", "enable_export_chat", false))
	// by key
	assert.True(t, s.CheckFeature(ctx, "sess-1", "12345", false))
	assert.False(t, s.CheckFeature(ctx, "sess-1", "tengu_x", true))
	// default
	assert.True(t, s.CheckFeature(ctx, "sess-1", "unknown", true))
	assert.False(t, s.CheckFeature(ctx, "nobody", "enable_export_chat", false))

	v := s.ConfigValue(ctx, "sess-1", "chat_limits", nil)
	assert.Equal(t, map[string]any{"max_messages": float64(20)}, v)
	assert.Equal(t, "fallback", s.ConfigValue(ctx, "sess-1", "nope", "fallback"))
}

func TestUndecodableSnapshotYieldsDefaults(t *testing.T) {
	cfg := config.ForClaudeDir(t.TempDir())
	writeSnapshot(t, cfg.StatsigDir, "a", "sess-1", "{not json")
	s := NewStore(cfg, nil)

	snap, err := s.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, snap.FeatureGates)
	assert.True(t, s.CheckFeature(context.Background(), "sess-1", "enable_export_chat", true))
}

func TestParseFileAcceptsObjectData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FilePrefix+"obj")
	require.NoError(t, os.WriteFile(path, []byte(`{"data":`+sampleData+`}`), 0644))

	snap, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, snap.FeatureGates, 2)
	assert.Equal(t, path, snap.Path)
}

func TestIndexIsUsedAndValidated(t *testing.T) {
	cfg := config.ForClaudeDir(t.TempDir())
	a := writeSnapshot(t, cfg.StatsigDir, "a", "sess-1", sampleData)
	idx := newMemIndex()
	s := NewStore(cfg, idx)
	ctx := context.Background()

	path, err := s.Find(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, a, path)
	assert.Equal(t, a, idx.entries["sess-1"])

	// Rewrite the indexed file so it no longer mentions the session
	writeSnapshot(t, cfg.StatsigDir, "a", "someone-else", sampleData)
	b := writeSnapshot(t, cfg.StatsigDir, "b", "sess-1", sampleData)

	path, err = s.Find(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, b, path)
	assert.Equal(t, b, idx.entries["sess-1"])
}

func TestIndexYieldsToEarlierSnapshot(t *testing.T) {
	cfg := config.ForClaudeDir(t.TempDir())
	old := writeSnapshot(t, cfg.StatsigDir, "a", "someone-else", sampleData)
	c := writeSnapshot(t, cfg.StatsigDir, "c", "sess-1", sampleData)
	idx := newMemIndex()
	s := NewStore(cfg, idx)
	ctx := context.Background()

	path, err := s.Find(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, c, path)

	// Untouched earlier files are not read again
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	path, err = s.Find(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, c, path)

	// A new snapshot sorting before the indexed one takes over
	b := writeSnapshot(t, cfg.StatsigDir, "b", "sess-1", sampleData)
	path, err = s.Find(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, b, path)
	assert.Equal(t, b, idx.entries["sess-1"])
}

func TestDeleteAndClear(t *testing.T) {
	cfg := config.ForClaudeDir(t.TempDir())
	writeSnapshot(t, cfg.StatsigDir, "a", "sess-1", sampleData)
	writeSnapshot(t, cfg.StatsigDir, "b", "sess-2", sampleData)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.StatsigDir, "other.json"), []byte("{}"), 0644))

	idx := newMemIndex()
	s := NewStore(cfg, idx)
	ctx := context.Background()
	_, err := s.Find(ctx, "sess-1")
	require.NoError(t, err)

	files, err := s.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, FilePrefix+"a", files[0].Name)

	require.NoError(t, s.DeleteFile(ctx, FilePrefix+"a"))
	assert.Empty(t, idx.entries)
	assert.ErrorIs(t, s.DeleteFile(ctx, FilePrefix+"a"), ErrSnapshotNotFound)
	assert.ErrorIs(t, s.DeleteFile(ctx, "../other.json"), ErrSnapshotNotFound)

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = os.Stat(filepath.Join(cfg.StatsigDir, "other.json"))
	assert.NoError(t, err)
}

func TestWithSQLiteIndex(t *testing.T) {
	cfg := config.ForClaudeDir(t.TempDir())
	a := writeSnapshot(t, cfg.StatsigDir, "a", "sess-1", sampleData)

	database, err := db.Open(db.DefaultConfig(cfg.DatabasePath))
	require.NoError(t, err)
	defer database.Close()

	idx := db.NewSnapshotIndex(database)
	s := NewStore(cfg, idx)
	ctx := context.Background()

	path, err := s.Find(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, a, path)

	indexed, err := idx.Lookup(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, indexed)
	assert.Equal(t, a, indexed.Path)
}
