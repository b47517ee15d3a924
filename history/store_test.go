package history

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/claudechat/config"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(config.ForClaudeDir(t.TempDir()))
}

func TestLoadMissingFile(t *testing.T) {
	s := createTestStore(t)
	doc, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Conversations)
	assert.NotNil(t, doc.UserInfo.Preferences)
}

func TestSaveLoadRoundTripIsByteStable(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(legacyDoc), 0644))

	doc, err := s.Load()
	require.NoError(t, err)
	require.NoError(t, s.Save(doc))
	first, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	doc, err = s.Load()
	require.NoError(t, err)
	require.NoError(t, s.Save(doc))
	second, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), `"pinned": true`)
}

func TestCorruptFileIsMovedAside(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{oops"), 0644))

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Conversations)

	matches, err := filepath.Glob(s.Path() + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestUpdateDoesNotWriteOnError(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Update(func(d *Document) error {
		d.Conversations = append(d.Conversations, Conversation{ID: 1, Title: "x"})
		return errors.New("abort")
	})
	assert.Error(t, err)
	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr))

	doc, err := s.Update(func(d *Document) error {
		d.Conversations = append(d.Conversations, Conversation{ID: 1, Title: "x"})
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, doc.Conversations, 1)
}
