package tasks

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/claudechat/config"
	"github.com/xiaoyuanzhu-com/claudechat/models"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(config.ForClaudeDir(t.TempDir()))
}

func TestLoadMissingIsEmpty(t *testing.T) {
	s := createTestStore(t)
	items, err := s.Load("nope")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.False(t, s.Exists("nope"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := createTestStore(t)
	in := []models.Task{
		{ID: "1", Content: "write docs", Status: "completed", Priority: "low"},
		{ID: "2", Content: "ship", Status: "in_progress", Priority: "high", ActiveForm: "Shipping"},
	}
	require.NoError(t, s.Save("s1", in))

	out, err := s.Load("s1")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSaveEmptyWritesArray(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Save("s1", nil))

	data, err := os.ReadFile(s.Path("s1"))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestAddUpdateRemove(t *testing.T) {
	s := createTestStore(t)

	a, err := s.Add("s1", "first", "")
	require.NoError(t, err)
	assert.Equal(t, models.Task{ID: "1", Content: "first", Status: "pending", Priority: "medium"}, a)

	b, err := s.Add("s1", "second", "high")
	require.NoError(t, err)
	assert.Equal(t, "2", b.ID)

	done := models.StatusCompleted
	updated, err := s.Update("s1", "1", Patch{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	bad := "blocked"
	_, err = s.Update("s1", "1", Patch{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidTask)

	_, err = s.Update("s1", "9", Patch{Status: &done})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	require.NoError(t, s.Remove("s1", "1"))
	assert.ErrorIs(t, s.Remove("s1", "1"), ErrTaskNotFound)

	c, err := s.Add("s1", "third", "low")
	require.NoError(t, err)
	assert.Equal(t, "3", c.ID)

	items, err := s.Load("s1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Content)
}

func TestUpdateBlankContentKeepsTask(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Save("s1", []models.Task{
		{ID: "1", Content: "one", Status: "pending", Priority: "medium"},
		{ID: "2", Content: "two", Status: "pending", Priority: "medium"},
	}))

	blank := "   "
	_, err := s.Update("s1", "1", Patch{Content: &blank})
	assert.ErrorIs(t, err, ErrInvalidTask)

	items, err := s.Load("s1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "one", items[0].Content)

	padded := "  one, revised  "
	updated, err := s.Update("s1", "1", Patch{Content: &padded})
	require.NoError(t, err)
	assert.Equal(t, "one, revised", updated.Content)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Save("s1", []models.Task{{Content: "x"}}))
	require.NoError(t, s.Delete("s1"))
	assert.False(t, s.Exists("s1"))
	assert.NoError(t, s.Delete("s1"))
}

func TestRejectsPathLikeIDs(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Load("../x")
	assert.Error(t, err)
}
