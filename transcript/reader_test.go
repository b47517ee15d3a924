package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAllSkipsMalformedTrailingLine(t *testing.T) {
	s, cfg := createTestStore(t)
	writeTranscript(t, cfg.BucketDirs()[1], "torn",
		`{"type":"user","timestamp":"2025-01-01T00:00:00Z","message":{"role":"user","content":"hi"}}`,
		`{"type":"assistant","timestamp":"2025-01-01T00:00:05Z","message":{"role":"assistant","content":[{"type":"text","text":"hello"}]}}`,
		`{"type":"user","message":{"role":"us`,
	)

	records, err := s.ReadAll("torn")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	msgs, err := s.Messages("torn")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestNormalizeDropsNonConversationalRecords(t *testing.T) {
	s, cfg := createTestStore(t)
	writeTranscript(t, cfg.BucketDirs()[0], "mixed",
		`{"type":"summary","summary":"x"}`,
		`{"type":"user","isSidechain":true,"message":{"role":"user","content":"side"}}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t","content":"ok"}]}}`,
		`{"type":"system","message":{"role":"system","content":"sys"}}`,
		`{"type":"assistant","message":{"content":"role from type"}}`,
		`{"type":"user","message":{"role":"user","content":""}}`,
	)

	msgs, err := s.Messages("mixed")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "assistant", msgs[0].Role)
	assert.Equal(t, "role from type", msgs[0].Content)
}

func TestNonStringTimestampsKeepMessages(t *testing.T) {
	s, cfg := createTestStore(t)
	writeTranscript(t, cfg.BucketDirs()[0], "epoch",
		`{"type":"user","timestamp":1,"message":{"role":"user","content":"Oi tudo bem"}}`,
		`{"type":"assistant","timestamp":2,"message":{"role":"assistant","content":"Olá"}}`,
		`{"type":"user","timestamp":{"weird":true},"message":{"role":"user","content":"e agora?"}}`,
	)

	msgs, err := s.Messages("epoch")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Oi tudo bem", msgs[0].Content)
	assert.Equal(t, "1970-01-01T00:00:01Z", msgs[0].Timestamp)
	assert.Empty(t, msgs[2].Timestamp)
}

func TestSummarize(t *testing.T) {
	_, cfg := createTestStore(t)
	path := writeTranscript(t, cfg.BucketDirs()[1], "sum",
		`{"type":"user","timestamp":"2025-01-01T00:00:00Z","message":{"role":"user","content":"first question"}}`,
		`{"type":"assistant","timestamp":"2025-01-01T00:00:03Z","message":{"role":"assistant","content":"answer"}}`,
		`{"type":"custom-title","customTitle":"Renamed"}`,
		`{"type":"user","timestamp":"2025-01-01T00:01:00Z","message":{"role":"user","content":"second"}}`,
		`not json`,
	)

	sum, err := Summarize(path)
	require.NoError(t, err)
	require.NotNil(t, sum.First)
	require.NotNil(t, sum.Last)
	assert.Equal(t, "first question", sum.First.Text())
	assert.Equal(t, "2025-01-01T00:01:00Z", string(sum.Last.Timestamp))
	assert.Equal(t, "Renamed", sum.CustomTitle)
	assert.Equal(t, 2, sum.UserLines)
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Nova Conversa", "Nova Conversa"},
		{"  como faço deploy?\nsegunda linha", "como faço deploy?"},
		{"ok", UntitledTitle},
		{"", UntitledTitle},
		{strings.Repeat("á", 60), strings.Repeat("á", 50)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveTitle(tt.in), "input %q", tt.in)
	}
}

func TestTitleFromRecord(t *testing.T) {
	assert.Equal(t, NonTextTitle, TitleFromRecord(nil))

	s, cfg := createTestStore(t)
	writeTranscript(t, cfg.BucketDirs()[0], "blocks",
		`{"type":"user","message":{"role":"user","content":[{"type":"text","text":"hello there"}]}}`,
	)
	records, err := s.ReadAll("blocks")
	require.NoError(t, err)
	assert.Equal(t, NonTextTitle, TitleFromRecord(&records[0]))
}
