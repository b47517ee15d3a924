//go:build !windows

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/claudechat/claude"
	"github.com/xiaoyuanzhu-com/claudechat/config"
	"github.com/xiaoyuanzhu-com/claudechat/models"
	"github.com/xiaoyuanzhu-com/claudechat/registry"
)

const replyScript = `printf 'Conversation: abc-123\n\nOlá Ana!\n'`

func testConfig(t *testing.T, script string) *config.Config {
	t.Helper()
	cfg := config.ForClaudeDir(t.TempDir())
	cfg.ClaudePath = filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(cfg.ClaudePath, []byte("#!/bin/sh\n"+script+"\n"), 0755))
	return cfg
}

// run executes one command line against cfg and returns stdout and stderr
func run(t *testing.T, cfg *config.Config, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd(func() *config.Config { return cfg })
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func runJSON(t *testing.T, cfg *config.Config, v any, args ...string) {
	t.Helper()
	out, errOut, err := run(t, cfg, "", append([]string{"--json"}, args...)...)
	require.NoError(t, err, errOut)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestSendCreatesSessionAndRemembersName(t *testing.T) {
	cfg := testConfig(t, replyScript)

	var res struct {
		Reply          string `json:"reply"`
		SessionID      string `json:"session_id"`
		ConversationID string `json:"conversation_id"`
		Created        bool   `json:"created"`
		Persisted      bool   `json:"persisted"`
	}
	runJSON(t, cfg, &res, "send", "meu", "nome", "é", "Ana")
	assert.Equal(t, "Olá Ana!", res.Reply)
	assert.Equal(t, "abc-123", res.ConversationID)
	assert.True(t, res.Created)
	assert.True(t, res.Persisted)
	require.NotEmpty(t, res.SessionID)

	var info models.UserInfo
	runJSON(t, cfg, &info, "user")
	assert.Equal(t, "Ana", info.Name())

	var groups []registry.Group
	runJSON(t, cfg, &groups, "list")
	require.Len(t, groups, 1)
	assert.Equal(t, "Claude Chat", groups[0].Name)
	require.Len(t, groups[0].Conversations, 1)
	assert.Equal(t, "meu nome é Ana", groups[0].Conversations[0].Title)

	// Continuing appends to the same session
	runJSON(t, cfg, &res, "send", "-s", res.SessionID, "--conversation", "abc-123", "e agora?")
	assert.False(t, res.Created)

	out, _, err := run(t, cfg, "", "--raw", "show", res.SessionID)
	require.NoError(t, err)
	assert.Contains(t, out, "# meu nome é Ana")
	assert.Contains(t, out, "### Você\n\ne agora?")
	assert.Equal(t, 2, strings.Count(out, "### Claude"))
}

func TestSendFailureStoresNothing(t *testing.T) {
	cfg := testConfig(t, `echo boom >&2; exit 1`)

	_, _, err := run(t, cfg, "", "send", "meu nome é Ana")
	var toolErr *claude.ToolError
	require.True(t, errors.As(err, &toolErr), "got %v", err)
	assert.Contains(t, toolErr.Stderr, "boom")

	var groups []registry.Group
	runJSON(t, cfg, &groups, "list")
	assert.Empty(t, groups)

	var info models.UserInfo
	runJSON(t, cfg, &info, "user")
	assert.Equal(t, "", info.Name())
}

func TestSessionCommands(t *testing.T) {
	cfg := testConfig(t, replyScript)

	out, _, err := run(t, cfg, "", "create", "Plano", "de", "viagem")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	_, _, err = run(t, cfg, "", "rename", id, "Viagem", "ao", "Porto")
	require.NoError(t, err)

	var conv struct {
		Title string `json:"title"`
	}
	runJSON(t, cfg, &conv, "show", id)
	assert.Equal(t, "Viagem ao Porto", conv.Title)

	out, _, err = run(t, cfg, "", "export", "--format", "markdown", id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Viagem ao Porto\n"), out)

	_, _, err = run(t, cfg, "", "delete", id)
	require.NoError(t, err)

	_, _, err = run(t, cfg, "", "show", id)
	assert.ErrorIs(t, err, registry.ErrSessionNotFound)
	_, statErr := os.Stat(filepath.Join(cfg.TodosDir, id+".json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTaskCommands(t *testing.T) {
	cfg := testConfig(t, replyScript)
	out, _, err := run(t, cfg, "", "create", "tarefas")
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	var task models.Task
	runJSON(t, cfg, &task, "tasks", "add", id, "comprar", "pão", "-p", "high")
	assert.Equal(t, "comprar pão", task.Content)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, models.PriorityHigh, task.Priority)

	runJSON(t, cfg, &task, "tasks", "update", id, task.ID, "--status", "completed")
	assert.Equal(t, models.StatusCompleted, task.Status)

	_, _, err = run(t, cfg, "", "tasks", "update", id, task.ID, "--status", "done")
	assert.Error(t, err)

	_, _, err = run(t, cfg, "", "tasks", "update", id, task.ID)
	assert.Error(t, err)

	var items []models.Task
	runJSON(t, cfg, &items, "tasks", id)
	require.Len(t, items, 1)

	_, _, err = run(t, cfg, "", "tasks", "rm", id, task.ID)
	require.NoError(t, err)
	runJSON(t, cfg, &items, "tasks", id)
	assert.Empty(t, items)
}

func TestChatLoop(t *testing.T) {
	cfg := testConfig(t, replyScript)

	out, errOut, err := run(t, cfg, "olá\n/unknown\n/delete\n/quit\n", "--raw", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Olá Ana!")
	assert.Contains(t, errOut, "unknown command /unknown")
	assert.Contains(t, errOut, "deleted the active session")

	var groups []registry.Group
	runJSON(t, cfg, &groups, "list")
	assert.Empty(t, groups)
}

func TestUserNameFlag(t *testing.T) {
	cfg := testConfig(t, replyScript)

	var info models.UserInfo
	runJSON(t, cfg, &info, "user", "--name", "Bia")
	assert.Equal(t, "Bia", info.Name())

	runJSON(t, cfg, &info, "user", "--name", "")
	assert.Nil(t, info.UserName)
}

func TestBackupExport(t *testing.T) {
	cfg := testConfig(t, replyScript)
	_, _, err := run(t, cfg, "", "create", "backup")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "all.tar.gz")
	_, errOut, err := run(t, cfg, "", "export", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, errOut, "files archived")

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, st.Size(), int64(0))
}
