package chat

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/claudechat/claude"
	"github.com/xiaoyuanzhu-com/claudechat/config"
	"github.com/xiaoyuanzhu-com/claudechat/featureconfig"
	"github.com/xiaoyuanzhu-com/claudechat/history"
	"github.com/xiaoyuanzhu-com/claudechat/memory"
	"github.com/xiaoyuanzhu-com/claudechat/models"
	"github.com/xiaoyuanzhu-com/claudechat/registry"
	"github.com/xiaoyuanzhu-com/claudechat/tasks"
	"github.com/xiaoyuanzhu-com/claudechat/transcript"
)

type fakeAssistant struct {
	reply   claude.Reply
	err     error
	prompts []string
	cont    []bool
}

func (f *fakeAssistant) Stream(ctx context.Context, prompt string, continuing bool, onChunk func(string)) (claude.Reply, error) {
	f.prompts = append(f.prompts, prompt)
	f.cont = append(f.cont, continuing)
	if f.err != nil {
		return claude.Reply{}, f.err
	}
	if onChunk != nil {
		onChunk(f.reply.Text)
	}
	return f.reply, nil
}

func createTestService(t *testing.T, a Assistant) (*Service, *registry.Registry) {
	t.Helper()
	cfg := config.ForClaudeDir(t.TempDir())
	reg := registry.New(
		transcript.NewStore(cfg),
		tasks.NewStore(cfg),
		featureconfig.NewStore(cfg, nil),
		history.NewStore(cfg),
	)
	return NewService(a, reg, memory.ForLocale("pt")), reg
}

func TestSendCreatesSessionAndLearnsName(t *testing.T) {
	a := &fakeAssistant{reply: claude.Reply{Text: "Prazer, Ana!", ConversationID: "99"}}
	svc, reg := createTestService(t, a)
	ctx := context.Background()

	var sc SessionContext
	var streamed string
	res, err := svc.Send(ctx, &sc, "meu nome é Ana", func(s string) { streamed += s })
	require.NoError(t, err)
	require.NoError(t, res.PersistError)

	assert.True(t, res.Created)
	assert.NotEmpty(t, sc.SessionID)
	assert.Equal(t, "99", sc.ConversationID)
	assert.Equal(t, "Prazer, Ana!", streamed)
	assert.Equal(t, "[CONTEXTO: O nome do usuário é Ana.]\n\nmeu nome é Ana", a.prompts[0])
	assert.Equal(t, []bool{false}, a.cont)
	assert.Len(t, sc.Messages, 2)

	info, err := reg.UserInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", info.Name())

	messages, err := reg.Messages(ctx, sc.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, "Prazer, Ana!", messages[1].Content)

	// Second turn continues the CLI conversation and appends to the same session
	res, err = svc.Send(ctx, &sc, "tudo bem?", nil)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, []bool{false, true}, a.cont)
	messages, err = reg.Messages(ctx, sc.SessionID)
	require.NoError(t, err)
	assert.Len(t, messages, 4)
}

func TestSendFailureLeavesStateUntouched(t *testing.T) {
	a := &fakeAssistant{err: claude.ErrTimeout}
	svc, reg := createTestService(t, a)
	ctx := context.Background()

	var sc SessionContext
	_, err := svc.Send(ctx, &sc, "meu nome é Ana", nil)
	assert.ErrorIs(t, err, claude.ErrTimeout)
	assert.Empty(t, sc.SessionID)
	assert.Empty(t, sc.Messages)

	convs, err := reg.Conversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)
	info, err := reg.UserInfo(ctx)
	require.NoError(t, err)
	assert.Nil(t, info.UserName)
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	svc, _ := createTestService(t, &fakeAssistant{})
	var sc SessionContext
	_, err := svc.Send(context.Background(), &sc, "   ", nil)
	assert.Error(t, err)
}

func TestSendReportsMissingSession(t *testing.T) {
	a := &fakeAssistant{reply: claude.Reply{Text: "ok"}}
	svc, _ := createTestService(t, a)

	sc := SessionContext{SessionID: "gone"}
	res, err := svc.Send(context.Background(), &sc, "oi", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, res.PersistError, registry.ErrSessionNotFound)
	assert.Len(t, sc.Messages, 2, "turn stays in the in-memory view")
}

func TestSessionContextForget(t *testing.T) {
	sc := SessionContext{SessionID: "a", ConversationID: "1", Messages: []models.Message{{Role: "user", Content: "x"}}}
	assert.False(t, sc.Forget("b"))
	assert.Equal(t, "a", sc.SessionID)
	assert.True(t, sc.Forget("a"))
	assert.Equal(t, SessionContext{}, sc)
}

func TestOpenSelectsSession(t *testing.T) {
	svc, reg := createTestService(t, &fakeAssistant{})
	ctx := context.Background()
	id, err := reg.CreateSession(ctx, "olá mundo")
	require.NoError(t, err)

	sc := SessionContext{ConversationID: "5"}
	require.NoError(t, svc.Open(ctx, &sc, id))
	assert.Equal(t, id, sc.SessionID)
	assert.Empty(t, sc.ConversationID)
	require.Len(t, sc.Messages, 1)
	assert.Equal(t, "olá mundo", sc.Messages[0].Content)
}

func TestOpenByNumericIDStoresSessionID(t *testing.T) {
	svc, reg := createTestService(t, &fakeAssistant{})
	ctx := context.Background()
	id, err := reg.CreateSession(ctx, "olá mundo")
	require.NoError(t, err)
	conv, err := reg.Conversation(ctx, id)
	require.NoError(t, err)

	var sc SessionContext
	require.NoError(t, svc.Open(ctx, &sc, strconv.Itoa(conv.ID)))
	assert.Equal(t, id, sc.SessionID)
	require.Len(t, sc.Messages, 1)

	require.NoError(t, reg.DeleteSession(ctx, id))
	assert.True(t, sc.Forget(id))
	assert.Empty(t, sc.SessionID)
}
