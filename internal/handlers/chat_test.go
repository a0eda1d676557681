package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swuzz123/Coffee-Assistant/internal/agent"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/memory"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
	"github.com/Swuzz123/Coffee-Assistant/internal/prompts"
)

// echoDialog answers with the welcome on empty history, otherwise one tool
// round trip followed by an echo of the last user message.
type echoDialog struct {
	mu    sync.Mutex
	err   error
	convs []agent.Conversation
}

func (d *echoDialog) Run(_ context.Context, conv agent.Conversation) (*agent.Result, error) {
	d.mu.Lock()
	d.convs = append(d.convs, conv)
	d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}
	if len(conv.History) == 0 {
		return &agent.Result{
			Reply:    prompts.WelcomeMessage,
			Messages: []models.Message{models.NewAssistantMessage(prompts.WelcomeMessage)},
		}, nil
	}

	last := conv.History[len(conv.History)-1].Content
	call := models.ToolCall{ID: "call_1_0", Name: "search_menu", Arguments: json.RawMessage(`{"query":"` + last + `"}`)}
	request := models.NewAssistantMessage("")
	request.ToolCalls = []models.ToolCall{call}
	reply := "echo: " + last
	return &agent.Result{
		Reply: reply,
		Messages: []models.Message{
			request,
			models.NewToolMessage(call.ID, call.Name, `["Trà vải — 45,000 VND"]`),
			models.NewAssistantMessage(reply),
		},
		ToolCalls:  []models.ToolCall{call},
		Iterations: 2,
	}, nil
}

func newHandler(t *testing.T, opts ...Option) (*ChatHandler, *echoDialog, *memory.Manager) {
	t.Helper()
	dialog := &echoDialog{}
	sessions := memory.NewManager(memory.NewInMemoryStore(time.Hour), logging.Discard())
	return NewChatHandler(dialog, sessions, logging.Discard(), opts...), dialog, sessions
}

func TestStartChat(t *testing.T) {
	h, _, sessions := newHandler(t)
	ctx := context.Background()

	resp, err := h.StartChat(ctx, &models.ChatStartRequest{})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^CUST_[0-9A-F]{8}$`), resp.CustomerID)
	assert.Equal(t, prompts.WelcomeMessage, resp.Message)
	assert.NotEmpty(t, resp.SessionID)

	msgs, err := sessions.GetMessages(ctx, resp.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, prompts.WelcomeMessage, msgs[0].Content)

	named, err := h.StartChat(ctx, &models.ChatStartRequest{CustomerID: " C42 "})
	require.NoError(t, err)
	assert.Equal(t, "C42", named.CustomerID)
	assert.NotEqual(t, resp.SessionID, named.SessionID)
}

func TestSendMessagePersistsTurn(t *testing.T) {
	h, dialog, sessions := newHandler(t)
	ctx := context.Background()

	start, err := h.StartChat(ctx, &models.ChatStartRequest{CustomerID: "C1"})
	require.NoError(t, err)

	resp, err := h.SendMessage(ctx, &models.ChatMessageRequest{SessionID: start.SessionID, Message: "  trà vải  "})
	require.NoError(t, err)
	assert.Equal(t, "echo: trà vải", resp.Message)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "search_menu", resp.ToolCalls[0].Name)

	last := dialog.convs[len(dialog.convs)-1]
	assert.Equal(t, "C1", last.CustomerID)
	require.Len(t, last.History, 2)
	assert.Equal(t, models.RoleUser, last.History[1].Role)

	msgs, err := sessions.GetMessages(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Len(t, msgs, 5)

	hist, err := h.History(ctx, &models.ChatHistoryRequest{SessionID: start.SessionID})
	require.NoError(t, err)
	assert.Equal(t, "C1", hist.CustomerID)
	require.Len(t, hist.Messages, 3)
	assert.Equal(t, models.RoleAssistant, hist.Messages[0].Role)
	assert.Equal(t, "trà vải", hist.Messages[1].Content)
	assert.Equal(t, "echo: trà vải", hist.Messages[2].Content)
}

func TestSendMessageRejectsBeforeDialog(t *testing.T) {
	h, dialog, _ := newHandler(t)
	ctx := context.Background()

	_, err := h.SendMessage(ctx, &models.ChatMessageRequest{SessionID: "s", Message: "   "})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = h.SendMessage(ctx, &models.ChatMessageRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = h.SendMessage(ctx, &models.ChatMessageRequest{SessionID: "nope", Message: "hi"})
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, err = h.History(ctx, &models.ChatHistoryRequest{SessionID: "nope"})
	assert.ErrorIs(t, err, ErrSessionInvalid)

	assert.Empty(t, dialog.convs)
}

func TestSendMessageFailureLeavesHistory(t *testing.T) {
	h, dialog, sessions := newHandler(t)
	ctx := context.Background()

	start, err := h.StartChat(ctx, &models.ChatStartRequest{})
	require.NoError(t, err)

	dialog.err = errors.New("model unavailable")
	_, err = h.SendMessage(ctx, &models.ChatMessageRequest{SessionID: start.SessionID, Message: "hi"})
	assert.ErrorContains(t, err, "model unavailable")

	msgs, err := sessions.GetMessages(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

// expiringDialog drops the session while the turn is running, as a TTL expiry
// between load and save would.
type expiringDialog struct {
	echoDialog
	sessions   *memory.Manager
	sessionIDs []string
}

func (d *expiringDialog) Run(ctx context.Context, conv agent.Conversation) (*agent.Result, error) {
	res, err := d.echoDialog.Run(ctx, conv)
	if len(conv.History) > 0 {
		for _, id := range d.sessionIDs {
			_ = d.sessions.ClearSession(ctx, id)
		}
	}
	return res, err
}

func TestSendMessageSessionExpiredMidTurn(t *testing.T) {
	ctx := context.Background()
	log, hook := logtest.NewNullLogger()
	sessions := memory.NewManager(memory.NewInMemoryStore(time.Hour), logging.Discard())
	dialog := &expiringDialog{sessions: sessions}
	h := NewChatHandler(dialog, sessions, log)

	start, err := h.StartChat(ctx, &models.ChatStartRequest{CustomerID: "C1"})
	require.NoError(t, err)
	dialog.sessionIDs = []string{start.SessionID}

	_, err = h.SendMessage(ctx, &models.ChatMessageRequest{SessionID: start.SessionID, Message: "trà vải"})
	assert.ErrorIs(t, err, ErrSessionInvalid)

	var entry *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			entry = e
		}
	}
	require.NotNil(t, entry, "executed actions must be logged when the turn cannot be saved")
	assert.Equal(t, start.SessionID, entry.Data["session_id"])
	assert.Equal(t, []string{`search_menu {"query":"trà vải"}`}, entry.Data["tool_calls"])
}

func TestConcurrentMessagesAreSerialized(t *testing.T) {
	h, _, sessions := newHandler(t)
	ctx := context.Background()

	start, err := h.StartChat(ctx, &models.ChatStartRequest{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.SendMessage(ctx, &models.ChatMessageRequest{SessionID: start.SessionID, Message: "bạc xỉu"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, err := sessions.GetMessages(ctx, start.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 1+10*4)
	for i := 1; i < len(msgs); i += 4 {
		assert.Equal(t, models.RoleUser, msgs[i].Role)
		assert.Equal(t, models.RoleAssistant, msgs[i+3].Role)
	}
}

func TestClearSession(t *testing.T) {
	h, _, _ := newHandler(t)
	ctx := context.Background()

	start, err := h.StartChat(ctx, &models.ChatStartRequest{})
	require.NoError(t, err)

	require.NoError(t, h.ClearSession(ctx, &models.ChatHistoryRequest{SessionID: start.SessionID}))
	_, err = h.History(ctx, &models.ChatHistoryRequest{SessionID: start.SessionID})
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.ErrorIs(t, h.ClearSession(ctx, &models.ChatHistoryRequest{}), ErrInvalidRequest)
}

func TestHealth(t *testing.T) {
	h, _, _ := newHandler(t)
	resp := h.Health(context.Background())
	assert.Equal(t, models.StatusHealthy, resp.Status)
	assert.Equal(t, map[string]string{"sessions": "ok"}, resp.Services)

	h, _, _ = newHandler(t, WithHealthCheck("database", func(context.Context) error { return errors.New("connection refused") }))
	resp = h.Health(context.Background())
	assert.Equal(t, models.StatusDegraded, resp.Status)
	assert.Equal(t, "unhealthy: connection refused", resp.Services["database"])
	assert.Equal(t, "ok", resp.Services["sessions"])
}
