package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swuzz123/Coffee-Assistant/internal/catalog"
	"github.com/Swuzz123/Coffee-Assistant/internal/database/databasetest"
	"github.com/Swuzz123/Coffee-Assistant/internal/intent"
	"github.com/Swuzz123/Coffee-Assistant/internal/llm"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
	"github.com/Swuzz123/Coffee-Assistant/internal/orders"
	"github.com/Swuzz123/Coffee-Assistant/internal/prompts"
	"github.com/Swuzz123/Coffee-Assistant/internal/tools"
)

// scriptedModel answers each Generate with the next scripted response and
// keeps a copy of every request.
type scriptedModel struct {
	replies  []*llm.Response
	err      error
	requests []llm.Request
}

func (s *scriptedModel) Name() string { return "scripted" }

func (s *scriptedModel) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	cp := *req
	cp.Messages = append([]models.Message(nil), req.Messages...)
	s.requests = append(s.requests, cp)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.replies) == 0 {
		return &llm.Response{Content: "hết kịch bản"}, nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

type recordingActions struct {
	calls []models.ToolCall
}

func (r *recordingActions) Definitions() []models.ActionSchema {
	return []models.ActionSchema{{Name: "search_menu", Description: "search"}}
}

func (r *recordingActions) Execute(_ context.Context, _ string, call models.ToolCall) models.Message {
	r.calls = append(r.calls, call)
	return models.NewToolMessage(call.ID, call.Name, "result of "+call.ID)
}

func toolCall(id, name, args string) models.ToolCall {
	return models.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func userTurn(text string) Conversation {
	return Conversation{CustomerID: "C1", History: []models.Message{models.NewUserMessage(text)}}
}

func TestRunWelcomeWithoutModel(t *testing.T) {
	model := &scriptedModel{}
	c := NewController(model, &recordingActions{}, logging.Discard())

	res, err := c.Run(context.Background(), Conversation{CustomerID: "C1"})
	require.NoError(t, err)

	assert.Equal(t, prompts.WelcomeMessage, res.Reply)
	assert.Empty(t, model.requests)
	assert.Zero(t, res.Iterations)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, models.RoleAssistant, res.Messages[0].Role)
	assert.Equal(t, prompts.WelcomeMessage, res.Messages[0].Content)
}

func TestRunPlainReply(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Response{{Content: "Chào bạn!"}}}
	actions := &recordingActions{}
	c := NewController(model, actions, logging.Discard(), WithSizeDelta(decimal.NewFromInt(5000)))

	conv := userTurn("xin chào")
	res, err := c.Run(context.Background(), conv)
	require.NoError(t, err)

	assert.Equal(t, "Chào bạn!", res.Reply)
	assert.Equal(t, 1, res.Iterations)
	assert.False(t, res.Truncated)
	assert.Empty(t, actions.calls)
	require.Len(t, res.Messages, 1)

	require.Len(t, model.requests, 1)
	req := model.requests[0]
	assert.Contains(t, req.System, "C1")
	assert.Contains(t, req.System, "5,000 VND")
	assert.Equal(t, conv.History, req.Messages)
	assert.Len(t, req.Tools, 1)
	assert.Len(t, conv.History, 1)
}

func TestRunEmptyReplyFallsBack(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Response{{}}}
	c := NewController(model, &recordingActions{}, logging.Discard())

	res, err := c.Run(context.Background(), userTurn("..."))
	require.NoError(t, err)
	assert.Equal(t, prompts.FallbackMessage, res.Reply)
}

func TestRunDispatchesInOrder(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Response{
		{ToolCalls: []models.ToolCall{
			toolCall("a", "search_menu", `{"query":"trà"}`),
			toolCall("", "search_menu", `{"query":"cà phê"}`),
		}},
		{Content: "Để mình xem đơn nhé", ToolCalls: []models.ToolCall{toolCall("", "get_order_status", `{"order_id":1}`)}},
		{Content: "Xong rồi!"},
	}}
	actions := &recordingActions{}
	c := NewController(model, actions, logging.Discard())

	res, err := c.Run(context.Background(), userTurn("có trà và cà phê gì"))
	require.NoError(t, err)

	assert.Equal(t, "Xong rồi!", res.Reply)
	assert.Equal(t, 3, res.Iterations)
	require.Len(t, actions.calls, 3)
	assert.Equal(t, []string{"a", "call_1_1", "call_2_0"}, []string{actions.calls[0].ID, actions.calls[1].ID, actions.calls[2].ID})
	assert.Equal(t, actions.calls, res.ToolCalls)

	roles := make([]models.Role, 0, len(res.Messages))
	for _, m := range res.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []models.Role{
		models.RoleAssistant, models.RoleTool, models.RoleTool,
		models.RoleAssistant, models.RoleTool,
		models.RoleAssistant,
	}, roles)

	// The second invocation sees both results of the first.
	require.Len(t, model.requests, 3)
	second := model.requests[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, "result of a", second[2].Content)
	assert.Equal(t, "call_1_1", second[3].ToolCallID)
	assert.Len(t, model.requests[2].Messages, 6)
}

func TestRunIterationCap(t *testing.T) {
	loop := func() *llm.Response {
		return &llm.Response{ToolCalls: []models.ToolCall{toolCall("", "search_menu", `{"query":"x"}`)}}
	}

	model := &scriptedModel{replies: []*llm.Response{loop(), loop(), loop()}}
	c := NewController(model, &recordingActions{}, logging.Discard(), WithMaxIterations(2))
	res, err := c.Run(context.Background(), userTurn("loop"))
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, 2, res.Iterations)
	assert.Len(t, model.requests, 2)
	assert.Equal(t, prompts.IterationLimitMessage, res.Reply)
	last := res.Messages[len(res.Messages)-1]
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.Empty(t, last.ToolCalls)

	withText := loop()
	withText.Content = "Mình đang tìm thêm"
	model = &scriptedModel{replies: []*llm.Response{withText, loop()}}
	c = NewController(model, &recordingActions{}, logging.Discard(), WithMaxIterations(2))
	res, err = c.Run(context.Background(), userTurn("loop"))
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, "Mình đang tìm thêm", res.Reply)
}

func TestRunModelFailure(t *testing.T) {
	model := &scriptedModel{err: errors.New("upstream 503")}
	c := NewController(model, &recordingActions{}, logging.Discard())

	res, err := c.Run(context.Background(), userTurn("hi"))
	assert.Nil(t, res)
	assert.ErrorContains(t, err, "upstream 503")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "model_turn", StateModelTurn.String())
	assert.Equal(t, "action_dispatch", StateActionDispatch.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestRunPlacesOrderThroughRegistry(t *testing.T) {
	db := databasetest.OpenSeeded(t)
	cat := catalog.NewRepository(db, logging.Discard())
	vocab, err := cat.Vocabulary(context.Background())
	require.NoError(t, err)
	repo := orders.NewRepository(db)
	reg, err := tools.NewRegistry(intent.NewClassifier(vocab), cat, orders.NewService(cat, repo, logging.Discard()), logging.Discard())
	require.NoError(t, err)

	model := &scriptedModel{replies: []*llm.Response{
		{ToolCalls: []models.ToolCall{toolCall("t1", tools.PlaceOrder,
			`{"customer_id":"C1","items":[{"item_name":"Cà phê sữa đá","quantity":2,"customizations":{"size":"L"}}]}`)}},
		{Content: "Đơn của bạn đã được ghi nhận."},
	}}
	c := NewController(model, reg, logging.Discard())

	res, err := c.Run(context.Background(), userTurn("cho mình 2 cà phê sữa đá size L"))
	require.NoError(t, err)
	assert.Equal(t, "Đơn của bạn đã được ghi nhận.", res.Reply)

	require.Len(t, res.Messages, 3)
	assert.Contains(t, res.Messages[1].Content, "78,000 VND")

	var order models.Order
	require.NoError(t, db.Preload("Items").First(&order).Error)
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(78000)))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
}
