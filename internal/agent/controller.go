// Package agent runs one conversational turn: the model is invoked with the
// thread history, requested actions are executed in order, and the loop ends
// on a plain reply or when the iteration cap is reached.
package agent

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Swuzz123/Coffee-Assistant/internal/llm"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
	"github.com/Swuzz123/Coffee-Assistant/internal/orders"
	"github.com/Swuzz123/Coffee-Assistant/internal/prompts"
)

// DefaultMaxIterations bounds model invocations per turn.
const DefaultMaxIterations = 8

type State int

const (
	StateStart State = iota
	StateModelTurn
	StateActionDispatch
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateModelTurn:
		return "model_turn"
	case StateActionDispatch:
		return "action_dispatch"
	case StateEnd:
		return "end"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Actions executes model-requested actions. Execute never fails; failures
// come back as the tool message content.
type Actions interface {
	Definitions() []models.ActionSchema
	Execute(ctx context.Context, customerID string, call models.ToolCall) models.Message
}

// Conversation is the input of a turn. History must already end with the
// new user message; it is never modified.
type Conversation struct {
	CustomerID string
	History    []models.Message
}

type Result struct {
	Reply string
	// Messages produced by the turn, in order, ending with the assistant reply.
	Messages   []models.Message
	ToolCalls  []models.ToolCall
	Iterations int
	Truncated  bool
}

type Controller struct {
	model         llm.Provider
	actions       Actions
	sizeDelta     decimal.Decimal
	maxIterations int
	log           logrus.FieldLogger
}

type Option func(*Controller)

func WithMaxIterations(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithSizeDelta sets the size surcharge quoted in the system instruction.
func WithSizeDelta(d decimal.Decimal) Option {
	return func(c *Controller) { c.sizeDelta = d }
}

func NewController(model llm.Provider, actions Actions, log logrus.FieldLogger, opts ...Option) *Controller {
	c := &Controller{
		model:         model,
		actions:       actions,
		sizeDelta:     orders.DefaultSizeDelta,
		maxIterations: DefaultMaxIterations,
		log:           logging.Component(log, "agent"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// turn is the mutable state of one Run.
type turn struct {
	conv     Conversation
	system   string
	produced []models.Message
	pending  []models.ToolCall
	result   Result
}

func (t *turn) history() []models.Message {
	out := make([]models.Message, 0, len(t.conv.History)+len(t.produced))
	out = append(out, t.conv.History...)
	return append(out, t.produced...)
}

func (t *turn) finish(reply string) {
	t.result.Reply = reply
	t.produced = append(t.produced, models.NewAssistantMessage(reply))
}

// Run processes one turn. A model failure fails the whole turn and nothing
// produced so far is returned, so the caller can leave the thread untouched.
func (c *Controller) Run(ctx context.Context, conv Conversation) (*Result, error) {
	t := &turn{conv: conv}
	log := c.log.WithField("customer_id", conv.CustomerID)

	state := StateStart
	for state != StateEnd {
		var err error
		switch state {
		case StateStart:
			state = c.start(t)
		case StateModelTurn:
			state, err = c.modelTurn(ctx, t, log)
		case StateActionDispatch:
			state = c.dispatch(ctx, t, log)
		default:
			err = fmt.Errorf("agent: unexpected state %s", state)
		}
		if err != nil {
			return nil, err
		}
	}

	t.result.Messages = t.produced
	log.WithFields(logrus.Fields{
		"iterations": t.result.Iterations,
		"tool_calls": len(t.result.ToolCalls),
		"truncated":  t.result.Truncated,
	}).Debug("Turn finished")
	return &t.result, nil
}

func (c *Controller) start(t *turn) State {
	if len(t.conv.History) == 0 {
		t.finish(prompts.WelcomeMessage)
		return StateEnd
	}
	t.system = prompts.SystemPrompt(t.conv.CustomerID, c.sizeDelta)
	return StateModelTurn
}

func (c *Controller) modelTurn(ctx context.Context, t *turn, log logrus.FieldLogger) (State, error) {
	if t.result.Iterations >= c.maxIterations {
		t.result.Truncated = true
		reply := lastAssistantText(t.produced)
		if reply == "" {
			reply = prompts.IterationLimitMessage
		}
		log.WithField("iterations", t.result.Iterations).Warn("Turn reached the iteration cap")
		t.finish(reply)
		return StateEnd, nil
	}

	t.result.Iterations++
	resp, err := c.model.Generate(ctx, &llm.Request{
		System:   t.system,
		Messages: t.history(),
		Tools:    c.actions.Definitions(),
	})
	if err != nil {
		return StateEnd, fmt.Errorf("model turn %d: %w", t.result.Iterations, err)
	}

	if len(resp.ToolCalls) == 0 {
		reply := resp.Content
		if reply == "" {
			reply = prompts.FallbackMessage
		}
		t.finish(reply)
		return StateEnd, nil
	}

	calls := make([]models.ToolCall, len(resp.ToolCalls))
	for i, tc := range resp.ToolCalls {
		if tc.ID == "" {
			tc.ID = fmt.Sprintf("call_%d_%d", t.result.Iterations, i)
		}
		calls[i] = tc
	}
	msg := models.NewAssistantMessage(resp.Content)
	msg.ToolCalls = calls
	t.produced = append(t.produced, msg)
	t.pending = calls

	log.WithFields(logrus.Fields{
		"iteration": t.result.Iterations,
		"actions":   len(calls),
	}).Debug("Model requested actions")
	return StateActionDispatch, nil
}

// dispatch executes pending calls strictly in order; each result is in the
// history before the next model invocation.
func (c *Controller) dispatch(ctx context.Context, t *turn, log logrus.FieldLogger) State {
	for _, call := range t.pending {
		log.WithFields(logrus.Fields{
			"action":  call.Name,
			"call_id": call.ID,
		}).Info("Executing action")
		t.produced = append(t.produced, c.actions.Execute(ctx, t.conv.CustomerID, call))
		t.result.ToolCalls = append(t.result.ToolCalls, call)
	}
	t.pending = nil
	return StateModelTurn
}

func lastAssistantText(msgs []models.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleAssistant && msgs[i].Content != "" {
			return msgs[i].Content
		}
	}
	return ""
}
