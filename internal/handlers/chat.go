package handlers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Swuzz123/Coffee-Assistant/internal/agent"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/memory"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

var (
	// ErrSessionInvalid rejects unknown and expired sessions before any
	// dialog work happens.
	ErrSessionInvalid = errors.New("session is invalid or expired")
	ErrInvalidRequest = errors.New("invalid request")
)

// Dialog runs one conversational turn. *agent.Controller implements it.
type Dialog interface {
	Run(ctx context.Context, conv agent.Conversation) (*agent.Result, error)
}

// HealthCheck reports a dependency as healthy by returning nil.
type HealthCheck func(ctx context.Context) error

type ChatHandler struct {
	dialog   Dialog
	sessions *memory.Manager
	checks   map[string]HealthCheck
	now      func() time.Time
	log      logrus.FieldLogger
}

type Option func(*ChatHandler)

// WithHealthCheck adds a named dependency to Health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *ChatHandler) { h.checks[name] = check }
}

func NewChatHandler(dialog Dialog, sessions *memory.Manager, log logrus.FieldLogger, opts ...Option) *ChatHandler {
	h := &ChatHandler{
		dialog:   dialog,
		sessions: sessions,
		checks:   map[string]HealthCheck{"sessions": sessions.Ping},
		now:      time.Now,
		log:      logging.Component(log, "chat"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewCustomerID returns an anonymous id such as CUST_9F86D081.
func NewCustomerID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "CUST_" + strings.ToUpper(hex[:8])
}

// StartChat opens a session and greets the customer.
func (h *ChatHandler) StartChat(ctx context.Context, req *models.ChatStartRequest) (*models.ChatStartResponse, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		customerID = NewCustomerID()
	}
	sessionID := uuid.NewString()

	if _, err := h.sessions.CreateSession(ctx, sessionID, customerID); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	res, err := h.dialog.Run(ctx, agent.Conversation{CustomerID: customerID})
	if err != nil {
		return nil, fmt.Errorf("welcome turn: %w", err)
	}
	if err := h.sessions.AppendMessages(ctx, sessionID, res.Messages...); err != nil {
		return nil, fmt.Errorf("save welcome: %w", err)
	}

	h.log.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"customer_id": customerID,
	}).Info("Chat started")

	return &models.ChatStartResponse{
		SessionID:  sessionID,
		CustomerID: customerID,
		Message:    res.Reply,
		Timestamp:  h.now(),
	}, nil
}

// SendMessage runs one turn on an existing session. The user message and
// everything the turn produced are saved together, and only on success.
func (h *ChatHandler) SendMessage(ctx context.Context, req *models.ChatMessageRequest) (*models.ChatMessageResponse, error) {
	text := strings.TrimSpace(req.Message)
	if req.SessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}

	unlock := h.sessions.Lock(req.SessionID)
	defer unlock()

	session, err := h.loadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	// Restart the idle clock so the session outlives the turn it is about to run.
	if err := h.sessions.UpdateActivity(ctx, req.SessionID); err != nil {
		if errors.Is(err, memory.ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("touch session: %w", err)
	}

	user := models.NewUserMessage(text)
	history := append(session.Messages, user)

	log := h.log.WithFields(logrus.Fields{
		"session_id":  req.SessionID,
		"customer_id": session.CustomerID,
	})

	res, err := h.dialog.Run(ctx, agent.Conversation{CustomerID: session.CustomerID, History: history})
	if err != nil {
		log.WithError(err).Error("Turn failed")
		return nil, fmt.Errorf("process message: %w", err)
	}

	produced := make([]models.Message, 0, len(res.Messages)+1)
	produced = append(produced, user)
	produced = append(produced, res.Messages...)
	if err := h.sessions.AppendMessages(ctx, req.SessionID, produced...); err != nil {
		if errors.Is(err, memory.ErrSessionNotFound) {
			if len(res.ToolCalls) > 0 {
				log.WithField("tool_calls", toolCallSummary(res.ToolCalls)).
					Error("Session expired after actions ran, turn not saved")
			}
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("save turn: %w", err)
	}

	log.WithFields(logrus.Fields{
		"iterations": res.Iterations,
		"tool_calls": len(res.ToolCalls),
	}).Info("Message processed")

	resp := &models.ChatMessageResponse{
		SessionID: req.SessionID,
		Message:   res.Reply,
		Timestamp: h.now(),
	}
	for _, tc := range res.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, models.ToolCallInfo{Name: tc.Name, Args: tc.Arguments})
	}
	return resp, nil
}

// History returns the customer-visible part of a thread.
func (h *ChatHandler) History(ctx context.Context, req *models.ChatHistoryRequest) (*models.ChatHistoryResponse, error) {
	if req.SessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	session, err := h.loadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	resp := &models.ChatHistoryResponse{
		SessionID:  session.SessionID,
		CustomerID: session.CustomerID,
		Messages:   []models.HistoryEntry{},
	}
	for _, m := range session.Messages {
		if (m.Role != models.RoleUser && m.Role != models.RoleAssistant) || m.Content == "" {
			continue
		}
		resp.Messages = append(resp.Messages, models.HistoryEntry{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return resp, nil
}

func (h *ChatHandler) ClearSession(ctx context.Context, req *models.ChatHistoryRequest) error {
	if req.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	unlock := h.sessions.Lock(req.SessionID)
	defer unlock()

	if err := h.sessions.ClearSession(ctx, req.SessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	h.log.WithField("session_id", req.SessionID).Info("🗑️ Session cleared")
	return nil
}

// Health pings every registered dependency.
func (h *ChatHandler) Health(ctx context.Context) *models.HealthResponse {
	resp := &models.HealthResponse{
		Status:    models.StatusHealthy,
		Timestamp: h.now(),
		Services:  make(map[string]string, len(h.checks)),
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.log.WithError(err).WithField("service", name).Warn("Health check failed")
			resp.Services[name] = "unhealthy: " + err.Error()
			resp.Status = models.StatusDegraded
			continue
		}
		resp.Services[name] = "ok"
	}
	return resp
}

func toolCallSummary(calls []models.ToolCall) []string {
	out := make([]string, 0, len(calls))
	for _, tc := range calls {
		out = append(out, tc.Name+" "+string(tc.Arguments))
	}
	return out
}

func (h *ChatHandler) loadSession(ctx context.Context, sessionID string) (*memory.SessionData, error) {
	session, err := h.sessions.LoadSession(ctx, sessionID)
	if errors.Is(err, memory.ErrSessionNotFound) {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}
