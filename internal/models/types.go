package models

import (
	"encoding/json"
	"time"
)

// Start a conversation
type ChatStartRequest struct {
	CustomerID string `json:"customer_id,omitempty"`
}

type ChatStartResponse struct {
	SessionID  string    `json:"session_id"`
	CustomerID string    `json:"customer_id"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// Send a message on an existing session
type ChatMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatMessageResponse struct {
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	ToolCalls []ToolCallInfo `json:"tool_calls,omitempty"`
}

type ToolCallInfo struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// History of a session
type ChatHistoryRequest struct {
	SessionID string `json:"session_id"`
}

type ChatHistoryResponse struct {
	SessionID  string         `json:"session_id"`
	CustomerID string         `json:"customer_id"`
	Messages   []HistoryEntry `json:"messages"`
}

type HistoryEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NATS envelope for every reply
type Envelope struct {
	Status       string          `json:"status"` // "OK", "ERROR"
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    *string         `json:"error_code,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type HealthResponse struct {
	Status    string            `json:"status"` // "healthy", "degraded"
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Status constants
const (
	StatusOK       = "OK"
	StatusError    = "ERROR"
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Error codes
const (
	ErrorInvalidRequest = "INVALID_REQUEST"
	ErrorSessionInvalid = "SESSION_INVALID"
	ErrorLLMFailed      = "LLM_API_FAILED"
	ErrorInternal       = "INTERNAL_ERROR"
	ErrorParseError     = "PARSE_ERROR"
)
