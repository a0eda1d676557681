package llm

import (
	"context"
	"errors"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

var (
	ErrEmptyResponse = errors.New("model returned no output")
	ErrRateLimited   = errors.New("model rate limited")
)

// Provider is the language model boundary. One call is one blocking model
// invocation: the whole conversation in, one assistant message out.
type Provider interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
	Name() string
}

// Request carries the system instruction separately from the history because
// several backends take it out of band.
type Request struct {
	System      string
	Messages    []models.Message
	Tools       []models.ActionSchema
	MaxTokens   int
	Temperature float64
}

// Response is the assistant output. A non-empty ToolCalls asks the caller to
// run those actions and call again with their results.
type Response struct {
	Content    string
	ToolCalls  []models.ToolCall
	StopReason string
	Usage      *Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}
