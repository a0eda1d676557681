package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

// ToolMode selects how actions reach a langchaingo backend.
type ToolMode int

const (
	// ToolsNative passes actions as function definitions.
	ToolsNative ToolMode = iota
	// ToolsPrompted describes actions in the system instruction and reads the
	// call back from a JSON object in the reply. Tool traffic in the history
	// is flattened to text.
	ToolsPrompted
)

type LangChainOptions struct {
	MaxTokens   int
	Temperature float64
	ToolMode    ToolMode
}

// LangChainProvider adapts any langchaingo chat model.
type LangChainProvider struct {
	name  string
	model llms.Model
	opts  LangChainOptions
}

func NewLangChainProvider(name string, model llms.Model, opts LangChainOptions) *LangChainProvider {
	return &LangChainProvider{name: name, model: model, opts: opts}
}

func NewOpenAIProvider(apiKey, model string, opts LangChainOptions) (*LangChainProvider, error) {
	m, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return NewLangChainProvider("openai", m, opts), nil
}

// NewOllamaProvider uses prompted tool calls; small local models are far
// more reliable with them than with native function calling.
func NewOllamaProvider(serverURL, model string, opts LangChainOptions) (*LangChainProvider, error) {
	m, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(serverURL))
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	opts.ToolMode = ToolsPrompted
	return NewLangChainProvider("ollama", m, opts), nil
}

func NewGoogleAIProvider(ctx context.Context, apiKey, model string, opts LangChainOptions) (*LangChainProvider, error) {
	m, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	if err != nil {
		return nil, fmt.Errorf("googleai: %w", err)
	}
	return NewLangChainProvider("googleai", m, opts), nil
}

func (p *LangChainProvider) Name() string { return p.name }

func (p *LangChainProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	system := req.System
	callOpts := p.callOptions(req)

	var content []llms.MessageContent
	if p.opts.ToolMode == ToolsPrompted {
		if len(req.Tools) > 0 {
			system = strings.TrimSpace(system + "\n\n" + promptedToolInstructions(req.Tools))
		}
		content = encodeFlattened(system, req.Messages)
	} else {
		tools, err := encodeLangChainTools(req.Tools)
		if err != nil {
			return nil, err
		}
		if len(tools) > 0 {
			callOpts = append(callOpts, llms.WithTools(tools))
		}
		content = encodeNative(system, req.Messages)
	}

	resp, err := p.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", p.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	choice := resp.Choices[0]

	out := &Response{
		Content:    choice.Content,
		StopReason: choice.StopReason,
		Usage:      usageFrom(choice.GenerationInfo),
	}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		out.ToolCalls = append(out.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: json.RawMessage(tc.FunctionCall.Arguments),
		})
	}
	if p.opts.ToolMode == ToolsPrompted && len(out.ToolCalls) == 0 {
		if text, calls := parsePromptedReply(choice.Content); len(calls) > 0 {
			out.Content = text
			out.ToolCalls = calls
		}
	}
	return out, nil
}

func (p *LangChainProvider) callOptions(req *Request) []llms.CallOption {
	var opts []llms.CallOption
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.opts.MaxTokens
	}
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}
	temp := req.Temperature
	if temp <= 0 {
		temp = p.opts.Temperature
	}
	if temp > 0 {
		opts = append(opts, llms.WithTemperature(temp))
	}
	return opts
}

func encodeNative(system string, msgs []models.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs)+1)
	if system != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	for _, m := range msgs {
		switch m.Role {
		case models.RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		case models.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case models.RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if m.Content != "" {
				mc.Parts = append(mc.Parts, llms.TextContent{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := string(tc.Arguments)
				if args == "" {
					args = "{}"
				}
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:           tc.ID,
					Type:         "function",
					FunctionCall: &llms.FunctionCall{Name: tc.Name, Arguments: args},
				})
			}
			if len(mc.Parts) > 0 {
				out = append(out, mc)
			}
		case models.RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: m.ToolCallID,
					Name:       m.Name,
					Content:    m.Content,
				}},
			})
		}
	}
	return out
}

// encodeFlattened renders tool calls and results as plain text turns.
func encodeFlattened(system string, msgs []models.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs)+1)
	if system != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	for _, m := range msgs {
		switch m.Role {
		case models.RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		case models.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case models.RoleAssistant:
			text := m.Content
			if len(m.ToolCalls) > 0 {
				text = strings.TrimSpace(text + "\n" + renderPromptedCalls(m.ToolCalls))
			}
			if text != "" {
				out = append(out, llms.TextParts(llms.ChatMessageTypeAI, text))
			}
		case models.RoleTool:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman,
				fmt.Sprintf("[kết quả %s]\n%s", m.Name, m.Content)))
		}
	}
	return out
}

func encodeLangChainTools(defs []models.ActionSchema) ([]llms.Tool, error) {
	out := make([]llms.Tool, 0, len(defs))
	for _, def := range defs {
		var params map[string]any
		if len(def.Parameters) > 0 {
			if err := json.Unmarshal(def.Parameters, &params); err != nil {
				return nil, fmt.Errorf("schema of %s: %w", def.Name, err)
			}
		}
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  params,
			},
		})
	}
	return out, nil
}

func usageFrom(info map[string]any) *Usage {
	in, okIn := intFrom(info, "PromptTokens", "input_tokens")
	outTok, okOut := intFrom(info, "CompletionTokens", "output_tokens")
	if !okIn && !okOut {
		return nil
	}
	return &Usage{InputTokens: in, OutputTokens: outTok}
}

func intFrom(info map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v, true
		case int32:
			return int(v), true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		}
	}
	return 0, false
}
