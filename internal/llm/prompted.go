package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

const promptedToolFormat = `TOOLS
When you need a tool, reply with ONLY a JSON object in this exact format:
{"tool_calls": [{"name": "TOOL_NAME", "arguments": {"param": "value"}}]}
Tool results come back in a message starting with [kết quả TOOL_NAME].
When no tool is needed, reply to the customer in plain text without JSON.

Available tools:
%s`

type promptedCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type promptedReply struct {
	ToolCalls []promptedCall `json:"tool_calls"`
	promptedCall
}

func promptedToolInstructions(defs []models.ActionSchema) string {
	var b strings.Builder
	for _, d := range defs {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, strings.ReplaceAll(d.Description, "\n", " "))
		if len(d.Parameters) > 0 {
			fmt.Fprintf(&b, "  parameters (JSON schema): %s\n", compactJSON(d.Parameters))
		}
	}
	return fmt.Sprintf(promptedToolFormat, b.String())
}

func renderPromptedCalls(calls []models.ToolCall) string {
	out := make([]promptedCall, 0, len(calls))
	for _, c := range calls {
		args := c.Arguments
		if len(args) == 0 || !json.Valid(args) {
			args = json.RawMessage("{}")
		}
		out = append(out, promptedCall{Name: c.Name, Arguments: args})
	}
	data, err := json.Marshal(map[string]any{"tool_calls": out})
	if err != nil {
		return ""
	}
	return string(data)
}

// parsePromptedReply looks for a tool call object in free text. It accepts
// {"tool_calls": [...]} and a bare {"name": ..., "arguments": ...}. The text
// around the object is returned as the reply content.
func parsePromptedReply(content string) (string, []models.ToolCall) {
	start, end, ok := extractJSON(content)
	if !ok {
		return content, nil
	}

	var reply promptedReply
	if err := json.Unmarshal([]byte(content[start:end]), &reply); err != nil {
		return content, nil
	}
	calls := reply.ToolCalls
	if len(calls) == 0 && reply.Name != "" {
		calls = []promptedCall{reply.promptedCall}
	}

	out := make([]models.ToolCall, 0, len(calls))
	for _, c := range calls {
		if c.Name == "" {
			continue
		}
		args := c.Arguments
		if len(args) == 0 || string(args) == "null" {
			args = json.RawMessage("{}")
		}
		out = append(out, models.ToolCall{Name: c.Name, Arguments: args})
	}
	if len(out) == 0 {
		return content, nil
	}

	text := strings.TrimSpace(content[:start] + content[end:])
	text = strings.TrimSpace(strings.NewReplacer("```json", "", "```", "").Replace(text))
	return text, out
}

// extractJSON returns the span from the first '{' to the last '}'.
func extractJSON(content string) (start, end int, ok bool) {
	start = strings.Index(content, "{")
	if start == -1 {
		return 0, 0, false
	}
	last := strings.LastIndex(content, "}")
	if last == -1 || last <= start {
		return 0, 0, false
	}
	return start, last + 1, true
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
