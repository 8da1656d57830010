package agent

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/codequery-mcp/internal/tools"
	"github.com/dshills/codequery-mcp/pkg/types"
)

// Action kinds form a closed variant: the model either calls one of the two
// tools or produces a final answer. Anything else is a parse error.
const (
	ActionSearch          = tools.NameSearch
	ActionListFileContent = tools.NameListFileContent
	ActionFinal           = "final"
)

// Action is the model's decision for one round.
type Action struct {
	Kind      string
	ToolInput json.RawMessage
	Final     json.RawMessage
}

// actionEnvelope is the wire form of the model's per-round response.
type actionEnvelope struct {
	Action    string          `json:"action"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
	Final     json.RawMessage `json:"final,omitempty"`
}

// ParseAction decodes the model's response into an Action. Tool actions
// require a tool_input object; a final action requires a final object.
func ParseAction(raw json.RawMessage) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Action{}, fmt.Errorf("response is not a JSON action object: %w", err)
	}

	switch env.Action {
	case ActionSearch, ActionListFileContent:
		if len(env.ToolInput) == 0 {
			return Action{}, fmt.Errorf("action %q requires tool_input", env.Action)
		}
		return Action{Kind: env.Action, ToolInput: env.ToolInput}, nil
	case ActionFinal:
		if len(env.Final) == 0 {
			return Action{}, fmt.Errorf("action %q requires a final object", env.Action)
		}
		return Action{Kind: ActionFinal, Final: env.Final}, nil
	default:
		return Action{}, fmt.Errorf("unknown action %q", env.Action)
	}
}

// parseFinalAnswer decodes and validates a candidate final answer. The
// forced-summary round asks for the bare answer object, but a model that
// keeps the action envelope from earlier rounds is tolerated.
func parseFinalAnswer(raw json.RawMessage) (*types.FinalAnswer, error) {
	candidate := raw
	var env actionEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Action == ActionFinal && len(env.Final) > 0 {
		candidate = env.Final
	}

	var fa types.FinalAnswer
	if err := json.Unmarshal(candidate, &fa); err != nil {
		return nil, fmt.Errorf("%w: not a JSON answer object: %v", types.ErrSchemaViolation, err)
	}
	if err := fa.Validate(); err != nil {
		return nil, err
	}
	return &fa, nil
}
