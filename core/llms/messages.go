package llms

import "errors"

// ErrMalformedReply marks model output that did not match the reply schema.
// Callers recover by falling back to a canned reply with no tool call.
var ErrMalformedReply = errors.New("malformed assistant reply")

// ToolCall is one normalized action request produced by the model. It is
// consumed exactly once by the runtime dispatcher.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Response is the model's answer to one transcribed utterance. ToolCall is
// nil when the model decided no action is needed.
type Response struct {
	AssistantText string
	ToolCall      *ToolCall
}

type ParameterBase struct {
	Type        string
	Description string
}

// Tool declares one action the model may request. Execution lives in the
// runtime dispatcher; the declaration only shapes the prompt.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]ParameterBase
}

func NewTool(name, description string, parameters map[string]ParameterBase) Tool {
	return Tool{Name: name, Description: description, Parameters: parameters}
}

// EnvironmentContext is the best-effort ambient payload collected from the
// oracle before each inference. Empty fields are simply omitted from the
// prompt.
type EnvironmentContext struct {
	NowLocal       string
	LightLevelLux  *float64
	AirQuality     string
	UpcomingEvents []string
}
