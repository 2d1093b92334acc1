package orchestration

import (
	"context"

	"github.com/fokus-assistant/fokus-core/core/llms"
)

// assistant is the LLM facade used to handle optional client wiring.
type assistant struct {
	client Assistant
}

func (a *assistant) set(client Assistant) {
	if a != nil {
		a.client = client
	}
}

func (a *assistant) isConfigured() bool {
	return a != nil && a.client != nil
}

func (a *assistant) Infer(ctx context.Context, transcript string, opts ...llms.PromptOption) (*llms.Response, error) {
	if !a.isConfigured() {
		return nil, nil
	}
	return a.client.Infer(ctx, transcript, opts...)
}
