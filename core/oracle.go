package orchestration

import (
	"context"

	"github.com/fokus-assistant/fokus-core/core/llms"
)

// oracle is the ambient context facade used to handle optional client wiring.
type oracle struct {
	client Oracle
}

func (o *oracle) set(client Oracle) {
	if o != nil {
		o.client = client
	}
}

func (o *oracle) isConfigured() bool {
	return o != nil && o.client != nil
}

func (o *oracle) Environment(ctx context.Context) *llms.EnvironmentContext {
	if !o.isConfigured() {
		return nil
	}
	environment, err := o.client.Environment(ctx)
	if err != nil {
		logger.Warn("failed to collect environment context", "error", err)
		return nil
	}
	return environment
}

func (o *oracle) UpcomingEvents(ctx context.Context) ([]string, error) {
	if !o.isConfigured() {
		return nil, nil
	}
	return o.client.UpcomingEvents(ctx)
}

func (o *oracle) AddEvent(ctx context.Context, description string) error {
	if !o.isConfigured() {
		return nil
	}
	return o.client.AddEvent(ctx, description)
}
