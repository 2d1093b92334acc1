package orchestration

import (
	"context"

	"github.com/fokus-assistant/fokus-core/core/events"
)

// captureSource is the capture facade used to handle optional client wiring.
// Without a source the engine still runs; it just never hears anything.
type captureSource struct {
	client CaptureSource
}

func (c *captureSource) set(client CaptureSource) {
	if c != nil {
		c.client = client
	}
}

func (c *captureSource) isConfigured() bool {
	return c != nil && c.client != nil
}

func (c *captureSource) Start(ctx context.Context) error {
	if !c.isConfigured() {
		logger.Warn("no capture source configured, running without audio input")
		return nil
	}
	return c.client.Start(ctx)
}

// Events returns the capture event stream, or a nil channel that blocks
// forever when no source is wired.
func (c *captureSource) Events() <-chan events.Event {
	if !c.isConfigured() {
		return nil
	}
	return c.client.Events()
}

func (c *captureSource) Close() {
	if c.isConfigured() {
		c.client.Close()
	}
}
