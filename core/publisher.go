package orchestration

import (
	"github.com/fokus-assistant/fokus-core/core/countdown"
	"github.com/fokus-assistant/fokus-core/core/protocol"
)

// uiPublisher is the event bus facade used to handle optional client wiring.
// Publishing is fire-and-forget; a missing bus silently drops events.
type uiPublisher struct {
	client EventPublisher
}

func (p *uiPublisher) set(client EventPublisher) {
	if p != nil {
		p.client = client
	}
}

func (p *uiPublisher) isConfigured() bool {
	return p != nil && p.client != nil
}

func (p *uiPublisher) publish(event protocol.Event) {
	if !p.isConfigured() {
		return
	}
	p.client.Publish(event)
}

func (p *uiPublisher) publishState(state protocol.State, message string) {
	p.publish(protocol.NewStateUpdate(state, message))
}

func (p *uiPublisher) publishTranscript(text string) {
	p.publish(protocol.NewTranscript(text))
}

func (p *uiPublisher) publishReply(text string) {
	p.publish(protocol.NewAssistantReply(text))
}

func (p *uiPublisher) publishError(message string) {
	p.publish(protocol.NewErrorEvent(message))
}

func (p *uiPublisher) publishResult(channel string, result countdown.Result, text string) {
	options := []protocol.UpdateOption{
		protocol.WithAccepted(result.Accepted),
		protocol.WithReason(result.Reason),
		protocol.WithText(text),
	}
	switch channel {
	case channelPomodoro:
		p.publish(protocol.NewPomodoroUpdate(result.Snapshot, result.Action, options...))
	case channelTimer:
		p.publish(protocol.NewTimerUpdate(result.Snapshot, result.Action, options...))
	}
}

// reasonStartup labels the snapshot sync published once when the engine
// comes up.
const reasonStartup = "startup"

// publishSync republishes the authoritative snapshot of a channel without
// any transition attached, so fresh observers always see a defined state.
func (p *uiPublisher) publishSync(channel string, snapshot countdown.Snapshot) {
	switch channel {
	case channelPomodoro:
		p.publish(protocol.NewPomodoroUpdate(snapshot, countdown.ActionSync, protocol.WithReason(reasonStartup)))
	case channelTimer:
		p.publish(protocol.NewTimerUpdate(snapshot, countdown.ActionSync, protocol.WithReason(reasonStartup)))
	}
}

func (p *uiPublisher) publishTick(channel string, tick countdown.Tick) {
	action := countdown.ActionTick
	if tick.Completed {
		action = countdown.ActionCompleted
	}
	switch channel {
	case channelPomodoro:
		p.publish(protocol.NewPomodoroUpdate(tick.Snapshot, action))
	case channelTimer:
		p.publish(protocol.NewTimerUpdate(tick.Snapshot, action))
	}
}
