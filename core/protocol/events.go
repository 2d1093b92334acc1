// Package protocol defines the outbound wire events served over the
// persistent /ws connection. Each event type has one concrete payload shape;
// payloads are validated at construction, never threaded through the core as
// open maps.
package protocol

import (
	"time"

	"github.com/fokus-assistant/fokus-core/core/countdown"
	"github.com/fokus-assistant/fokus-core/internal/utils"
)

type EventType string

const (
	EventHello          EventType = "hello"
	EventStateUpdate    EventType = "state_update"
	EventPomodoro       EventType = "pomodoro"
	EventTimer          EventType = "timer"
	EventTranscript     EventType = "transcript"
	EventAssistantReply EventType = "assistant_reply"
	EventError          EventType = "error"
)

type State string

const (
	StateIdle         State = "idle"
	StateListening    State = "listening"
	StateTranscribing State = "transcribing"
	StateThinking     State = "thinking"
	StateReplying     State = "replying"
	StateError        State = "error"
)

// StickyOrder fixes the replay order toward reconnecting observers. The
// state update goes last so a fresh client settles on the current state.
var StickyOrder = []EventType{
	EventPomodoro,
	EventTimer,
	EventTranscript,
	EventAssistantReply,
	EventError,
	EventStateUpdate,
}

type Event interface {
	EventType() EventType
	At() time.Time
}

// Envelope carries the fields shared by every wire event.
type Envelope struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func (e Envelope) EventType() EventType { return e.Type }
func (e Envelope) At() time.Time        { return e.Timestamp }

func newEnvelope(eventType EventType) Envelope {
	return Envelope{Type: eventType, Timestamp: time.Now().UTC()}
}

type StateUpdate struct {
	Envelope
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
}

func NewStateUpdate(state State, message string) StateUpdate {
	return StateUpdate{Envelope: newEnvelope(EventStateUpdate), State: state, Message: message}
}

// NewHello is the state update variant sent once per fresh connection.
func NewHello(state State) StateUpdate {
	return StateUpdate{Envelope: newEnvelope(EventHello), State: state}
}

// PomodoroUpdate reports the named-session channel. Action and reason label
// why the snapshot was published (tick, sync, rejection, completion).
type PomodoroUpdate struct {
	Envelope
	Action           countdown.Action `json:"action"`
	Phase            countdown.Phase  `json:"phase"`
	Session          string           `json:"session"`
	DurationSeconds  int              `json:"duration_seconds"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Accepted         *bool            `json:"accepted,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	Text             string           `json:"text,omitempty"`
}

func NewPomodoroUpdate(snapshot countdown.Snapshot, action countdown.Action, opts ...UpdateOption) PomodoroUpdate {
	options := updateOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return PomodoroUpdate{
		Envelope:         newEnvelope(EventPomodoro),
		Action:           action,
		Phase:            snapshot.Phase,
		Session:          snapshot.Session,
		DurationSeconds:  snapshot.DurationSeconds,
		RemainingSeconds: snapshot.RemainingSeconds,
		Accepted:         options.accepted,
		Reason:           options.reason,
		Text:             options.text,
	}
}

// TimerUpdate reports the anonymous timer channel.
type TimerUpdate struct {
	Envelope
	Action           countdown.Action `json:"action"`
	Phase            countdown.Phase  `json:"phase"`
	DurationSeconds  int              `json:"duration_seconds"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Accepted         *bool            `json:"accepted,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	Text             string           `json:"text,omitempty"`
}

func NewTimerUpdate(snapshot countdown.Snapshot, action countdown.Action, opts ...UpdateOption) TimerUpdate {
	options := updateOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return TimerUpdate{
		Envelope:         newEnvelope(EventTimer),
		Action:           action,
		Phase:            snapshot.Phase,
		DurationSeconds:  snapshot.DurationSeconds,
		RemainingSeconds: snapshot.RemainingSeconds,
		Accepted:         options.accepted,
		Reason:           options.reason,
		Text:             options.text,
	}
}

type updateOptions struct {
	accepted *bool
	reason   string
	text     string
}

type UpdateOption func(*updateOptions)

func WithAccepted(accepted bool) UpdateOption {
	return func(o *updateOptions) {
		o.accepted = utils.Ptr(accepted)
	}
}

func WithReason(reason string) UpdateOption {
	return func(o *updateOptions) {
		o.reason = reason
	}
}

func WithText(text string) UpdateOption {
	return func(o *updateOptions) {
		o.text = text
	}
}

type Transcript struct {
	Envelope
	Text string `json:"text"`
}

func NewTranscript(text string) Transcript {
	return Transcript{Envelope: newEnvelope(EventTranscript), Text: text}
}

type AssistantReply struct {
	Envelope
	Text string `json:"text"`
}

func NewAssistantReply(text string) AssistantReply {
	return AssistantReply{Envelope: newEnvelope(EventAssistantReply), Text: text}
}

type ErrorEvent struct {
	Envelope
	Message string `json:"message"`
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Envelope: newEnvelope(EventError), Message: message}
}
