package orchestration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fokus-assistant/fokus-core/core/countdown"
	"github.com/fokus-assistant/fokus-core/core/llms"
	"github.com/fokus-assistant/fokus-core/core/protocol"
)

type recordingBus struct {
	mu     sync.Mutex
	events []protocol.Event
}

func (b *recordingBus) Publish(event protocol.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) byType(eventType protocol.EventType) []protocol.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []protocol.Event
	for _, event := range b.events {
		if event.EventType() == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type fakeOracle struct {
	upcoming []string
	eventErr error
	added    []string
}

func (o *fakeOracle) Environment(context.Context) (*llms.EnvironmentContext, error) {
	return &llms.EnvironmentContext{NowLocal: "Monday 09:00"}, nil
}

func (o *fakeOracle) UpcomingEvents(context.Context) ([]string, error) {
	return o.upcoming, o.eventErr
}

func (o *fakeOracle) AddEvent(_ context.Context, description string) error {
	if o.eventErr != nil {
		return o.eventErr
	}
	o.added = append(o.added, description)
	return nil
}

type dispatchFixture struct {
	dispatcher *Dispatcher
	pomodoro   *countdown.Timer
	timer      *countdown.Timer
	bus        *recordingBus
	oracle     *fakeOracle
}

func newDispatchFixture(withOracle bool) *dispatchFixture {
	f := &dispatchFixture{
		pomodoro: countdown.NewTimer(channelPomodoro,
			countdown.WithDefaultDuration(countdown.DefaultPomodoroSeconds)),
		timer: countdown.NewTimer(channelTimer,
			countdown.WithDefaultDuration(countdown.DefaultTimerSeconds)),
		bus:    &recordingBus{},
		oracle: &fakeOracle{},
	}

	oracleFacade := &oracle{}
	if withOracle {
		oracleFacade.set(f.oracle)
	}
	publisher := &uiPublisher{}
	publisher.set(f.bus)

	f.dispatcher = newDispatcher(
		newTimerChannel(channelPomodoro, f.pomodoro, publisher),
		newTimerChannel(channelTimer, f.timer, publisher),
		oracleFacade)
	return f
}

func (f *dispatchFixture) dispatch(name string, arguments map[string]any) string {
	return f.dispatcher.Dispatch(context.Background(), llms.ToolCall{
		ID: "call-1", Name: name, Arguments: arguments,
	})
}

func TestDispatchStartsPomodoroWithArguments(t *testing.T) {
	f := newDispatchFixture(false)

	text := f.dispatch(ToolPomodoroStart, map[string]any{
		"session_name": "Writing",
		"duration":     "25",
	})

	snapshot := f.pomodoro.Snapshot()
	if snapshot.Phase != countdown.PhaseRunning {
		t.Fatalf("expected pomodoro running, got %q", snapshot.Phase)
	}
	if snapshot.Session != "Writing" || snapshot.DurationSeconds != 1500 {
		t.Fatalf("unexpected pomodoro snapshot %+v", snapshot)
	}
	if !strings.Contains(text, "25:00") {
		t.Fatalf("expected the reply to mention the duration, got %q", text)
	}
	if updates := f.bus.byType(protocol.EventPomodoro); len(updates) != 1 {
		t.Fatalf("expected one published pomodoro update, got %d", len(updates))
	}
}

func TestDispatchStartSupersedesOtherChannel(t *testing.T) {
	f := newDispatchFixture(false)
	f.dispatch(ToolTimerStart, map[string]any{"duration": "10"})

	f.dispatch(ToolPomodoroStart, map[string]any{"session_name": "Writing"})

	if phase := f.timer.Snapshot().Phase; phase != countdown.PhaseAborted {
		t.Fatalf("expected the timer to be aborted by the pomodoro start, got %q", phase)
	}
	if phase := f.pomodoro.Snapshot().Phase; phase != countdown.PhaseRunning {
		t.Fatalf("expected the pomodoro to be running, got %q", phase)
	}

	updates := f.bus.byType(protocol.EventTimer)
	if len(updates) != 2 {
		t.Fatalf("expected start and superseded updates for the timer, got %d", len(updates))
	}
	superseded, ok := updates[1].(protocol.TimerUpdate)
	if !ok || superseded.Reason != reasonSuperseded {
		t.Fatalf("expected the second timer update to carry reason %q, got %+v", reasonSuperseded, updates[1])
	}
}

func TestDispatchGenericStopHitsPomodoroWhileActive(t *testing.T) {
	f := newDispatchFixture(false)
	f.dispatch(ToolPomodoroStart, map[string]any{"session_name": "Writing"})

	f.dispatch(ToolTimerStop, nil)

	if phase := f.pomodoro.Snapshot().Phase; phase != countdown.PhaseAborted {
		t.Fatalf("expected timer_stop to abort the active pomodoro, got %q", phase)
	}
	if phase := f.timer.Snapshot().Phase; phase != countdown.PhaseIdle {
		t.Fatalf("expected the anonymous timer untouched, got %q", phase)
	}
}

func TestDispatchLegacyResetRestartsTimer(t *testing.T) {
	f := newDispatchFixture(false)
	f.dispatch(ToolTimerStart, map[string]any{"duration": "90s"})

	text := f.dispatch(ToolTimerReset, nil)

	snapshot := f.timer.Snapshot()
	if snapshot.Phase != countdown.PhaseRunning || snapshot.RemainingSeconds != 90 {
		t.Fatalf("expected timer_reset to restart at the full 90 seconds, got %+v", snapshot)
	}
	if !strings.Contains(text, "01:30") {
		t.Fatalf("expected the reply to mention the restarted duration, got %q", text)
	}
}

func TestDispatchRejectionIsPublishedNotRaised(t *testing.T) {
	f := newDispatchFixture(false)

	text := f.dispatch(ToolTimerPause, nil)
	if text == "" {
		t.Fatal("expected a spoken explanation for the rejected pause")
	}

	updates := f.bus.byType(protocol.EventTimer)
	if len(updates) != 1 {
		t.Fatalf("expected one published timer update, got %d", len(updates))
	}
	update := updates[0].(protocol.TimerUpdate)
	if update.Accepted == nil || *update.Accepted {
		t.Fatalf("expected a rejected update, got %+v", update)
	}
	if update.Reason != countdown.ReasonNotRunning {
		t.Fatalf("expected reason %q, got %q", countdown.ReasonNotRunning, update.Reason)
	}
}

func TestDispatchPomodoroActionBlockedByActiveTimer(t *testing.T) {
	f := newDispatchFixture(false)
	f.dispatch(ToolTimerStart, map[string]any{"duration": "10"})

	text := f.dispatch(ToolPomodoroPause, nil)
	if !strings.Contains(text, "timer is already running") {
		t.Fatalf("expected the reply to point at the running timer, got %q", text)
	}
	if phase := f.timer.Snapshot().Phase; phase != countdown.PhaseRunning {
		t.Fatalf("expected the timer untouched, got %q", phase)
	}
	if phase := f.pomodoro.Snapshot().Phase; phase != countdown.PhaseIdle {
		t.Fatalf("expected the pomodoro machine untouched, got %q", phase)
	}

	updates := f.bus.byType(protocol.EventPomodoro)
	if len(updates) != 1 {
		t.Fatalf("expected one published pomodoro update, got %d", len(updates))
	}
	update := updates[0].(protocol.PomodoroUpdate)
	if update.Accepted == nil || *update.Accepted || update.Reason != reasonTimerActive {
		t.Fatalf("expected a rejection with reason %q, got %+v", reasonTimerActive, update)
	}
}

func TestDispatchUnknownToolChangesNothing(t *testing.T) {
	f := newDispatchFixture(false)

	if text := f.dispatch("make_coffee", nil); text != "" {
		t.Fatalf("expected no reply for an unknown tool, got %q", text)
	}
	if len(f.bus.byType(protocol.EventTimer))+len(f.bus.byType(protocol.EventPomodoro)) != 0 {
		t.Fatal("expected no published updates for an unknown tool")
	}
}

func TestDispatchMalformedDurationChangesNothing(t *testing.T) {
	f := newDispatchFixture(false)

	if text := f.dispatch(ToolTimerStart, map[string]any{"duration": "banana"}); text != "" {
		t.Fatalf("expected no reply for a malformed duration, got %q", text)
	}
	if phase := f.timer.Snapshot().Phase; phase != countdown.PhaseIdle {
		t.Fatalf("expected the timer untouched, got %q", phase)
	}
}

func TestDispatchCalendarLookup(t *testing.T) {
	f := newDispatchFixture(true)
	f.oracle.upcoming = []string{"standup at 10:00", "review at 14:00"}

	text := f.dispatch(ToolShowUpcomingEvents, nil)
	if !strings.Contains(text, "standup at 10:00") || !strings.Contains(text, "review at 14:00") {
		t.Fatalf("expected the reply to list upcoming events, got %q", text)
	}

	f.oracle.upcoming = nil
	if text := f.dispatch(ToolShowUpcomingEvents, nil); !strings.Contains(text, "nothing coming up") {
		t.Fatalf("expected an empty-calendar reply, got %q", text)
	}

	f.oracle.eventErr = errors.New("backend gone")
	if text := f.dispatch(ToolShowUpcomingEvents, nil); !strings.Contains(text, "could not reach") {
		t.Fatalf("expected a lookup failure reply, got %q", text)
	}
}

func TestDispatchCalendarInsert(t *testing.T) {
	f := newDispatchFixture(true)

	text := f.dispatch(ToolAddCalendarEvent, map[string]any{"description": "dentist friday 9am"})
	if !strings.Contains(text, "Added") {
		t.Fatalf("expected a confirmation, got %q", text)
	}
	if len(f.oracle.added) != 1 || f.oracle.added[0] != "dentist friday 9am" {
		t.Fatalf("expected the event forwarded to the oracle, got %v", f.oracle.added)
	}

	if text := f.dispatch(ToolAddCalendarEvent, nil); text != "" {
		t.Fatalf("expected no reply without a description, got %q", text)
	}
}

func TestDispatchCalendarWithoutOracle(t *testing.T) {
	f := newDispatchFixture(false)

	if text := f.dispatch(ToolShowUpcomingEvents, nil); !strings.Contains(text, "not connected") {
		t.Fatalf("expected a not-connected reply, got %q", text)
	}
}
