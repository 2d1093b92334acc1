package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fokus-assistant/fokus-core/core/countdown"
	"github.com/fokus-assistant/fokus-core/core/protocol"
)

func drain(t *testing.T, events <-chan []byte, count int) []map[string]any {
	t.Helper()
	var decoded []map[string]any
	for i := 0; i < count; i++ {
		select {
		case payload := <-events:
			var event map[string]any
			if err := json.Unmarshal(payload, &event); err != nil {
				t.Fatalf("failed to decode event payload: %v", err)
			}
			decoded = append(decoded, event)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, count)
		}
	}
	return decoded
}

func TestSubscribeReplaysOneStickyEventPerType(t *testing.T) {
	bus := NewBus()

	snapshot := countdown.Snapshot{Phase: countdown.PhaseRunning, Session: "Writing",
		DurationSeconds: 1500, RemainingSeconds: 900}
	bus.Publish(protocol.NewPomodoroUpdate(snapshot, countdown.ActionTick))
	bus.Publish(protocol.NewTimerUpdate(countdown.Snapshot{Phase: countdown.PhaseIdle,
		DurationSeconds: 600, RemainingSeconds: 600}, countdown.ActionSync))
	for i := 0; i < 10; i++ {
		bus.Publish(protocol.NewTranscript("transcript number ten wins"))
	}
	bus.Publish(protocol.NewStateUpdate(protocol.StateIdle, ""))

	id, events := bus.Subscribe()
	defer bus.Unsubscribe(id)

	replayed := drain(t, events, 4)
	types := make([]string, 0, len(replayed))
	for _, event := range replayed {
		types = append(types, event["type"].(string))
	}

	want := []string{"pomodoro", "timer", "transcript", "state_update"}
	for i, wantType := range want {
		if types[i] != wantType {
			t.Fatalf("expected replay order %v, got %v", want, types)
		}
	}

	if remaining := replayed[0]["remaining_seconds"].(float64); remaining != 900 {
		t.Fatalf("expected the sticky pomodoro snapshot, got remaining %v", remaining)
	}
	if text := replayed[2]["text"].(string); text != "transcript number ten wins" {
		t.Fatalf("expected only the latest transcript replayed, got %q", text)
	}

	select {
	case payload := <-events:
		t.Fatalf("expected no further replayed events, got %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishReachesLiveSubscribers(t *testing.T) {
	bus := NewBus()

	id, events := bus.Subscribe()
	defer bus.Unsubscribe(id)

	bus.Publish(protocol.NewTranscript("hello"))
	live := drain(t, events, 1)
	if live[0]["text"].(string) != "hello" {
		t.Fatalf("expected the live transcript, got %v", live[0])
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	bus := NewBus()

	id, _ := bus.Subscribe()
	defer bus.Unsubscribe(id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBufferSize*4; i++ {
			bus.Publish(protocol.NewTranscript("flood"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a subscriber that never reads")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()

	id, events := bus.Subscribe()
	if bus.SubscriberCount() != 1 {
		t.Fatalf("expected one subscriber, got %d", bus.SubscriberCount())
	}

	bus.Unsubscribe(id)
	if bus.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers after unsubscribe, got %d", bus.SubscriberCount())
	}

	if _, open := <-events; open {
		t.Fatal("expected the subscriber channel to be closed")
	}

	// A second unsubscribe for the same id is a no-op.
	bus.Unsubscribe(id)
}
