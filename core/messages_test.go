package orchestration

import (
	"testing"

	"github.com/fokus-assistant/fokus-core/core/countdown"
)

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{
		0:    "00:00",
		59:   "00:59",
		60:   "01:00",
		1500: "25:00",
		3725: "62:05",
		-5:   "00:00",
	}
	for seconds, want := range cases {
		if got := FormatDuration(seconds); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", seconds, got, want)
		}
	}
}

func TestParseDurationSeconds(t *testing.T) {
	cases := []struct {
		raw     string
		seconds int
		ok      bool
	}{
		{"25", 25 * 60, true},
		{"90s", 90, true},
		{"10m", 600, true},
		{"1h", 3600, true},
		{" 5 m ", 300, true},
		{"", 0, false},
		{"banana", 0, false},
		{"-5", 0, false},
		{"0", 0, false},
	}
	for _, c := range cases {
		seconds, ok := parseDurationSeconds(c.raw)
		if ok != c.ok || seconds != c.seconds {
			t.Errorf("parseDurationSeconds(%q) = (%d, %v), want (%d, %v)",
				c.raw, seconds, ok, c.seconds, c.ok)
		}
	}
}

func TestActiveStatusMessage(t *testing.T) {
	running := countdown.Snapshot{Phase: countdown.PhaseRunning, Session: "Writing", RemainingSeconds: 90}
	paused := countdown.Snapshot{Phase: countdown.PhasePaused, RemainingSeconds: 30}
	idle := countdown.Snapshot{Phase: countdown.PhaseIdle, RemainingSeconds: 600}

	if got := activeStatusMessage(running, idle); got != `Focus session "Writing" running, 01:30 left.` {
		t.Errorf("unexpected running pomodoro status %q", got)
	}
	if got := activeStatusMessage(paused, idle); got != "Focus session paused, 00:30 left." {
		t.Errorf("unexpected unnamed paused pomodoro status %q", got)
	}
	if got := activeStatusMessage(idle, paused); got != "Timer paused, 00:30 left." {
		t.Errorf("unexpected paused timer status %q", got)
	}
	if got := activeStatusMessage(running, paused); got != `Focus session "Writing" running, 01:30 left.` {
		t.Errorf("expected the focus session to win over the timer, got %q", got)
	}
	if got := activeStatusMessage(idle, idle); got != "Listening for the wake word." {
		t.Errorf("unexpected quiescent status %q", got)
	}
}
