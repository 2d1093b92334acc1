package orchestration

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fokus-assistant/fokus-core/core/countdown"
)

const defaultInstructions = "You are Fokus, a brief and friendly voice assistant for focus sessions " +
	"and timers. Answer in one or two spoken sentences. When the user asks to manage a session, " +
	"a timer or their calendar, request the matching tool."

const malformedReplyFallback = "Sorry, I did not catch that. Could you say it again?"

// FormatDuration renders whole seconds as MM:SS, the way countdowns are
// spoken back and displayed.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// parseDurationSeconds reads a spoken-style duration argument. A bare number
// means minutes; s, m and h suffixes select the unit.
func parseDurationSeconds(raw string) (int, bool) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return 0, false
	}

	unit := 60
	switch {
	case strings.HasSuffix(raw, "s"):
		unit = 1
		raw = strings.TrimSuffix(raw, "s")
	case strings.HasSuffix(raw, "m"):
		raw = strings.TrimSuffix(raw, "m")
	case strings.HasSuffix(raw, "h"):
		unit = 3600
		raw = strings.TrimSuffix(raw, "h")
	}

	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return 0, false
	}
	return value * unit, true
}

func resultText(channel string, result countdown.Result) string {
	subject := "The timer"
	if channel == channelPomodoro {
		subject = "The focus session"
		if result.Snapshot.Session != "" {
			subject = fmt.Sprintf("The %q session", result.Snapshot.Session)
		}
	}

	if !result.Accepted {
		switch result.Reason {
		case reasonTimerActive:
			return "A timer is already running. Stop it first."
		case reasonPomodoroActive:
			return "A focus session is already running. Stop it first."
		case countdown.ReasonAlreadyActive:
			return fmt.Sprintf("%s is already going, with %s left.", subject, FormatDuration(result.Snapshot.RemainingSeconds))
		case countdown.ReasonNotRunning:
			return fmt.Sprintf("%s is not running right now.", subject)
		case countdown.ReasonNotPaused:
			return fmt.Sprintf("%s is not paused right now.", subject)
		case countdown.ReasonNotActive:
			return fmt.Sprintf("%s is not active right now.", subject)
		default:
			return fmt.Sprintf("%s stays as it is.", subject)
		}
	}

	switch result.Action {
	case countdown.ActionStart:
		return fmt.Sprintf("%s is running for %s.", subject, FormatDuration(result.Snapshot.DurationSeconds))
	case countdown.ActionRestart:
		return fmt.Sprintf("%s starts over at %s.", subject, FormatDuration(result.Snapshot.DurationSeconds))
	case countdown.ActionPause:
		return fmt.Sprintf("%s is paused with %s left.", subject, FormatDuration(result.Snapshot.RemainingSeconds))
	case countdown.ActionContinue:
		return fmt.Sprintf("%s continues, %s to go.", subject, FormatDuration(result.Snapshot.RemainingSeconds))
	case countdown.ActionAbort:
		return fmt.Sprintf("%s is stopped.", subject)
	case countdown.ActionReset:
		return fmt.Sprintf("%s is cleared.", subject)
	}
	return ""
}

// activeStatusMessage is the status line carried on idle state updates: what
// the runtime keeps an eye on while it listens for the wake word. An active
// focus session wins over an active timer.
func activeStatusMessage(pomodoro, timer countdown.Snapshot) string {
	if pomodoro.IsActive() {
		subject := "Focus session"
		if pomodoro.Session != "" {
			subject = fmt.Sprintf("Focus session %q", pomodoro.Session)
		}
		return channelStatusLine(subject, pomodoro)
	}
	if timer.IsActive() {
		return channelStatusLine("Timer", timer)
	}
	return "Listening for the wake word."
}

func channelStatusLine(subject string, snapshot countdown.Snapshot) string {
	state := "running"
	if snapshot.Phase == countdown.PhasePaused {
		state = "paused"
	}
	return fmt.Sprintf("%s %s, %s left.", subject, state, FormatDuration(snapshot.RemainingSeconds))
}

func completionText(channel string, snapshot countdown.Snapshot) string {
	if channel == channelPomodoro {
		if snapshot.Session != "" {
			return fmt.Sprintf("Your %q session is complete. Well done, time for a break.", snapshot.Session)
		}
		return "Your focus session is complete. Well done, time for a break."
	}
	return "Your timer is up."
}
