package orchestration

import (
	"github.com/fokus-assistant/fokus-core/core/countdown"
	"github.com/fokus-assistant/fokus-core/core/llms"
)

// Canonical tool names. The timer channel additionally accepts the legacy
// stop and reset names kept for older prompt material.
const (
	ToolTimerStart    = "timer_start"
	ToolTimerPause    = "timer_pause"
	ToolTimerContinue = "timer_continue"
	ToolTimerAbort    = "timer_abort"
	ToolTimerStop     = "timer_stop"
	ToolTimerReset    = "timer_reset"

	ToolPomodoroStart    = "start_pomodoro_session"
	ToolPomodoroPause    = "pause_pomodoro_session"
	ToolPomodoroContinue = "continue_pomodoro_session"
	ToolPomodoroStop     = "stop_pomodoro_session"
	ToolPomodoroReset    = "reset_pomodoro_session"

	ToolShowUpcomingEvents = "show_upcoming_events"
	ToolAddCalendarEvent   = "add_calendar_event"
)

const (
	channelPomodoro = "pomodoro"
	channelTimer    = "timer"
	channelCalendar = "calendar"
)

type resolvedTool struct {
	Channel string
	Action  countdown.Action
}

var timerActions = map[string]countdown.Action{
	ToolTimerStart:    countdown.ActionStart,
	ToolTimerPause:    countdown.ActionPause,
	ToolTimerContinue: countdown.ActionContinue,
	ToolTimerAbort:    countdown.ActionAbort,
	ToolTimerStop:     countdown.ActionAbort,
	ToolTimerReset:    countdown.ActionRestart,
}

var pomodoroActions = map[string]countdown.Action{
	ToolPomodoroStart:    countdown.ActionStart,
	ToolPomodoroPause:    countdown.ActionPause,
	ToolPomodoroContinue: countdown.ActionContinue,
	ToolPomodoroStop:     countdown.ActionAbort,
	ToolPomodoroReset:    countdown.ActionRestart,
}

// ResolveToolName maps a requested tool name onto a channel and a countdown
// action. While the pomodoro channel is active it owns the generic timer
// names too, so "pause" spoken during a focus session lands on the session
// and not on a cold side timer.
func ResolveToolName(name string, pomodoroActive bool) (resolvedTool, bool) {
	if action, ok := pomodoroActions[name]; ok {
		return resolvedTool{Channel: channelPomodoro, Action: action}, true
	}
	if action, ok := timerActions[name]; ok {
		if pomodoroActive {
			return resolvedTool{Channel: channelPomodoro, Action: action}, true
		}
		return resolvedTool{Channel: channelTimer, Action: action}, true
	}
	if name == ToolShowUpcomingEvents || name == ToolAddCalendarEvent {
		return resolvedTool{Channel: channelCalendar}, true
	}
	return resolvedTool{}, false
}

func toolCatalog() []llms.Tool {
	durationParameter := llms.ParameterBase{
		Type:        "string",
		Description: "Countdown length. A bare number means minutes; suffixes s, m and h are accepted, for example \"90s\" or \"1h\".",
	}
	return []llms.Tool{
		llms.NewTool(ToolPomodoroStart, "Start a focus session.", map[string]llms.ParameterBase{
			"session_name": {Type: "string", Description: "Short name for what the user wants to focus on."},
			"duration":     durationParameter,
		}),
		llms.NewTool(ToolPomodoroPause, "Pause the running focus session.", nil),
		llms.NewTool(ToolPomodoroContinue, "Resume the paused focus session.", nil),
		llms.NewTool(ToolPomodoroStop, "Abort the current focus session.", nil),
		llms.NewTool(ToolPomodoroReset, "Restart the focus session from the top with its previous settings.", nil),
		llms.NewTool(ToolTimerStart, "Start a plain countdown timer.", map[string]llms.ParameterBase{
			"duration": durationParameter,
		}),
		llms.NewTool(ToolTimerPause, "Pause the running timer.", nil),
		llms.NewTool(ToolTimerContinue, "Resume the paused timer.", nil),
		llms.NewTool(ToolTimerAbort, "Abort the current timer.", nil),
		llms.NewTool(ToolShowUpcomingEvents, "Look up the user's upcoming calendar events.", nil),
		llms.NewTool(ToolAddCalendarEvent, "Add an event to the user's calendar.", map[string]llms.ParameterBase{
			"description": {Type: "string", Description: "Free-form description of the event, including when it happens."},
		}),
	}
}
