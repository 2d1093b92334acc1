package orchestration

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fokus-assistant/fokus-core/core/countdown"
	"github.com/fokus-assistant/fokus-core/core/llms"
)

// reasonSuperseded marks the implicit abort of one channel caused by a start
// on the other. Only one countdown is the user's focus target at a time.
// reasonTimerActive and reasonPomodoroActive label refusals of non-start
// actions that would land on an idle channel while the other one is running.
const (
	reasonSuperseded     = "superseded"
	reasonTimerActive    = "timer_active"
	reasonPomodoroActive = "pomodoro_active"
)

// Dispatcher applies normalized tool calls to the two countdown channels and
// forwards calendar lookups to the oracle. Dispatch never errors toward the
// caller; unknown names and malformed arguments are logged and change
// nothing.
type Dispatcher struct {
	pomodoro *timerChannel
	timer    *timerChannel
	oracle   *oracle
}

func newDispatcher(pomodoro, timer *timerChannel, oracle *oracle) *Dispatcher {
	return &Dispatcher{pomodoro: pomodoro, timer: timer, oracle: oracle}
}

// Dispatch executes one tool call and returns spoken text describing the
// outcome, or empty when there is nothing worth saying.
func (d *Dispatcher) Dispatch(ctx context.Context, call llms.ToolCall) string {
	ctx, span := tracer.Start(ctx, "dispatch tool call")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", call.Name))

	resolved, ok := ResolveToolName(call.Name, d.pomodoro.snapshot().IsActive())
	if !ok {
		logger.Warn("unknown tool name, ignoring", "tool", call.Name)
		return ""
	}
	span.SetAttributes(attribute.String("tool.channel", resolved.Channel))

	if resolved.Channel == channelCalendar {
		return d.dispatchCalendar(ctx, call)
	}
	return d.dispatchCountdown(resolved, call)
}

func (d *Dispatcher) dispatchCountdown(resolved resolvedTool, call llms.ToolCall) string {
	target, other := d.timer, d.pomodoro
	if resolved.Channel == channelPomodoro {
		target, other = d.pomodoro, d.timer
	}

	var applyOptions []countdown.ApplyOption
	if resolved.Action == countdown.ActionStart || resolved.Action == countdown.ActionRestart {
		if session := stringArgument(call.Arguments, "session_name", "session"); session != "" {
			applyOptions = append(applyOptions, countdown.WithSession(session))
		}
		if raw := stringArgument(call.Arguments, "duration", "duration_seconds"); raw != "" {
			seconds, ok := parseDurationSeconds(raw)
			if !ok {
				logger.Warn("malformed duration argument, ignoring tool call",
					"tool", call.Name, "duration", raw)
				return ""
			}
			applyOptions = append(applyOptions, countdown.WithDuration(seconds))
		}

		if other.supersede() {
			logger.Info("aborted countdown superseded by start on the other channel",
				"channel", other.name)
		}
	} else if other.snapshot().IsActive() {
		// The other channel holds the user's attention; refuse without
		// touching the idle target machine.
		reason := reasonPomodoroActive
		if other.name == channelTimer {
			reason = reasonTimerActive
		}
		logger.Info("countdown action blocked by the other channel",
			"channel", resolved.Channel, "action", string(resolved.Action), "reason", reason)
		return target.reject(resolved.Action, reason)
	}

	result, text := target.apply(resolved.Action, applyOptions...)
	if !result.Accepted {
		logger.Info("countdown action rejected",
			"channel", resolved.Channel, "action", string(result.Action), "reason", result.Reason)
	}
	return text
}

func (d *Dispatcher) dispatchCalendar(ctx context.Context, call llms.ToolCall) string {
	if !d.oracle.isConfigured() {
		return "Your calendar is not connected."
	}

	switch call.Name {
	case ToolShowUpcomingEvents:
		upcoming, err := d.oracle.UpcomingEvents(ctx)
		if err != nil {
			logger.Warn("calendar lookup failed", "error", err)
			return "I could not reach your calendar."
		}
		if len(upcoming) == 0 {
			return "You have nothing coming up."
		}
		return "Coming up: " + strings.Join(upcoming, "; ") + "."
	case ToolAddCalendarEvent:
		description := stringArgument(call.Arguments, "description", "event")
		if description == "" {
			logger.Warn("calendar event without description, ignoring tool call")
			return ""
		}
		if err := d.oracle.AddEvent(ctx, description); err != nil {
			logger.Warn("calendar insert failed", "error", err)
			return "I could not update your calendar."
		}
		return "Added to your calendar."
	}
	return ""
}

func stringArgument(arguments map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := arguments[key].(string); ok {
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	return ""
}
