package orchestration

import (
	"context"
	"time"

	"github.com/fokus-assistant/fokus-core/core/protocol"
)

// runTicker polls both countdown channels independently of the pipeline
// worker. Each poll publishes at most one tick per channel and exactly one
// completion.
func (e *Engine) runTicker(ctx context.Context) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.pollChannel(ctx, e.pomodoro, now)
			e.pollChannel(ctx, e.timer, now)
		}
	}
}

func (e *Engine) pollChannel(ctx context.Context, channel *timerChannel, now time.Time) {
	tick := channel.poll(now)
	if tick == nil || !tick.Completed {
		return
	}

	text := completionText(channel.name, tick.Snapshot)
	logger.Info("countdown completed", "channel", channel.name, "session", tick.Snapshot.Session)
	e.publisher.publishReply(text)
	e.publisher.publishState(protocol.StateReplying, "")
	e.speak(ctx, text)
	e.publisher.publishState(protocol.StateIdle, e.idleStatus())
}
