package orchestration

import (
	"sync"
	"time"

	"github.com/fokus-assistant/fokus-core/core/countdown"
)

// timerChannel binds one countdown instance to its wire channel name and
// serializes every state change with its publication. Without the ordering
// lock a poll could read a running snapshot, lose the processor to a dispatch
// that aborts and publishes, and then overwrite the newer sticky entry with
// the stale running tick.
type timerChannel struct {
	mu sync.Mutex

	name      string
	timer     *countdown.Timer
	publisher *uiPublisher
}

func newTimerChannel(name string, timer *countdown.Timer, publisher *uiPublisher) *timerChannel {
	return &timerChannel{name: name, timer: timer, publisher: publisher}
}

func (c *timerChannel) snapshot() countdown.Snapshot {
	return c.timer.Snapshot()
}

// syncState republishes the authoritative snapshot without a transition
// attached, so fresh observers always settle on a defined state.
func (c *timerChannel) syncState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publisher.publishSync(c.name, c.timer.Snapshot())
}

// apply runs one guarded transition and publishes its result before any other
// publication on this channel can interleave.
func (c *timerChannel) apply(action countdown.Action, opts ...countdown.ApplyOption) (countdown.Result, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := c.timer.Apply(action, opts...)
	text := resultText(c.name, result)
	c.publisher.publishResult(c.name, result, text)
	return result, text
}

func (c *timerChannel) start(session string, durationSeconds int) countdown.Result {
	result, _ := c.apply(countdown.ActionStart,
		countdown.WithSession(session), countdown.WithDuration(durationSeconds))
	return result
}

// reject publishes a refusal that never reached the machine, such as a
// cross-channel conflict.
func (c *timerChannel) reject(action countdown.Action, reason string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := countdown.Result{
		Action:   action,
		Accepted: false,
		Reason:   reason,
		Snapshot: c.timer.Snapshot(),
	}
	text := resultText(c.name, result)
	c.publisher.publishResult(c.name, result, text)
	return text
}

// supersede aborts an active countdown because the other channel is starting.
// Reports whether anything was aborted.
func (c *timerChannel) supersede() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.timer.Snapshot().IsActive() {
		return false
	}
	result := c.timer.Abort()
	result.Reason = reasonSuperseded
	c.publisher.publishResult(c.name, result, "")
	return true
}

// poll advances the countdown clock and publishes the tick, if any, before
// releasing the ordering lock.
func (c *timerChannel) poll(now time.Time) *countdown.Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	tick := c.timer.Poll(now)
	if tick != nil {
		c.publisher.publishTick(c.name, *tick)
	}
	return tick
}
