package countdown

import (
	"strings"
	"sync"
	"time"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhasePaused    Phase = "paused"
	PhaseCompleted Phase = "completed"
	PhaseAborted   Phase = "aborted"
)

// IsActive reports whether the phase counts as an in-progress session for
// mutual-exclusion purposes.
func (p Phase) IsActive() bool {
	return p == PhaseRunning || p == PhasePaused
}

// IsTerminal reports whether the phase can only be left through Reset or
// Restart.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseAborted
}

type Action string

const (
	ActionStart    Action = "start"
	ActionPause    Action = "pause"
	ActionContinue Action = "continue"
	ActionAbort    Action = "abort"
	ActionReset    Action = "reset"
	// ActionRestart is start-with-retained-settings, reachable through the
	// legacy reset tools. Unlike ActionStart it is accepted from any phase.
	ActionRestart Action = "restart"

	// ActionSync, ActionTick, and ActionCompleted never mutate the machine;
	// they label published snapshots.
	ActionSync      Action = "sync"
	ActionTick      Action = "tick"
	ActionCompleted Action = "completed"
)

const (
	ReasonStarted   = "started"
	ReasonRestarted = "restarted"
	ReasonPaused    = "paused"
	ReasonContinued = "continued"
	ReasonAborted   = "aborted"
	ReasonReset     = "reset"

	ReasonAlreadyActive     = "already_active"
	ReasonNotRunning        = "not_running"
	ReasonNotPaused         = "not_paused"
	ReasonNotActive         = "not_active"
	ReasonUnsupportedAction = "unsupported_action"
)

const (
	DefaultPomodoroSeconds = 25 * 60
	DefaultTimerSeconds    = 10 * 60
	maxSessionNameLength   = 60
)

// Snapshot is the canonical state of one countdown instance. Snapshots are
// values; the machine is mutated only through Timer operations.
type Snapshot struct {
	Phase            Phase
	Session          string
	DurationSeconds  int
	RemainingSeconds int
	// Anchor is set exactly when the phase becomes running; zero otherwise.
	Anchor time.Time
}

func (s Snapshot) IsActive() bool {
	return s.Phase.IsActive()
}

// Result is the envelope returned after applying an action. Rejected actions
// carry a machine-readable reason so callers can phrase a reply; they never
// surface as errors.
type Result struct {
	Action   Action
	Accepted bool
	Reason   string
	Snapshot Snapshot
}

// Tick is emitted by Poll while the countdown advances: once per elapsed
// whole second, plus exactly one completion tick.
type Tick struct {
	Snapshot  Snapshot
	Completed bool
}

type Option func(*Timer)

func WithDefaultDuration(seconds int) Option {
	return func(t *Timer) {
		if seconds > 0 {
			t.defaultDurationSeconds = seconds
		}
	}
}

func WithDefaultSession(name string) Option {
	return func(t *Timer) {
		t.defaultSession = name
	}
}

// WithClock replaces the wall clock, used by tests to simulate elapsed time.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		if now != nil {
			t.now = now
		}
	}
}

// Timer is the countdown phase machine shared by the pomodoro and generic
// timer channels. One mutex per instance: actions from the dispatch worker
// and polls from the tick scheduler serialize here.
type Timer struct {
	mu sync.Mutex

	channel                string
	defaultDurationSeconds int
	defaultSession         string
	now                    func() time.Time

	phase   Phase
	session string

	durationSeconds int
	// remainingAtAnchor is the countdown value the anchor timestamp refers
	// to: the full duration after start, the frozen remainder after continue.
	remainingAtAnchor int
	anchor            time.Time

	// frozenRemaining holds the remaining time while paused or terminal.
	frozenRemaining int

	lastEmittedRemaining int
	hasEmitted           bool
}

// NewTimer creates an idle countdown instance. The channel name only labels
// logs and published events.
func NewTimer(channel string, opts ...Option) *Timer {
	t := &Timer{
		channel:                channel,
		defaultDurationSeconds: DefaultPomodoroSeconds,
		now:                    time.Now,
		phase:                  PhaseIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.durationSeconds = t.defaultDurationSeconds
	t.frozenRemaining = t.defaultDurationSeconds
	return t
}

func (t *Timer) Channel() string { return t.channel }

func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(t.now())
}

// Start begins a countdown. Valid only from idle or a terminal phase; a
// session that is already running or paused must be aborted or reset first.
func (t *Timer) Start(session string, durationSeconds int) Result {
	return t.Apply(ActionStart, WithSession(session), WithDuration(durationSeconds))
}

func (t *Timer) Pause() Result    { return t.Apply(ActionPause) }
func (t *Timer) Continue() Result { return t.Apply(ActionContinue) }
func (t *Timer) Abort() Result    { return t.Apply(ActionAbort) }
func (t *Timer) Reset() Result    { return t.Apply(ActionReset) }

type ApplyOption func(*applyOptions)

type applyOptions struct {
	session         string
	durationSeconds int
}

func WithSession(session string) ApplyOption {
	return func(o *applyOptions) {
		o.session = session
	}
}

func WithDuration(seconds int) ApplyOption {
	return func(o *applyOptions) {
		o.durationSeconds = seconds
	}
}

// Apply executes one guarded transition and returns the resulting snapshot
// with an accepted/reason verdict.
func (t *Timer) Apply(action Action, opts ...ApplyOption) Result {
	options := applyOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()

	switch action {
	case ActionStart:
		if t.phase.IsActive() {
			return t.resultLocked(action, false, ReasonAlreadyActive, now)
		}
		t.startLocked(now, options.session, options.durationSeconds)
		logger.Info("countdown started",
			"channel", t.channel, "session", t.session, "duration_seconds", t.durationSeconds)
		return t.resultLocked(action, true, ReasonStarted, now)

	case ActionRestart:
		t.startLocked(now, options.session, options.durationSeconds)
		logger.Info("countdown restarted",
			"channel", t.channel, "session", t.session, "duration_seconds", t.durationSeconds)
		return t.resultLocked(action, true, ReasonRestarted, now)

	case ActionPause:
		if t.phase != PhaseRunning {
			return t.resultLocked(action, false, ReasonNotRunning, now)
		}
		t.frozenRemaining = t.runningRemainingLocked(now)
		t.phase = PhasePaused
		t.anchor = time.Time{}
		t.lastEmittedRemaining = t.frozenRemaining
		t.hasEmitted = true
		logger.Info("countdown paused",
			"channel", t.channel, "session", t.session, "remaining_seconds", t.frozenRemaining)
		return t.resultLocked(action, true, ReasonPaused, now)

	case ActionContinue:
		if t.phase != PhasePaused {
			return t.resultLocked(action, false, ReasonNotPaused, now)
		}
		t.remainingAtAnchor = t.frozenRemaining
		t.anchor = now
		t.phase = PhaseRunning
		t.hasEmitted = false
		logger.Info("countdown continued", "channel", t.channel, "session", t.session)
		return t.resultLocked(action, true, ReasonContinued, now)

	case ActionAbort:
		if !t.phase.IsActive() {
			return t.resultLocked(action, false, ReasonNotActive, now)
		}
		t.frozenRemaining = t.currentRemainingLocked(now)
		t.phase = PhaseAborted
		t.anchor = time.Time{}
		t.lastEmittedRemaining = t.frozenRemaining
		t.hasEmitted = true
		logger.Info("countdown aborted",
			"channel", t.channel, "session", t.session, "remaining_seconds", t.frozenRemaining)
		return t.resultLocked(action, true, ReasonAborted, now)

	case ActionReset:
		if t.phase.IsActive() {
			return t.resultLocked(action, false, ReasonAlreadyActive, now)
		}
		t.phase = PhaseIdle
		t.session = ""
		t.durationSeconds = t.defaultDurationSeconds
		t.frozenRemaining = t.defaultDurationSeconds
		t.anchor = time.Time{}
		t.hasEmitted = false
		logger.Info("countdown reset", "channel", t.channel)
		return t.resultLocked(action, true, ReasonReset, now)
	}

	return t.resultLocked(action, false, ReasonUnsupportedAction, now)
}

// Poll computes the current countdown and reports whether anything worth
// publishing happened since the last call. It emits at most one tick per
// whole remaining second and exactly one completion tick; after completion
// the phase reads completed idempotently.
func (t *Timer) Poll(now time.Time) *Tick {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseRunning {
		return nil
	}

	remaining := t.runningRemainingLocked(now)
	if remaining <= 0 {
		t.phase = PhaseCompleted
		t.frozenRemaining = 0
		t.anchor = time.Time{}
		t.lastEmittedRemaining = 0
		t.hasEmitted = true
		logger.Info("countdown completed", "channel", t.channel, "session", t.session)
		return &Tick{Snapshot: t.snapshotLocked(now), Completed: true}
	}

	if t.hasEmitted && t.lastEmittedRemaining == remaining {
		return nil
	}

	t.lastEmittedRemaining = remaining
	t.hasEmitted = true
	return &Tick{Snapshot: t.snapshotLocked(now)}
}

func (t *Timer) startLocked(now time.Time, session string, durationSeconds int) {
	if durationSeconds > 0 {
		t.durationSeconds = durationSeconds
	} else if t.durationSeconds <= 0 {
		t.durationSeconds = t.defaultDurationSeconds
	}

	name := session
	if name == "" {
		name = t.session
	}
	if name == "" {
		name = t.defaultSession
	}
	t.session = sanitizeSessionName(name)

	t.phase = PhaseRunning
	t.anchor = now
	t.remainingAtAnchor = t.durationSeconds
	t.frozenRemaining = t.durationSeconds
	t.hasEmitted = false
}

func (t *Timer) resultLocked(action Action, accepted bool, reason string, now time.Time) Result {
	return Result{
		Action:   action,
		Accepted: accepted,
		Reason:   reason,
		Snapshot: t.snapshotLocked(now),
	}
}

func (t *Timer) snapshotLocked(now time.Time) Snapshot {
	return Snapshot{
		Phase:            t.phase,
		Session:          t.session,
		DurationSeconds:  t.durationSeconds,
		RemainingSeconds: t.currentRemainingLocked(now),
		Anchor:           t.anchor,
	}
}

func (t *Timer) currentRemainingLocked(now time.Time) int {
	switch t.phase {
	case PhaseIdle:
		return t.durationSeconds
	case PhaseRunning:
		return t.runningRemainingLocked(now)
	case PhaseCompleted:
		return 0
	}
	return t.frozenRemaining
}

// runningRemainingLocked floors elapsed whole seconds since the anchor so a
// displayed countdown never shows time the user has not actually waited.
func (t *Timer) runningRemainingLocked(now time.Time) int {
	if t.anchor.IsZero() {
		return t.durationSeconds
	}

	elapsed := int(now.Sub(t.anchor) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := t.remainingAtAnchor - elapsed
	if remaining < 0 {
		return 0
	}
	if remaining > t.durationSeconds {
		return t.durationSeconds
	}
	return remaining
}

func sanitizeSessionName(name string) string {
	compact := strings.Join(strings.Fields(name), " ")
	if runes := []rune(compact); len(runes) > maxSessionNameLength {
		compact = strings.TrimSpace(string(runes[:maxSessionNameLength]))
	}
	return compact
}
