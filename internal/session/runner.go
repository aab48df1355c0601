package session

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/mentehub/circled/internal/clock"
	"github.com/mentehub/circled/internal/events"
	"github.com/mentehub/circled/internal/facilitator"
	"github.com/mentehub/circled/internal/participants"
	"github.com/mentehub/circled/internal/phase"
	"github.com/mentehub/circled/internal/store"
	"github.com/mentehub/circled/internal/transcript"
)

// Runner drives one live session: the 1-second tick loop deriving
// phase/remaining from the wall clock, at-most-once prompt dispatch per
// phase entry, and the simulated-participant share interval during
// reflection. All mutable session state lives here, scoped to the runner's
// lifetime; nothing is shared across sessions.
type Runner struct {
	id       string
	mode     string
	theme    Theme
	timeline *phase.Timeline
	clk      clock.Clock
	start    time.Time

	transcript *transcript.Store
	dispatcher *facilitator.Dispatcher
	emitter    *participants.Emitter
	pool       []participants.Participant
	bus        *events.Publisher
	archive    *store.Store
	logger     *slog.Logger

	tickInterval  time.Duration
	shareInterval time.Duration
	reflectionIdx int

	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	completedCh chan struct{}

	mu        sync.Mutex
	started   bool
	lastPhase int
	completed bool
	speaking  string // display name of the participant currently "speaking"
}

// Config assembles a Runner. Generator, Bus and Archive may be nil: a nil
// generator forces fallback text, nil bus/archive skip publishing/archiving.
type Config struct {
	ID        string
	Mode      string
	Clock     clock.Clock
	Generator facilitator.Generator
	Pool      []participants.Participant
	Bus       *events.Publisher
	Archive   *store.Store
	Logger    *slog.Logger

	// TickInterval and ShareInterval override the 1s/20s defaults in tests.
	TickInterval  time.Duration
	ShareInterval time.Duration
	// ShareMaxDelay bounds the random pause before an elected participant
	// speaks; negative disables the delay entirely.
	ShareMaxDelay time.Duration

	Rand *rand.Rand
}

func NewRunner(cfg Config) *Runner {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.ShareInterval <= 0 {
		cfg.ShareInterval = 20 * time.Second
	}
	if cfg.ShareMaxDelay == 0 {
		cfg.ShareMaxDelay = 5 * time.Second
	} else if cfg.ShareMaxDelay < 0 {
		cfg.ShareMaxDelay = 0
	}
	if cfg.Pool == nil {
		cfg.Pool = participants.DefaultPool()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	theme := ThemeFor(ThemeKeyFromID(cfg.ID))
	timeline := phase.ForMode(cfg.Mode)
	ts := transcript.NewStore(cfg.Clock)

	r := &Runner{
		id:            cfg.ID,
		mode:          cfg.Mode,
		theme:         theme,
		timeline:      timeline,
		clk:           cfg.Clock,
		start:         cfg.Clock.Now(),
		transcript:    ts,
		pool:          cfg.Pool,
		bus:           cfg.Bus,
		archive:       cfg.Archive,
		logger:        cfg.Logger.With("session_id", cfg.ID),
		tickInterval:  cfg.TickInterval,
		shareInterval: cfg.ShareInterval,
		reflectionIdx: timeline.IndexOf(phase.NameReflection),
		done:          make(chan struct{}),
		completedCh:   make(chan struct{}),
		lastPhase:     -1,
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())

	// +1 for the real participant hosting the circle.
	participantCount := len(cfg.Pool) + 1
	gen := cfg.Generator
	if gen == nil {
		gen = unavailableGenerator{}
	}
	r.dispatcher = facilitator.NewDispatcher(gen, ts, timeline, cfg.ID, theme.Title, participantCount, r.logger)
	r.emitter = participants.NewEmitter(cfg.Pool, ts, participants.NewRandomSource(cfg.Rand), cfg.Rand, r.logger,
		participants.WithMaxDelay(cfg.ShareMaxDelay),
		participants.WithSpeakingHook(r.setSpeaking, 10*time.Second),
	)

	ts.Subscribe(func(e transcript.Entry) {
		if err := r.bus.Publish(events.SubjectTranscriptAppend, map[string]any{
			"session_id": r.id,
			"speaker":    e.Speaker,
			"phase":      e.Phase,
			"timestamp":  e.Timestamp.UTC().Format(time.RFC3339),
		}); err != nil {
			r.logger.Warn("failed to publish transcript event", "error", err)
		}
	})

	return r
}

// Start launches the run loop.
func (r *Runner) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	if err := r.bus.Publish(events.SubjectSessionStarted, map[string]any{
		"session_id": r.id,
		"theme":      r.theme.Key,
		"mode":       r.mode,
		"timestamp":  r.start.UTC().Format(time.RFC3339),
	}); err != nil {
		r.logger.Warn("failed to publish session started", "error", err)
	}
	go r.run()
}

// Stop cancels the run loop and abandons any in-flight generation or
// pending share; late results are discarded, never applied. Safe to call
// more than once, and on a runner that was never started.
func (r *Runner) Stop() {
	r.cancel()

	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if started {
		<-r.done
	}
}

// Done is closed when the run loop has exited, whether by completion or Stop.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Completed is closed exactly once, when remaining time reaches zero. The
// consuming view transitions to its summary display on this signal; a
// stopped-before-complete session never fires it.
func (r *Runner) Completed() <-chan struct{} { return r.completedCh }

func (r *Runner) run() {
	defer close(r.done)

	tick := time.NewTicker(r.tickInterval)
	defer tick.Stop()
	share := time.NewTicker(r.shareInterval)
	defer share.Stop()

	// First derivation happens immediately so the opening dispatch does not
	// wait out a full tick.
	if r.step() {
		return
	}

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-tick.C:
			if r.step() {
				return
			}
		case <-share.C:
			st := r.timeline.At(r.elapsed())
			if !st.Complete && st.Index == r.reflectionIdx {
				r.emitter.Tick(r.ctx, phase.NameReflection)
			}
		}
	}
}

// step derives the current state and reacts to it. Returns true when the
// session has completed and the loop should exit.
func (r *Runner) step() bool {
	st := r.timeline.At(r.elapsed())
	if st.Complete {
		r.complete()
		return true
	}

	r.mu.Lock()
	changed := st.Index != r.lastPhase
	r.lastPhase = st.Index
	r.mu.Unlock()

	if changed {
		r.logger.Info("phase entered", "phase", r.timeline.Phase(st.Index).Name, "index", st.Index)
		if err := r.bus.Publish(events.SubjectSessionPhase, map[string]any{
			"session_id": r.id,
			"phase":      r.timeline.Phase(st.Index).Name,
			"index":      st.Index,
		}); err != nil {
			r.logger.Warn("failed to publish phase event", "error", err)
		}
	}

	// Fired every tick; the dispatcher's last-dispatched marker makes
	// repeat observations of the same phase a no-op, and retries the
	// dispatch if a previous phase's generation was still in flight when
	// the boundary passed.
	go r.dispatcher.DispatchForPhase(r.ctx, st.Index)

	return false
}

// complete runs the terminal transition exactly once.
func (r *Runner) complete() {
	r.mu.Lock()
	if r.completed {
		r.mu.Unlock()
		return
	}
	r.completed = true
	r.mu.Unlock()

	close(r.completedCh)
	completedAt := r.clk.Now()
	r.logger.Info("session complete", "entries", r.transcript.Len())

	if err := r.bus.Publish(events.SubjectSessionCompleted, map[string]any{
		"session_id": r.id,
		"theme":      r.theme.Key,
		"mode":       r.mode,
		"entries":    r.transcript.Len(),
		"timestamp":  completedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		r.logger.Warn("failed to publish session completed", "error", err)
	}

	if r.archive == nil {
		return
	}
	// Archival outlives the runner's own context: a stopping service still
	// gets its artifact written, bounded rather than abandoned.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := r.archive.ArchiveSession(ctx, store.ArchivedSession{
		SessionID:   r.id,
		Theme:       r.theme.Key,
		Mode:        r.mode,
		StartedAt:   r.start,
		CompletedAt: completedAt,
	}, r.transcript.Entries())
	if err != nil {
		r.logger.Error("failed to archive session", "error", err)
	}
}

func (r *Runner) elapsed() time.Duration {
	return r.clk.Now().Sub(r.start)
}

func (r *Runner) setSpeaking(name string, speaking bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if speaking {
		r.speaking = name
	} else if r.speaking == name {
		r.speaking = ""
	}
}

// ParticipantState is the presentation view of one simulated participant.
type ParticipantState struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Snapshot is the read model the presentation layer polls.
type Snapshot struct {
	SessionID        string             `json:"sessionId"`
	Theme            Theme              `json:"theme"`
	Mode             string             `json:"mode"`
	PhaseIndex       int                `json:"phaseIndex"`
	PhaseName        string             `json:"phaseName"`
	PhaseDescription string             `json:"phaseDescription"`
	RemainingSeconds int                `json:"remainingSeconds"`
	Complete         bool               `json:"complete"`
	CurrentMessage   string             `json:"currentMessage"`
	Generating       bool               `json:"generating"`
	Participants     []ParticipantState `json:"participants"`
	TranscriptLength int                `json:"transcriptLength"`
}

// Snapshot derives the current presentation state. Like every read it is
// recomputed from the fixed start timestamp, never from a counter.
func (r *Runner) Snapshot() Snapshot {
	st := r.timeline.At(r.elapsed())

	r.mu.Lock()
	speaking := r.speaking
	r.mu.Unlock()

	snap := Snapshot{
		SessionID:        r.id,
		Theme:            r.theme,
		Mode:             r.mode,
		Complete:         st.Complete,
		CurrentMessage:   r.dispatcher.CurrentMessage(),
		Generating:       r.dispatcher.Pending(),
		TranscriptLength: r.transcript.Len(),
	}
	if !st.Complete {
		p := r.timeline.Phase(st.Index)
		snap.PhaseIndex = st.Index
		snap.PhaseName = p.Name
		snap.PhaseDescription = p.Description
		snap.RemainingSeconds = int(st.Remaining / time.Second)
	}
	for _, p := range r.pool {
		snap.Participants = append(snap.Participants, ParticipantState{
			ID:     p.ID,
			Name:   p.DisplayName,
			Active: p.DisplayName == speaking,
		})
	}
	return snap
}

// Transcript exposes the session's append-only log.
func (r *Runner) Transcript() *transcript.Store { return r.transcript }

// ID returns the session identifier.
func (r *Runner) ID() string { return r.id }

// unavailableGenerator stands in when no API key is configured; every
// dispatch falls through to the static fallback text.
type unavailableGenerator struct{}

var errGenerationUnavailable = errors.New("text generation not configured")

func (unavailableGenerator) Generate(context.Context, string, facilitator.Context) (string, error) {
	return "", errGenerationUnavailable
}
