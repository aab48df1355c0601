package facilitator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mentehub/circled/internal/phase"
	"github.com/mentehub/circled/internal/transcript"
)

// Context is the opaque passthrough metadata sent alongside every
// generation request.
type Context struct {
	Phase        string `json:"phase"`
	Participants int    `json:"participants"`
	SessionID    string `json:"sessionId"`
	CurrentPhase int    `json:"currentPhase"`
}

// Generator produces one piece of facilitation text. Implemented by the
// Anthropic client; the dispatcher never sees HTTP.
type Generator interface {
	Generate(ctx context.Context, prompt string, session Context) (string, error)
}

// Dispatcher turns phase entries into facilitator lines on the transcript.
// Generation failures are absorbed: the phase's static fallback text is
// appended instead, so the session proceeds regardless of network health.
type Dispatcher struct {
	gen          Generator
	store        *transcript.Store
	timeline     *phase.Timeline
	sessionID    string
	theme        string
	participants int
	logger       *slog.Logger

	mu             sync.Mutex
	lastDispatched int // phase index, -1 before any dispatch
	pending        bool
	current        string // latest facilitator message, for narration
}

func NewDispatcher(gen Generator, store *transcript.Store, timeline *phase.Timeline, sessionID, theme string, participantCount int, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		gen:            gen,
		store:          store,
		timeline:       timeline,
		sessionID:      sessionID,
		theme:          theme,
		participants:   participantCount,
		logger:         logger,
		lastDispatched: -1,
	}
}

// Pending reports whether a generation is in flight.
func (d *Dispatcher) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// CurrentMessage is the latest facilitator line, the slot text-to-speech
// narration reads from.
func (d *Dispatcher) CurrentMessage() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// DispatchForPhase requests facilitation text for a phase entry and records
// the result on the transcript. At most one dispatch happens per phase
// index: repeat and re-entrant calls for an already-dispatched index are
// suppressed, so tick callbacks observing the same phase in quick
// succession cannot double-fire. A cancelled context abandons the result
// without appending.
func (d *Dispatcher) DispatchForPhase(ctx context.Context, idx int) {
	if idx < 0 || idx >= d.timeline.Len() {
		return
	}

	d.mu.Lock()
	if idx <= d.lastDispatched || d.pending {
		d.mu.Unlock()
		return
	}
	d.lastDispatched = idx
	d.pending = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.pending = false
		d.mu.Unlock()
	}()

	phaseName := d.timeline.Phase(idx).Name
	prompt := PromptFor(idx, d.theme, d.store)
	if prompt == "" {
		return
	}

	text, err := d.gen.Generate(ctx, prompt, Context{
		Phase:        phaseName,
		Participants: d.participants,
		SessionID:    d.sessionID,
		CurrentPhase: idx,
	})
	if err != nil {
		d.logger.Warn("generation failed, using fallback", "phase", phaseName, "error", err)
		text = FallbackFor(idx)
	}

	// A response landing after the session stopped is discarded, not applied.
	if ctx.Err() != nil {
		return
	}

	d.store.Append(transcript.FacilitatorSpeaker, text, phaseName)

	d.mu.Lock()
	d.current = text
	d.mu.Unlock()

	d.logger.Info("facilitator dispatched", "session_id", d.sessionID, "phase", phaseName)
}
