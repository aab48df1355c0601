package participants

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mentehub/circled/internal/transcript"
)

// Emitter injects one canned participant share at a time during the
// reflection window. Each tick picks uniformly among participants that have
// not yet spoken in the phase; once everyone has shared, ticks are no-ops.
// The transcript itself is the eligibility record, so the guard cannot drift
// from what was actually said.
type Emitter struct {
	pool     []Participant
	store    *transcript.Store
	source   ResponseSource
	rng      *rand.Rand
	maxDelay time.Duration
	logger   *slog.Logger

	// onSpeaking is a presentation hook: called with (displayName, true)
	// when a participant's share lands and (displayName, false) when the
	// indicator clears. Never part of persisted state.
	onSpeaking     func(name string, speaking bool)
	speakingWindow time.Duration
}

type EmitterOption func(*Emitter)

// WithMaxDelay bounds the random pause before an elected participant speaks.
// Zero makes shares land synchronously on Tick.
func WithMaxDelay(d time.Duration) EmitterOption {
	return func(e *Emitter) { e.maxDelay = d }
}

// WithSpeakingHook registers the presentation callback and how long the
// speaking indicator stays lit.
func WithSpeakingHook(fn func(name string, speaking bool), window time.Duration) EmitterOption {
	return func(e *Emitter) {
		e.onSpeaking = fn
		e.speakingWindow = window
	}
}

func NewEmitter(pool []Participant, store *transcript.Store, source ResponseSource, rng *rand.Rand, logger *slog.Logger, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		pool:           pool,
		store:          store,
		source:         source,
		rng:            rng,
		maxDelay:       5 * time.Second,
		speakingWindow: 10 * time.Second,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Eligible returns the participants that have not yet spoken in the phase.
func (e *Emitter) Eligible(phaseName string) []Participant {
	var out []Participant
	for _, p := range e.pool {
		if !e.store.HasSpokenInPhase(p.DisplayName, phaseName) {
			out = append(out, p)
		}
	}
	return out
}

// Tick elects at most one participant to share in the named phase. With a
// non-zero max delay the share lands after a small random pause on a
// separate goroutine; a cancelled context abandons it entirely. Returns the
// elected participant's display name, or "" if nobody was eligible.
func (e *Emitter) Tick(ctx context.Context, phaseName string) string {
	eligible := e.Eligible(phaseName)
	if len(eligible) == 0 {
		return ""
	}

	p := eligible[e.rng.Intn(len(eligible))]
	line := e.source.PickNext(p)

	if e.maxDelay <= 0 {
		e.speak(ctx, p, line, phaseName, 0)
		return p.DisplayName
	}

	delay := time.Duration(e.rng.Int63n(int64(e.maxDelay)))
	go e.speak(ctx, p, line, phaseName, delay)
	return p.DisplayName
}

func (e *Emitter) speak(ctx context.Context, p Participant, line, phaseName string, delay time.Duration) {
	if delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
	if ctx.Err() != nil {
		return
	}

	e.store.Append(p.DisplayName, line, phaseName)
	e.logger.Debug("participant shared", "participant", p.DisplayName, "phase", phaseName)

	if e.onSpeaking == nil {
		return
	}
	e.onSpeaking(p.DisplayName, true)
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(e.speakingWindow):
		}
		e.onSpeaking(p.DisplayName, false)
	}()
}
