package participants

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mentehub/circled/internal/clock"
	"github.com/mentehub/circled/internal/phase"
	"github.com/mentehub/circled/internal/transcript"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEmitter(t *testing.T, opts ...EmitterOption) (*Emitter, *transcript.Store) {
	t.Helper()
	store := transcript.NewStore(clock.NewMock(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)))
	rng := rand.New(rand.NewSource(42))
	opts = append([]EmitterOption{WithMaxDelay(0)}, opts...)
	e := NewEmitter(DefaultPool(), store, NewRandomSource(rng), rng, testLogger(), opts...)
	return e, store
}

func TestTick_EachParticipantSharesAtMostOncePerPhase(t *testing.T) {
	e, store := newTestEmitter(t)
	ctx := context.Background()

	// More ticks than participants: the extras must be no-ops.
	for i := 0; i < 10; i++ {
		e.Tick(ctx, phase.NameReflection)
	}

	if store.Len() != len(DefaultPool()) {
		t.Fatalf("expected %d shares, got %d", len(DefaultPool()), store.Len())
	}

	counts := make(map[string]int)
	for _, entry := range store.Entries() {
		counts[entry.Speaker+"/"+entry.Phase]++
	}
	for key, n := range counts {
		if n > 1 {
			t.Errorf("%s shared %d times in one phase", key, n)
		}
	}
}

func TestTick_NoEligibleParticipantsIsNoop(t *testing.T) {
	e, store := newTestEmitter(t)
	ctx := context.Background()

	for range DefaultPool() {
		e.Tick(ctx, phase.NameReflection)
	}
	before := store.Len()

	if name := e.Tick(ctx, phase.NameReflection); name != "" {
		t.Errorf("expected no election, got %q", name)
	}
	if store.Len() != before {
		t.Errorf("no-op tick changed store length: %d -> %d", before, store.Len())
	}
}

func TestTick_NewPhaseResetsEligibility(t *testing.T) {
	e, store := newTestEmitter(t)
	ctx := context.Background()

	if name := e.Tick(ctx, phase.NameReflection); name == "" {
		t.Fatal("expected a share in reflection")
	}
	// Same participants become eligible again in a different phase.
	if got := len(e.Eligible(phase.NameWeaving)); got != len(DefaultPool()) {
		t.Errorf("expected all participants eligible in new phase, got %d", got)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", store.Len())
	}
}

func TestTick_CancelledContextAbandonsShare(t *testing.T) {
	e, store := newTestEmitter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e.Tick(ctx, phase.NameReflection)
	if store.Len() != 0 {
		t.Errorf("cancelled share still appended, store length %d", store.Len())
	}
}

func TestTick_SpeakingHook(t *testing.T) {
	var events []string
	hook := func(name string, speaking bool) {
		if speaking {
			events = append(events, "on:"+name)
		}
	}
	e, store := newTestEmitter(t, WithSpeakingHook(hook, time.Hour))
	name := e.Tick(context.Background(), phase.NameReflection)

	if len(events) != 1 || events[0] != "on:"+name {
		t.Errorf("expected speaking hook for %s, got %v", name, events)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", store.Len())
	}
}

func TestRandomSource_PicksFromPool(t *testing.T) {
	src := NewRandomSource(rand.New(rand.NewSource(1)))
	p := DefaultPool()[0]

	for i := 0; i < 20; i++ {
		line := src.PickNext(p)
		found := false
		for _, r := range p.Responses {
			if r == line {
				found = true
			}
		}
		if !found {
			t.Fatalf("picked line not in pool: %q", line)
		}
	}

	if got := src.PickNext(Participant{}); got != "" {
		t.Errorf("empty pool should pick empty string, got %q", got)
	}
}

func TestLoadPool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "participants.yaml")
	data := `participants:
  - id: ai-june
    name: June Osei
    personality: grounded
    backstory: Community organizer
    responses:
      - "My bridge was learning to ask for help."
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	pool, err := LoadPool(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool) != 1 || pool[0].DisplayName != "June Osei" {
		t.Errorf("unexpected pool: %+v", pool)
	}
	if len(pool[0].Responses) != 1 {
		t.Errorf("expected 1 response, got %d", len(pool[0].Responses))
	}
}

func TestLoadPool_Errors(t *testing.T) {
	if _, err := LoadPool("/nonexistent/participants.yaml"); err == nil {
		t.Error("expected error for missing file")
	}

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("participants: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPool(empty); err == nil {
		t.Error("expected error for empty pool")
	}
}
