package facilitator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mentehub/circled/internal/anthropic"
	"github.com/mentehub/circled/internal/clock"
	"github.com/mentehub/circled/internal/phase"
	"github.com/mentehub/circled/internal/transcript"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []Context
	text    string
	err     error
	blockCh chan struct{} // when set, Generate blocks until closed
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, session Context) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, session)
	block := g.blockCh
	g.mu.Unlock()
	if block != nil {
		<-block
	}
	return g.text, g.err
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func newTestDispatcher(gen Generator) (*Dispatcher, *transcript.Store) {
	store := transcript.NewStore(clock.NewMock(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)))
	tl := phase.ForMode(phase.ModeCircle)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(gen, store, tl, "corporate-9am-1748860800000", "Bridges and Burdens", 4, logger), store
}

func TestDispatchForPhase_AppendsFacilitatorEntry(t *testing.T) {
	gen := &fakeGenerator{text: "Welcome, everyone."}
	d, store := newTestDispatcher(gen)

	d.DispatchForPhase(context.Background(), 0)

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Speaker != transcript.FacilitatorSpeaker {
		t.Errorf("expected facilitator speaker, got %q", entries[0].Speaker)
	}
	if entries[0].Phase != phase.NameInduction {
		t.Errorf("expected Induction phase, got %q", entries[0].Phase)
	}
	if d.CurrentMessage() != "Welcome, everyone." {
		t.Errorf("current message not updated: %q", d.CurrentMessage())
	}
}

func TestDispatchForPhase_AtMostOncePerIndex(t *testing.T) {
	gen := &fakeGenerator{text: "text"}
	d, store := newTestDispatcher(gen)
	ctx := context.Background()

	d.DispatchForPhase(ctx, 0)
	d.DispatchForPhase(ctx, 0)
	d.DispatchForPhase(ctx, 0)

	if gen.callCount() != 1 {
		t.Errorf("expected 1 generation call, got %d", gen.callCount())
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", store.Len())
	}

	// Earlier indices are also suppressed once a later phase dispatched.
	d.DispatchForPhase(ctx, 1)
	d.DispatchForPhase(ctx, 0)
	if gen.callCount() != 2 {
		t.Errorf("expected 2 generation calls, got %d", gen.callCount())
	}
}

func TestDispatchForPhase_FallbackOnError(t *testing.T) {
	for idx := 0; idx < 5; idx++ {
		gen := &fakeGenerator{err: fmt.Errorf("api error 500: upstream down")}
		d, store := newTestDispatcher(gen)

		d.DispatchForPhase(context.Background(), idx)

		entries := store.Entries()
		if len(entries) != 1 {
			t.Fatalf("phase %d: expected exactly 1 entry, got %d", idx, len(entries))
		}
		if entries[0].Message != FallbackFor(idx) {
			t.Errorf("phase %d: expected fallback text, got %q", idx, entries[0].Message)
		}
		if entries[0].Message == "" {
			t.Errorf("phase %d: fallback must never be empty", idx)
		}
	}
}

// upstreamClient adapts the real Anthropic client so dispatch failure can be
// exercised against an actual HTTP 500.
type upstreamClient struct {
	llm *anthropic.Client
}

func (u upstreamClient) Generate(ctx context.Context, prompt string, session Context) (string, error) {
	result, err := u.llm.GenerateGuideText(ctx, prompt, session)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func TestDispatchForPhase_FallbackOnHTTP500(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"type":"api_error","message":"overloaded"}}`)
	}))
	defer server.Close()

	llm := anthropic.NewClient("test-key", "")
	llm.SetTestTransport(server.URL)
	d, store := newTestDispatcher(upstreamClient{llm})

	d.DispatchForPhase(context.Background(), 2)

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 entry, got %d", len(entries))
	}
	if entries[0].Message != FallbackFor(2) {
		t.Errorf("expected phase 2 fallback, got %q", entries[0].Message)
	}
	if entries[0].Speaker != transcript.FacilitatorSpeaker {
		t.Errorf("expected facilitator speaker, got %q", entries[0].Speaker)
	}
}

func TestDispatchForPhase_CancelledContextDiscardsResult(t *testing.T) {
	gen := &fakeGenerator{text: "late response"}
	d, store := newTestDispatcher(gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.DispatchForPhase(ctx, 0)

	if store.Len() != 0 {
		t.Errorf("expected cancelled dispatch to append nothing, got %d entries", store.Len())
	}
	if d.CurrentMessage() != "" {
		t.Errorf("expected no current message, got %q", d.CurrentMessage())
	}
}

func TestDispatchForPhase_PendingFlagScopedToCall(t *testing.T) {
	block := make(chan struct{})
	gen := &fakeGenerator{text: "slow", blockCh: block}
	d, _ := newTestDispatcher(gen)

	done := make(chan struct{})
	go func() {
		d.DispatchForPhase(context.Background(), 0)
		close(done)
	}()

	// Wait for the call to be in flight.
	for i := 0; i < 100 && !d.Pending(); i++ {
		time.Sleep(time.Millisecond)
	}
	if !d.Pending() {
		t.Fatal("expected pending while generation in flight")
	}

	close(block)
	<-done
	if d.Pending() {
		t.Error("expected pending cleared after dispatch")
	}
}

func TestDispatchForPhase_OutOfRangeIndexIsNoop(t *testing.T) {
	gen := &fakeGenerator{text: "text"}
	d, store := newTestDispatcher(gen)
	ctx := context.Background()

	d.DispatchForPhase(ctx, -1)
	d.DispatchForPhase(ctx, 5)

	if gen.callCount() != 0 || store.Len() != 0 {
		t.Errorf("out-of-range dispatch should be a no-op, calls=%d entries=%d", gen.callCount(), store.Len())
	}
}

func TestDispatchForPhase_ContextMetadata(t *testing.T) {
	gen := &fakeGenerator{text: "text"}
	d, _ := newTestDispatcher(gen)

	d.DispatchForPhase(context.Background(), 2)

	if gen.callCount() != 1 {
		t.Fatalf("expected 1 call, got %d", gen.callCount())
	}
	c := gen.calls[0]
	if c.Phase != phase.NameReflection || c.CurrentPhase != 2 {
		t.Errorf("unexpected phase metadata: %+v", c)
	}
	if c.SessionID != "corporate-9am-1748860800000" || c.Participants != 4 {
		t.Errorf("unexpected session metadata: %+v", c)
	}
}
