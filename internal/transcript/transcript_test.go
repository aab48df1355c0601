package transcript

import (
	"testing"
	"time"

	"github.com/mentehub/circled/internal/clock"
)

func newTestStore() (*Store, *clock.Mock) {
	clk := clock.NewMock(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	return NewStore(clk), clk
}

func TestAppend_DropsEmptyMessages(t *testing.T) {
	s, _ := newTestStore()

	s.Append(FacilitatorSpeaker, "Welcome", "Induction")
	s.Append(FacilitatorSpeaker, "", "Induction")
	s.Append(FacilitatorSpeaker, "   \t\n", "Induction")

	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
	if got := s.Entries()[0].Message; got != "Welcome" {
		t.Errorf("expected Welcome, got %q", got)
	}
}

func TestAppend_RecordsTimestampAndPhase(t *testing.T) {
	s, clk := newTestStore()

	s.Append("Sarah Chen", "first", "Circle Reflection")
	clk.Advance(30 * time.Second)
	s.Append("Marcus Williams", "second", "Circle Reflection")

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[1].Timestamp.After(entries[0].Timestamp) {
		t.Errorf("timestamps not monotonic: %v then %v", entries[0].Timestamp, entries[1].Timestamp)
	}
	if entries[0].Phase != "Circle Reflection" {
		t.Errorf("expected phase recorded, got %q", entries[0].Phase)
	}
}

func TestHasSpokenInPhase(t *testing.T) {
	s, _ := newTestStore()

	s.Append("Sarah Chen", "a share", "Circle Reflection")

	if !s.HasSpokenInPhase("Sarah Chen", "Circle Reflection") {
		t.Error("expected Sarah Chen to have spoken in Circle Reflection")
	}
	if s.HasSpokenInPhase("Sarah Chen", "Weaving") {
		t.Error("did not expect Sarah Chen to have spoken in Weaving")
	}
	if s.HasSpokenInPhase("Marcus Williams", "Circle Reflection") {
		t.Error("did not expect Marcus Williams to have spoken")
	}
}

func TestShares_FiltersFacilitatorAndPhase(t *testing.T) {
	s, _ := newTestStore()

	s.Append(FacilitatorSpeaker, "welcome", "Induction")
	s.Append("Sarah Chen", "share one", "Circle Reflection")
	s.Append(FacilitatorSpeaker, "acknowledged", "Circle Reflection")
	s.Append("Marcus Williams", "share two", "Circle Reflection")
	s.Append("Zoe Park", "late thought", "Weaving")

	all := s.Shares("")
	if len(all) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(all))
	}

	reflection := s.Shares("Circle Reflection")
	if len(reflection) != 2 {
		t.Fatalf("expected 2 reflection shares, got %d", len(reflection))
	}
	if reflection[0].Speaker != "Sarah Chen" || reflection[1].Speaker != "Marcus Williams" {
		t.Errorf("unexpected reflection shares: %+v", reflection)
	}
}

func TestLatestShares(t *testing.T) {
	s, _ := newTestStore()

	s.Append("Sarah Chen", "one", "Circle Reflection")
	s.Append("Marcus Williams", "two", "Circle Reflection")
	s.Append("Zoe Park", "three", "Circle Reflection")

	last2 := s.LatestShares(2)
	if len(last2) != 2 {
		t.Fatalf("expected 2, got %d", len(last2))
	}
	if last2[0].Message != "two" || last2[1].Message != "three" {
		t.Errorf("unexpected latest shares: %+v", last2)
	}

	if got := s.LatestShares(10); len(got) != 3 {
		t.Errorf("expected all 3 when n exceeds length, got %d", len(got))
	}
}

func TestLatestAndSince(t *testing.T) {
	s, _ := newTestStore()

	s.Append("a", "1", "Induction")
	s.Append("b", "2", "Induction")
	s.Append("c", "3", "Induction")

	if got := s.Latest(2); len(got) != 2 || got[0].Message != "2" {
		t.Errorf("Latest(2) unexpected: %+v", got)
	}
	if got := s.EntriesSince(1); len(got) != 2 || got[0].Message != "2" {
		t.Errorf("EntriesSince(1) unexpected: %+v", got)
	}
	if got := s.EntriesSince(5); got != nil {
		t.Errorf("EntriesSince past end should be nil, got %+v", got)
	}
}

func TestSubscribe_NotifiedOnAppend(t *testing.T) {
	s, _ := newTestStore()

	var seen []Entry
	s.Subscribe(func(e Entry) { seen = append(seen, e) })

	s.Append("Sarah Chen", "hello", "Induction")
	s.Append("Sarah Chen", "", "Induction") // dropped, no notification

	if len(seen) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(seen))
	}
	if seen[0].Message != "hello" {
		t.Errorf("unexpected notification: %+v", seen[0])
	}
}
