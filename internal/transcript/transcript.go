package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/mentehub/circled/internal/clock"
)

// FacilitatorSpeaker is the identity under which all generated (or fallback)
// facilitator text is recorded.
const FacilitatorSpeaker = "AI Guide"

// Entry is a single spoken or generated line. Entries are write-once: the
// store never mutates or removes them, so the log doubles as the audit trail
// for the end-of-session artifact.
type Entry struct {
	Speaker   string    `json:"speaker"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Phase     string    `json:"phase"`
}

// Store is the append-only log of everything said in one session. Timer
// goroutines share it, so appends and reads are mutex-guarded; display order
// is insertion order, which preserves chronology since timestamps are taken
// at append time.
type Store struct {
	clk clock.Clock

	mu      sync.Mutex
	entries []Entry
	subs    []func(Entry)
}

func NewStore(clk clock.Clock) *Store {
	return &Store{clk: clk}
}

// Subscribe registers an observer called after every successful append.
// Observers run outside the store lock; presentation projections and event
// publishers hang off this hook so the log itself stays free of them.
func (s *Store) Subscribe(fn func(Entry)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Append records a line. Empty or whitespace-only messages are dropped
// silently — a no-op, not an error — so failed upstream text can never
// produce an empty entry.
func (s *Store) Append(speaker, message, phaseName string) {
	if strings.TrimSpace(message) == "" {
		return
	}

	entry := Entry{
		Speaker:   speaker,
		Message:   message,
		Timestamp: s.clk.Now(),
		Phase:     phaseName,
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(entry)
	}
}

// Len is the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of the full log in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// EntriesSince returns a copy of the entries from index i onward.
func (s *Store) EntriesSince(i int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 {
		i = 0
	}
	if i >= len(s.entries) {
		return nil
	}
	return append([]Entry(nil), s.entries[i:]...)
}

// Latest returns a copy of the last n entries.
func (s *Store) Latest(n int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return nil
	}
	if n > len(s.entries) {
		n = len(s.entries)
	}
	return append([]Entry(nil), s.entries[len(s.entries)-n:]...)
}

// HasSpokenInPhase reports whether the speaker already has an entry in the
// named phase. Derived by scanning the log rather than tracked separately,
// so it can never diverge from the transcript. O(n) is fine at session scale.
func (s *Store) HasSpokenInPhase(speaker, phaseName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Speaker == speaker && e.Phase == phaseName {
			return true
		}
	}
	return false
}

// Shares returns a copy of all non-facilitator entries, optionally limited to
// one phase (empty phaseName means all phases).
func (s *Store) Shares(phaseName string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Speaker == FacilitatorSpeaker {
			continue
		}
		if phaseName != "" && e.Phase != phaseName {
			continue
		}
		out = append(out, e)
	}
	return out
}

// LatestShares returns the last n non-facilitator entries across all phases.
func (s *Store) LatestShares(n int) []Entry {
	shares := s.Shares("")
	if n <= 0 || n >= len(shares) {
		return shares
	}
	return shares[len(shares)-n:]
}
