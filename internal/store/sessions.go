package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mentehub/circled/internal/transcript"
)

// ArchivedSession is the metadata row written for a completed session.
type ArchivedSession struct {
	SessionID   string
	Theme       string
	Mode        string
	StartedAt   time.Time
	CompletedAt time.Time
}

// ArchiveSession writes the completed session and its full transcript in one
// transaction. Tables: sessions, transcript_entries. The transcript is the
// write-once audit trail of the session, archived verbatim in insertion
// order.
func (s *Store) ArchiveSession(ctx context.Context, sess ArchivedSession, entries []transcript.Entry) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	recordID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, session_id, theme, mode, started_at, completed_at, entry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		recordID, sess.SessionID, sess.Theme, sess.Mode, sess.StartedAt, sess.CompletedAt, len(entries),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert session: %w", err)
	}

	for i, e := range entries {
		_, err = tx.Exec(ctx, `
			INSERT INTO transcript_entries (id, session_id, position, speaker, message, phase, spoken_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), recordID, i, e.Speaker, e.Message, e.Phase, e.Timestamp,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}

	return recordID, nil
}
