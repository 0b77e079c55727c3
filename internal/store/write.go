package store

import (
	"context"
	"fmt"

	"github.com/roach88/primdiff/internal/session"
)

// WriteSession records the start of a session epoch.
// Idempotent: writing the same (id, epoch) twice is a no-op.
func (s *Store) WriteSession(ctx context.Context, info session.Info) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, epoch, source, started_seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id, epoch) DO NOTHING
	`, info.ID, info.Epoch, info.Source, info.Seq)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", info.ID, err)
	}
	return nil
}

// WriteFrame appends one accepted frame. The session epoch must already be
// recorded. Idempotent on (session_id, seq).
func (s *Store) WriteFrame(ctx context.Context, rec session.FrameRecord) error {
	delta, err := marshalDelta(rec.Added, rec.Removed)
	if err != nil {
		return err
	}
	raw := rec.Raw
	if raw == nil {
		raw = []byte{}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO frames (session_id, epoch, seq, size, messages, added, removed, raw, delta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		rec.SessionID,
		rec.Epoch,
		rec.Seq,
		len(rec.Raw),
		rec.Messages,
		len(rec.Added),
		len(rec.Removed),
		raw,
		delta,
	)
	if err != nil {
		return fmt.Errorf("insert frame %s/%d: %w", rec.SessionID, rec.Seq, err)
	}
	return nil
}
