package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/primdiff/internal/hashops"
)

// ErrNoSessions is returned by LatestSession on an empty store.
var ErrNoSessions = errors.New("no recorded sessions")

// SessionSummary is one recorded session epoch.
type SessionSummary struct {
	ID         string `json:"id"`
	Epoch      int    `json:"epoch"`
	Source     string `json:"source"`
	StartedSeq int64  `json:"started_seq"`
	Frames     int    `json:"frames"`
}

// Frame is one recorded frame.
type Frame struct {
	SessionID string               `json:"session_id"`
	Epoch     int                  `json:"epoch"`
	Seq       int64                `json:"seq"`
	Size      int                  `json:"size"`
	Messages  int                  `json:"messages"`
	Added     []hashops.ContentKey `json:"added"`
	Removed   []hashops.ContentKey `json:"removed"`
	Raw       []byte               `json:"-"`
}

// ListSessions returns every recorded session epoch in recording order.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.epoch, s.source, s.started_seq,
		       (SELECT COUNT(*) FROM frames f WHERE f.session_id = s.id AND f.epoch = s.epoch)
		FROM sessions s
		ORDER BY s.rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionSummary{}
	for rows.Next() {
		var ss SessionSummary
		if err := rows.Scan(&ss.ID, &ss.Epoch, &ss.Source, &ss.StartedSeq, &ss.Frames); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LatestSession returns the id of the most recently recorded session.
func (s *Store) LatestSession(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sessions ORDER BY rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSessions
	}
	if err != nil {
		return "", fmt.Errorf("query latest session: %w", err)
	}
	return id, nil
}

// ReadFrames returns every frame of a session ordered by seq.
//
// Returns an empty slice (not nil) if the session has no frames.
func (s *Store) ReadFrames(ctx context.Context, sessionID string) ([]Frame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, epoch, seq, size, messages, raw, delta
		FROM frames
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	frames := []Frame{}
	for rows.Next() {
		var (
			f     Frame
			delta []byte
		)
		if err := rows.Scan(&f.SessionID, &f.Epoch, &f.Seq, &f.Size, &f.Messages, &f.Raw, &delta); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		f.Added, f.Removed, err = unmarshalDelta(delta)
		if err != nil {
			return nil, fmt.Errorf("frame %s/%d: %w", f.SessionID, f.Seq, err)
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}
