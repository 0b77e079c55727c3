package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/primdiff/internal/diff"
	"github.com/roach88/primdiff/internal/hashops"
	"github.com/roach88/primdiff/internal/primitive"
)

// Mismatch describes a recorded frame whose recomputed delta differs.
type Mismatch struct {
	Seq    int64  `json:"seq"`
	Reason string `json:"reason"`
}

// ReplayResult is the outcome of re-decoding a recorded session.
type ReplayResult struct {
	SessionID  string     `json:"session_id"`
	Frames     int        `json:"frames"`
	Epochs     int        `json:"epochs"`
	Mismatches []Mismatch `json:"mismatches"`
}

// Deterministic reports whether every frame reproduced its recorded delta.
func (r ReplayResult) Deterministic() bool {
	return len(r.Mismatches) == 0
}

// ReplaySession re-decodes every recorded frame of a session through a fresh
// dispatcher and compares each recomputed delta with the recorded one.
//
// The dispatcher is reset whenever the epoch changes, mirroring the session
// reset that started the epoch.
func (s *Store) ReplaySession(ctx context.Context, sessionID string, reg *primitive.Registry) (ReplayResult, error) {
	result := ReplayResult{SessionID: sessionID, Mismatches: []Mismatch{}}

	frames, err := s.ReadFrames(ctx, sessionID)
	if err != nil {
		return result, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	builders := make(map[primitive.Kind]diff.GeometryBuilder[hashops.ContentKey])
	for _, t := range reg.Known() {
		builders[t.ID] = keyOnly
	}
	d, err := diff.NewDispatcher(reg, builders)
	if err != nil {
		return result, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	epoch := -1
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if f.Epoch != epoch {
			d.Reset()
			epoch = f.Epoch
			result.Epochs++
		}
		result.Frames++

		frame, err := d.Dispatch(f.Raw)
		if err != nil {
			result.Mismatches = append(result.Mismatches, Mismatch{
				Seq:    f.Seq,
				Reason: fmt.Sprintf("recorded frame no longer decodes: %v", err),
			})
			continue
		}
		if added := frame.Added(); !slices.Equal(added, f.Added) {
			result.Mismatches = append(result.Mismatches, Mismatch{
				Seq:    f.Seq,
				Reason: fmt.Sprintf("added keys differ (recorded %d, replayed %d)", len(f.Added), len(added)),
			})
			continue
		}
		if removed := frame.Removed(); !slices.Equal(removed, f.Removed) {
			result.Mismatches = append(result.Mismatches, Mismatch{
				Seq:    f.Seq,
				Reason: fmt.Sprintf("removed keys differ (recorded %d, replayed %d)", len(f.Removed), len(removed)),
			})
		}
	}
	return result, nil
}

func keyOnly(key hashops.ContentKey, _ []float32, _ int32) hashops.ContentKey {
	return key
}
