package store

import (
	"context"
	"errors"
	"testing"
)

func TestListSessions_Empty(t *testing.T) {
	s := createTestStore(t)

	sessions, err := s.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	if sessions == nil || len(sessions) != 0 {
		t.Errorf("ListSessions() = %v, want empty non-nil slice", sessions)
	}
}

func TestListSessions_CountsFramesPerEpoch(t *testing.T) {
	s := createTestStore(t)
	buf := mustFrame(t, testBox(1))

	sess := recordSession(t, s, "s-1", buf, buf)
	sess.Reset("reconnect")
	if _, err := sess.HandleFrame(context.Background(), buf); err != nil {
		t.Fatalf("HandleFrame() failed: %v", err)
	}

	sessions, err := s.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].Epoch != 0 || sessions[0].Frames != 2 || sessions[0].StartedSeq != 1 {
		t.Errorf("epoch 0 = %+v", sessions[0])
	}
	if sessions[1].Epoch != 1 || sessions[1].Frames != 1 || sessions[1].StartedSeq != 3 {
		t.Errorf("epoch 1 = %+v", sessions[1])
	}
}

func TestLatestSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestSession(ctx); !errors.Is(err, ErrNoSessions) {
		t.Fatalf("LatestSession() on empty store = %v, want ErrNoSessions", err)
	}

	buf := mustFrame(t, testBox(1))
	recordSession(t, s, "first", buf)
	recordSession(t, s, "second", buf)

	id, err := s.LatestSession(ctx)
	if err != nil {
		t.Fatalf("LatestSession() failed: %v", err)
	}
	if id != "second" {
		t.Errorf("LatestSession() = %q, want %q", id, "second")
	}
}

func TestReadFrames_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	a, b := testBox(1), testBox(2)

	recordSession(t, s, "s-1",
		mustFrame(t, a),
		mustFrame(t, a, b),
		mustFrame(t, b),
	)

	frames, err := s.ReadFrames(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("ReadFrames() failed: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	for i, f := range frames {
		if f.Seq != int64(i+1) {
			t.Errorf("frames[%d].Seq = %d, want %d", i, f.Seq, i+1)
		}
	}
	if len(frames[1].Added) != 1 || frames[1].Added[0] != keyOf(t, b) {
		t.Errorf("frame 2 added = %v, want [%s]", frames[1].Added, keyOf(t, b))
	}
	if len(frames[2].Removed) != 1 || frames[2].Removed[0] != keyOf(t, a) {
		t.Errorf("frame 3 removed = %v, want [%s]", frames[2].Removed, keyOf(t, a))
	}
}

func TestReadFrames_UnknownSession(t *testing.T) {
	s := createTestStore(t)

	frames, err := s.ReadFrames(context.Background(), "nope")
	if err != nil {
		t.Fatalf("ReadFrames() failed: %v", err)
	}
	if frames == nil || len(frames) != 0 {
		t.Errorf("ReadFrames() = %v, want empty non-nil slice", frames)
	}
}
