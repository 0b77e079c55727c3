package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/primdiff/internal/hashops"
	"github.com/roach88/primdiff/internal/primitive"
	"github.com/roach88/primdiff/internal/session"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testBox(x float32) primitive.Message {
	return primitive.Message{Kind: primitive.Box, Material: 7, Payload: []float32{x, 0, 0, 0, 0, 0, 1, 1, 1}}
}

func mustFrame(t *testing.T, msgs ...primitive.Message) []byte {
	t.Helper()
	buf, err := primitive.EncodeFrame(primitive.Default(), msgs...)
	if err != nil {
		t.Fatalf("EncodeFrame() failed: %v", err)
	}
	return buf
}

func keyOf(t *testing.T, m primitive.Message) hashops.ContentKey {
	t.Helper()
	buf := mustFrame(t, m)
	return hashops.Bytes(buf, 0, len(buf))
}

// recordSession drives a real session over frames with the store attached.
func recordSession(t *testing.T, st *Store, id string, frames ...[]byte) *session.Session {
	t.Helper()
	sess, err := session.New(session.WithID(id), session.WithRecorder(st), session.WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("session.New() failed: %v", err)
	}
	for i, buf := range frames {
		if _, err := sess.HandleFrame(context.Background(), buf); err != nil {
			t.Fatalf("HandleFrame(%d) failed: %v", i, err)
		}
	}
	return sess
}
