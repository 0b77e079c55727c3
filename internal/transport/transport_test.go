package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/primdiff/internal/primitive"
	"github.com/roach88/primdiff/internal/session"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func encodeBoxes(t *testing.T, xs ...float32) []byte {
	t.Helper()
	msgs := make([]primitive.Message, len(xs))
	for i, x := range xs {
		msgs[i] = primitive.Message{Kind: primitive.Box, Material: 1, Payload: []float32{x, 0, 0, 0, 0, 0, 1, 1, 1}}
	}
	buf, err := primitive.EncodeFrame(primitive.Default(), msgs...)
	require.NoError(t, err)
	return buf
}

func fastPoller(url string, h FrameHandler, opts ...PollerOption) *Poller {
	cfg := PollerConfig{
		URL:      url,
		Interval: 5 * time.Millisecond,
		Backoff:  BackoffConfig{InitialDelay: 5 * time.Millisecond, Multiplier: 1},
	}
	return NewPoller(cfg, h, append([]PollerOption{WithPollerLogger(discard())}, opts...)...)
}

// recordingHandler records resets and frames, failing frames on demand.
type recordingHandler struct {
	mu     sync.Mutex
	resets []string
	frames int
	fail   error
}

func (h *recordingHandler) HandleFrame(_ context.Context, buf []byte) (session.Report, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames++
	if h.fail != nil {
		return session.Report{}, h.fail
	}
	return session.Report{Bytes: len(buf)}, nil
}

func (h *recordingHandler) Reset(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resets = append(h.resets, reason)
}

func (h *recordingHandler) snapshot() ([]string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.resets...), h.frames
}

func TestStaticFrames(t *testing.T) {
	src := NewStaticFrames([][]byte{{1}, {2}}, false)
	f, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, f)
	f, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, f)
	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)

	loop := NewStaticFrames([][]byte{{1}, {2}}, true)
	for i := 0; i < 5; i++ {
		_, err := loop.Next()
		require.NoError(t, err)
	}

	_, err = NewStaticFrames(nil, true).Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestProducer_AnswersPolls(t *testing.T) {
	frames := [][]byte{{0, 0, 0, 1}, {0, 0, 0, 2}}
	srv := httptest.NewServer(NewProducer(func() FrameSource { return NewStaticFrames(frames, false) }, discard()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	// Non-poll messages are ignored.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("HELLO")))

	for _, want := range frames {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(PollMessage)))
		mt, got, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, mt)
		assert.Equal(t, want, got)
	}

	// Exhausted source closes the connection normally.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(PollMessage)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestPoller_FeedsSession(t *testing.T) {
	a, b := encodeBoxes(t, 1, 2), encodeBoxes(t, 2, 3, 4)
	srv := httptest.NewServer(NewProducer(func() FrameSource {
		return NewStaticFrames([][]byte{a, b}, true)
	}, discard()))
	defer srv.Close()

	sess, err := session.New(session.WithID("poll"), session.WithLogger(discard()))
	require.NoError(t, err)

	var mu sync.Mutex
	var reports []session.Report
	p := fastPoller(wsURL(srv), sess, WithReportFunc(func(r session.Report) {
		mu.Lock()
		defer mu.Unlock()
		reports = append(reports, r)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reports) >= 4
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, reports[0].Added, 2)
	assert.Len(t, reports[1].Added, 2)
	assert.Len(t, reports[1].Removed, 1)
	assert.Equal(t, 0, sess.LiveCount(), "session is reset on disconnect")
}

func TestPoller_ProtocolErrorDropsConnection(t *testing.T) {
	bad := []byte{0, 0, 0, 99}
	srv := httptest.NewServer(NewProducer(func() FrameSource {
		return NewStaticFrames([][]byte{bad}, true)
	}, discard()))
	defer srv.Close()

	sess, err := session.New(session.WithID("bad"), session.WithLogger(discard()))
	require.NoError(t, err)

	rec := &resetCounter{Session: sess}
	p := fastPoller(wsURL(srv), rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Each dropped connection produces a connect and a disconnect reset.
	require.Eventually(t, func() bool { return rec.count() >= 4 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestPoller_ReconnectsAfterDialFailure(t *testing.T) {
	h := &recordingHandler{}
	p := fastPoller("ws://127.0.0.1:1", h)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, p.Run(ctx))

	resets, frames := h.snapshot()
	assert.Empty(t, resets, "no connection means no session resets")
	assert.Equal(t, 0, frames)
}

func TestPoller_ResetsAroundConnection(t *testing.T) {
	srv := httptest.NewServer(NewProducer(func() FrameSource {
		return NewStaticFrames([][]byte{encodeBoxes(t, 1)}, false)
	}, discard()))
	defer srv.Close()

	h := &recordingHandler{}
	p := fastPoller(wsURL(srv), h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		resets, _ := h.snapshot()
		return len(resets) >= 2
	}, 5*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	resets, frames := h.snapshot()
	assert.Equal(t, "connect", resets[0])
	assert.Equal(t, "disconnect", resets[1])
	assert.GreaterOrEqual(t, frames, 1)
}

type resetCounter struct {
	*session.Session
	mu     sync.Mutex
	resets int
}

func (r *resetCounter) Reset(reason string) {
	r.mu.Lock()
	r.resets++
	r.mu.Unlock()
	r.Session.Reset(reason)
}

func (r *resetCounter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}
