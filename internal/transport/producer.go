package transport

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// PollMessage is the text message a consumer sends to request a frame.
const PollMessage = "POLL"

// FrameSource yields the frames a producer serves. Next returns io.EOF when
// there are no more frames.
type FrameSource interface {
	Next() ([]byte, error)
}

// StaticFrames serves a fixed list of frames in order, optionally looping.
// Safe for concurrent use.
type StaticFrames struct {
	mu     sync.Mutex
	frames [][]byte
	next   int
	loop   bool
}

// NewStaticFrames creates a source over frames.
func NewStaticFrames(frames [][]byte, loop bool) *StaticFrames {
	return &StaticFrames{frames: frames, loop: loop}
}

// Next returns the next frame.
func (s *StaticFrames) Next() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil, io.EOF
	}
	if s.next >= len(s.frames) {
		if !s.loop {
			return nil, io.EOF
		}
		s.next = 0
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// Producer answers consumer polls over WebSocket.
//
// Every connection gets its own FrameSource from newSource, so a consumer
// that reconnects starts again from the first frame.
type Producer struct {
	newSource func() FrameSource
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewProducer creates a producer handler.
func NewProducer(newSource func() FrameSource, logger *slog.Logger) *Producer {
	return &Producer{
		newSource: newSource,
		upgrader: websocket.Upgrader{
			// The viewer page is served from a different port than the producer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and serves frames until the consumer
// disconnects or the source is exhausted.
func (p *Producer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	p.logger.Info("consumer connected", "remote", r.RemoteAddr)
	src := p.newSource()
	served := 0
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger.Debug("consumer read failed", "remote", r.RemoteAddr, "error", err)
			}
			break
		}
		if mt != websocket.TextMessage || string(msg) != PollMessage {
			p.logger.Debug("ignoring message", "type", mt, "size", len(msg))
			continue
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "no more frames"))
			break
		}
		if err != nil {
			p.logger.Error("frame source failed", "error", err)
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "frame source failed"))
			break
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			p.logger.Debug("consumer write failed", "remote", r.RemoteAddr, "error", err)
			break
		}
		served++
	}
	p.logger.Info("consumer disconnected", "remote", r.RemoteAddr, "frames", served)
}
