package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/primdiff/internal/diff"
	"github.com/roach88/primdiff/internal/hashops"
	"github.com/roach88/primdiff/internal/primitive"
	"github.com/roach88/primdiff/internal/scene"
)

// Info describes a session as recorded and as served by the viewer API.
type Info struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Epoch  int    `json:"epoch"`
	Seq    int64  `json:"seq"`
	Frames int64  `json:"frames"`
	Live   int    `json:"live"`
}

// FrameRecord is one accepted frame as handed to a Recorder.
type FrameRecord struct {
	SessionID string
	Epoch     int
	Seq       int64
	Raw       []byte
	Messages  int
	Added     []hashops.ContentKey
	Removed   []hashops.ContentKey
}

// Recorder persists sessions and their frames for later tracing and replay.
type Recorder interface {
	RecordSession(ctx context.Context, info Info) error
	RecordFrame(ctx context.Context, rec FrameRecord) error
}

// Observer is notified of frame outcomes. Implementations must not block.
type Observer interface {
	FrameDecoded(report Report)
	FrameRejected(code diff.ProtocolErrorCode)
	SessionReset(reason string)
}

// TypeStat is the per-primitive-type breakdown of one frame.
type TypeStat struct {
	Type    string `json:"type"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
	Live    int    `json:"live"`
}

// Report summarizes one accepted frame.
type Report struct {
	SessionID string               `json:"session_id"`
	Seq       int64                `json:"seq"`
	Bytes     int                  `json:"bytes"`
	Messages  int                  `json:"messages"`
	Added     []*scene.Object      `json:"added"`
	Removed   []hashops.ContentKey `json:"removed"`
	Live      int                  `json:"live"`
	Types     []TypeStat           `json:"types"`
	Elapsed   time.Duration        `json:"-"`
}

// Changed reports whether the frame added or removed anything.
func (r Report) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// Session is the consumer-side state of one producer connection.
type Session struct {
	mu sync.Mutex

	id     string
	source string
	epoch  int
	frames int64
	seq    int64

	dispatcher *diff.Dispatcher[*scene.Object]
	scene      *scene.Scene
	materials  *scene.MaterialCache

	clock    SeqClock
	recorder Recorder
	observer Observer
	logger   *slog.Logger

	// recorded is true once the current epoch has been written to the recorder.
	recorded bool
}

// Option configures a Session.
type Option func(*Session) error

// WithRegistry decodes with reg instead of primitive.Default().
func WithRegistry(reg *primitive.Registry) Option {
	return func(s *Session) error {
		if reg == nil {
			return errors.New("registry cannot be nil")
		}
		d, err := diff.NewDispatcher(reg, scene.Builders(s.materials))
		if err != nil {
			return err
		}
		s.dispatcher = d
		return nil
	}
}

// WithID sets the session id. Without it a UUIDv7 is generated.
func WithID(id string) Option {
	return func(s *Session) error {
		if id == "" {
			return errors.New("session id cannot be empty")
		}
		s.id = id
		return nil
	}
}

// WithIDGenerator draws the session id from gen.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Session) error {
		s.id = gen.Generate()
		return nil
	}
}

// WithSource records where frames come from, typically the producer URL.
func WithSource(source string) Option {
	return func(s *Session) error {
		s.source = source
		return nil
	}
}

// WithRecorder records every session epoch and accepted frame.
func WithRecorder(r Recorder) Option {
	return func(s *Session) error {
		s.recorder = r
		return nil
	}
}

// WithObserver reports frame outcomes to o.
func WithObserver(o Observer) Option {
	return func(s *Session) error {
		s.observer = o
		return nil
	}
}

// WithLogger sets the logger. The session adds its own id attribute.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = l
		return nil
	}
}

// WithClock stamps frames from c instead of a fresh Clock.
func WithClock(c SeqClock) Option {
	return func(s *Session) error {
		s.clock = c
		return nil
	}
}

// New creates a session with an empty scene.
func New(opts ...Option) (*Session, error) {
	s := &Session{
		scene:     scene.New(),
		materials: scene.NewMaterialCache(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("session option: %w", err)
		}
	}
	if s.dispatcher == nil {
		d, err := diff.NewDispatcher(primitive.Default(), scene.Builders(s.materials))
		if err != nil {
			return nil, err
		}
		s.dispatcher = d
	}
	if s.id == "" {
		s.id = UUIDv7Generator{}.Generate()
	}
	if s.clock == nil {
		s.clock = NewClock()
	}
	s.logger = s.logger.With("session", s.id)
	return s, nil
}

// HandleFrame decodes buf and applies its delta to the scene.
//
// A ProtocolError rejects the frame: the scene and every live set are left
// as they were and the error is returned for the transport to act on.
// Recorder failures are logged and do not fail the frame.
func (s *Session) HandleFrame(ctx context.Context, buf []byte) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	frame, err := s.dispatcher.Dispatch(buf)
	if err != nil {
		code := diff.CodeOf(err)
		s.logger.Warn("frame rejected", "bytes", len(buf), "code", string(code), "error", err)
		if s.observer != nil {
			s.observer.FrameRejected(code)
		}
		return Report{SessionID: s.id, Seq: s.seq, Bytes: len(buf), Live: s.dispatcher.LiveCount()}, err
	}

	added := frame.Added()
	removed := frame.Removed()
	s.scene.Apply(removed, added)
	s.seq = s.clock.Next()
	s.frames++

	report := Report{
		SessionID: s.id,
		Seq:       s.seq,
		Bytes:     frame.Bytes,
		Messages:  frame.Messages,
		Added:     added,
		Removed:   removed,
		Live:      s.dispatcher.LiveCount(),
		Types:     make([]TypeStat, 0, len(frame.Deltas)),
		Elapsed:   time.Since(start),
	}
	for _, td := range frame.Deltas {
		stat := TypeStat{Type: td.Type.Name, Added: len(td.Added), Removed: len(td.Removed)}
		if dec, ok := s.dispatcher.Decoder(td.Type.ID); ok {
			stat.Live = dec.LiveCount()
		}
		report.Types = append(report.Types, stat)
	}

	if report.Changed() {
		s.logger.Debug("frame applied",
			"seq", report.Seq,
			"bytes", report.Bytes,
			"added", len(added),
			"removed", len(removed),
			"live", report.Live,
		)
	}

	s.record(ctx, buf, report)
	if s.observer != nil {
		s.observer.FrameDecoded(report)
	}
	return report, nil
}

func (s *Session) record(ctx context.Context, buf []byte, report Report) {
	if s.recorder == nil {
		return
	}
	if !s.recorded {
		if err := s.recorder.RecordSession(ctx, s.infoLocked()); err != nil {
			s.logger.Warn("record session failed", "error", err)
			return
		}
		s.recorded = true
	}

	rec := FrameRecord{
		SessionID: s.id,
		Epoch:     s.epoch,
		Seq:       report.Seq,
		Raw:       append([]byte(nil), buf...),
		Messages:  report.Messages,
		Added:     make([]hashops.ContentKey, len(report.Added)),
		Removed:   report.Removed,
	}
	for i, obj := range report.Added {
		rec.Added[i] = obj.Key
	}
	if err := s.recorder.RecordFrame(ctx, rec); err != nil {
		s.logger.Warn("record frame failed", "seq", report.Seq, "error", err)
	}
}

// Reset clears every live set and the scene. The transport calls it when a
// connection opens or closes; the producer resends everything afterwards.
func (s *Session) Reset(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.dispatcher.LiveCount()
	s.dispatcher.Reset()
	s.scene.Reset()
	s.epoch++
	s.recorded = false

	s.logger.Info("session reset", "reason", reason, "epoch", s.epoch, "dropped", live)
	if s.observer != nil {
		s.observer.SessionReset(reason)
	}
}

// Snapshot returns the objects currently in the scene, ordered by key.
func (s *Session) Snapshot() []*scene.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Objects()
}

// Info returns the session's current bookkeeping.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *Session) infoLocked() Info {
	return Info{
		ID:     s.id,
		Source: s.source,
		Epoch:  s.epoch,
		Seq:    s.seq,
		Frames: s.frames,
		Live:   s.dispatcher.LiveCount(),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Seq returns the seq stamped on the last accepted frame.
func (s *Session) Seq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// LiveCount returns the number of live primitives across all types.
func (s *Session) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatcher.LiveCount()
}

// Types returns the primitive types this session decodes.
func (s *Session) Types() []primitive.Type {
	return s.dispatcher.Types()
}
