package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/primdiff/internal/diff"
	"github.com/roach88/primdiff/internal/session"
)

// FrameHandler consumes frames. *session.Session implements it.
type FrameHandler interface {
	HandleFrame(ctx context.Context, buf []byte) (session.Report, error)
	Reset(reason string)
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	URL              string
	Interval         time.Duration
	HandshakeTimeout time.Duration
	Backoff          BackoffConfig
}

// Poller is the consumer side of the transport.
type Poller struct {
	cfg      PollerConfig
	handler  FrameHandler
	dialer   *websocket.Dialer
	logger   *slog.Logger
	rng      *rand.Rand
	onReport func(session.Report)
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollerLogger sets the logger.
func WithPollerLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) { p.logger = l }
}

// WithReportFunc calls fn after every accepted frame, from the read goroutine.
func WithReportFunc(fn func(session.Report)) PollerOption {
	return func(p *Poller) { p.onReport = fn }
}

// WithRand sets the jitter source. Tests pass a seeded generator.
func WithRand(rng *rand.Rand) PollerOption {
	return func(p *Poller) { p.rng = rng }
}

// NewPoller creates a poller feeding handler.
func NewPoller(cfg PollerConfig, handler FrameHandler, opts ...PollerOption) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	p := &Poller{
		cfg:     cfg,
		handler: handler,
		logger:  slog.Default(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.dialer = &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	return p
}

// Run polls until ctx is cancelled, reconnecting after every failure.
// It returns nil when ctx ends.
func (p *Poller) Run(ctx context.Context) error {
	attempt := 0
	for {
		connected, err := p.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			attempt = 0
		}
		attempt++
		delay := NextBackoffDelay(p.cfg.Backoff, attempt, p.rng)
		p.logger.Warn("producer connection lost", "url", p.cfg.URL, "attempt", attempt, "retry_in", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// runOnce handles a single connection. connected reports whether the dial
// succeeded, which resets the backoff.
func (p *Poller) runOnce(ctx context.Context) (connected bool, err error) {
	conn, _, err := p.dialer.DialContext(ctx, p.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", p.cfg.URL, err)
	}

	p.handler.Reset("connect")
	p.logger.Info("connected to producer", "url", p.cfg.URL)

	readErr := make(chan error, 1)
	go func() { readErr <- p.readLoop(ctx, conn) }()

	// The reader must be gone before the final reset, or a late frame could
	// repopulate the session after it was cleared.
	readerDone := false
	defer func() {
		conn.Close()
		if !readerDone {
			<-readErr
		}
		p.handler.Reset("disconnect")
	}()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(PollMessage)); err != nil {
		return true, fmt.Errorf("send poll: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return true, ctx.Err()
		case err := <-readErr:
			readerDone = true
			return true, err
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(PollMessage)); err != nil {
				return true, fmt.Errorf("send poll: %w", err)
			}
		}
	}
}

// readLoop feeds binary messages to the handler until the connection fails.
// A protocol error ends the connection: the stream is desynchronized and
// only a fresh session can recover.
func (p *Poller) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		report, err := p.handler.HandleFrame(ctx, data)
		if err != nil {
			if diff.IsProtocolError(err) {
				return fmt.Errorf("dropping connection: %w", err)
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Warn("frame not handled", "error", err)
			continue
		}
		if p.onReport != nil {
			p.onReport(report)
		}
	}
}
