package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/primdiff/internal/diff"
	"github.com/roach88/primdiff/internal/hashops"
	"github.com/roach88/primdiff/internal/logging"
	"github.com/roach88/primdiff/internal/primitive"
	"github.com/roach88/primdiff/internal/session"
	"github.com/roach88/primdiff/internal/testutil"
)

// Harness runs scenarios against a consumer session with a deterministic
// clock and a fixed session id.
type Harness struct {
	registry *primitive.Registry
	logger   *slog.Logger
	recorder session.Recorder
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes session logs to l. Scenarios are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithRecorder records every frame the scenario sends.
func WithRecorder(r session.Recorder) Option {
	return func(h *Harness) { h.recorder = r }
}

// New creates a harness using the default primitive registry.
func New(opts ...Option) *Harness {
	h := &Harness{
		registry: primitive.Default(),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run sends every frame of scenario to a fresh session and checks each
// frame's expect clause, then the final clause.
//
// Protocol errors are part of the trace, not failures of Run; an error is
// returned only when the scenario cannot be executed at all.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	opts := []session.Option{
		session.WithRegistry(h.registry),
		session.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.Session)),
		session.WithClock(testutil.NewDeterministicClock()),
		session.WithSource("scenario:" + scenario.Name),
		session.WithLogger(h.logger),
	}
	if h.recorder != nil {
		opts = append(opts, session.WithRecorder(h.recorder))
	}
	sess, err := session.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	result := NewResult()
	result.SessionID = sess.ID()

	for i, step := range scenario.Frames {
		if step.Reset != "" {
			sess.Reset(step.Reset)
			result.AddEvent(TraceEvent{
				Type:   EventReset,
				Frame:  i,
				Seq:    sess.Seq(),
				Reason: step.Reset,
			})
		}

		buf, err := scenario.Encode(h.registry, i)
		if err != nil {
			return nil, fmt.Errorf("failed to encode frame: %w", err)
		}

		report, err := sess.HandleFrame(ctx, buf)
		if err != nil && !diff.IsProtocolError(err) {
			return nil, fmt.Errorf("frame[%d]: %w", i, err)
		}
		ev := traceEvent(i, report, err)
		result.AddEvent(ev)

		if step.Expect != nil {
			for _, aerr := range checkExpect(i, step.Expect, ev) {
				result.AddError(aerr.Error())
			}
		}
	}

	for _, obj := range sess.Snapshot() {
		result.Scene = append(result.Scene, SceneEntry{Key: obj.Key.String(), Type: obj.Type})
	}
	if scenario.Final != nil {
		for _, aerr := range checkFinal(scenario.Final, result) {
			result.AddError(aerr.Error())
		}
	}
	return result, nil
}

func traceEvent(frame int, report session.Report, err error) TraceEvent {
	if err != nil {
		return TraceEvent{
			Type:  EventReject,
			Frame: frame,
			Seq:   report.Seq,
			Bytes: report.Bytes,
			Live:  report.Live,
			Error: string(diff.CodeOf(err)),
		}
	}

	ev := TraceEvent{
		Type:     EventFrame,
		Frame:    frame,
		Seq:      report.Seq,
		Bytes:    report.Bytes,
		Messages: report.Messages,
		Live:     report.Live,
	}
	for _, obj := range report.Added {
		ev.Added = append(ev.Added, obj.Key.String())
	}
	ev.Removed = keyStrings(report.Removed)
	return ev
}

func keyStrings(keys []hashops.ContentKey) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
