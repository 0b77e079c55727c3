package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/primdiff/internal/diff"
	"github.com/roach88/primdiff/internal/session"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Database string
}

// FrameSummary is the outcome of one decoded frame.
type FrameSummary struct {
	Index    int                `json:"index"`
	Seq      int64              `json:"seq"`
	Bytes    int                `json:"bytes"`
	Messages int                `json:"messages"`
	Added    int                `json:"added"`
	Removed  int                `json:"removed"`
	Live     int                `json:"live"`
	Types    []session.TypeStat `json:"types,omitempty"`
	Error    string             `json:"error,omitempty"`
	Code     string             `json:"code,omitempty"`
}

// DecodeResult holds the outcome of decoding a whole capture.
type DecodeResult struct {
	SessionID string         `json:"session_id"`
	Frames    []FrameSummary `json:"frames"`
	Accepted  int            `json:"accepted"`
	Rejected  int            `json:"rejected"`
	Live      int            `json:"live"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <capture|scenario>",
		Short: "Decode a capture frame by frame",
		Long: `Feed every frame of a capture file (or a scenario) through one session
and print the delta each frame produced.

Rejected frames are reported and skipped; the session keeps the scene of
the last accepted frame, as a live consumer would until it reconnects.

Exit codes:
  0 - Every frame was accepted
  1 - One or more frames were rejected
  2 - Command error (unreadable capture, etc.)

Examples:
  primdiff decode session.cap
  primdiff decode session.cap --db frames.db
  primdiff decode scenario.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record decoded frames to this SQLite database")

	return cmd
}

func runDecode(opts *DecodeOptions, path string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := opts.newLogger(cmd, cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	frames, err := loadFrames(path)
	if err != nil {
		return err
	}

	sessOpts := []session.Option{
		session.WithSource("capture:" + path),
		session.WithLogger(logger),
	}
	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		sessOpts = append(sessOpts, session.WithRecorder(st))
	}
	sess, err := session.New(sessOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create session", err)
	}

	result := DecodeResult{
		SessionID: sess.ID(),
		Frames:    make([]FrameSummary, 0, len(frames)),
	}
	for i, buf := range frames {
		report, err := sess.HandleFrame(cmd.Context(), buf)
		summary := FrameSummary{
			Index:    i,
			Seq:      report.Seq,
			Bytes:    report.Bytes,
			Messages: report.Messages,
			Added:    len(report.Added),
			Removed:  len(report.Removed),
			Live:     report.Live,
			Types:    report.Types,
		}
		switch {
		case err == nil:
			result.Accepted++
		case diff.IsProtocolError(err):
			summary.Error = err.Error()
			summary.Code = string(diff.CodeOf(err))
			result.Rejected++
		default:
			return WrapExitError(ExitCommandError, fmt.Sprintf("frame %d", i), err)
		}
		result.Frames = append(result.Frames, summary)
	}
	result.Live = sess.LiveCount()

	if opts.Format == "json" {
		return outputDecodeJSON(opts.formatter(cmd), result)
	}
	return outputDecodeText(cmd.OutOrStdout(), result)
}

func outputDecodeJSON(f *OutputFormatter, result DecodeResult) error {
	resp := CLIResponse{Status: "ok", Data: result, SessionID: result.SessionID}
	if result.Rejected > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_REJECTED",
			Message: fmt.Sprintf("%d frame(s) rejected", result.Rejected),
		}
	}
	return f.Respond(resp)
}

func outputDecodeText(w io.Writer, result DecodeResult) error {
	for _, fr := range result.Frames {
		if fr.Error != "" {
			fmt.Fprintf(w, "✗ frame %d rejected: %s\n", fr.Index, fr.Error)
			continue
		}
		fmt.Fprintf(w, "✓ frame %d seq=%d bytes=%d +%d -%d live=%d%s\n",
			fr.Index, fr.Seq, fr.Bytes, fr.Added, fr.Removed, fr.Live, formatTypeStats(fr.Types))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Decode Summary: %d accepted, %d rejected, %d live\n", result.Accepted, result.Rejected, result.Live)
	if result.Rejected > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d frame(s) rejected", result.Rejected))
	}
	return nil
}

// formatTypeStats lists the types a frame touched, e.g. "  Box +1  Sphere -2".
func formatTypeStats(stats []session.TypeStat) string {
	var b strings.Builder
	for _, st := range stats {
		if st.Added == 0 && st.Removed == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s", typeTitle(st.Type))
		if st.Added > 0 {
			fmt.Fprintf(&b, " +%d", st.Added)
		}
		if st.Removed > 0 {
			fmt.Fprintf(&b, " -%d", st.Removed)
		}
	}
	return b.String()
}
