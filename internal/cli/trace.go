package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/primdiff/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional - defaults to the latest session
	Changed  bool   // only frames that added or removed something
}

// TraceResult holds the frame timeline of one session.
type TraceResult struct {
	SessionID string        `json:"session_id"`
	Frames    []store.Frame `json:"frames"`
	Stats     TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalFrames int   `json:"total_frames"`
	Epochs      int   `json:"epochs"`
	Added       int   `json:"added"`
	Removed     int   `json:"removed"`
	Bytes       int64 `json:"bytes"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List the recorded frames of a session",
		Long: `List the recorded frames of a session in seq order with the keys each
frame added and removed.

Without --session the most recently recorded session is shown.

Examples:
  primdiff trace --db ./frames.db
  primdiff trace --db ./frames.db --session 0192f1c4-... --changed
  primdiff trace --db ./frames.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to trace (default: latest)")
	cmd.Flags().BoolVar(&opts.Changed, "changed", false, "only show frames that changed the scene")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	id := opts.Session
	if id == "" {
		id, err = st.LatestSession(ctx)
		if errors.Is(err, store.ErrNoSessions) {
			return NewExitError(ExitCommandError, "no sessions recorded in database")
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find latest session", err)
		}
	}

	frames, err := st.ReadFrames(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read frames", err)
	}
	if len(frames) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", id))
	}

	result := buildTrace(id, frames, opts.Changed)
	if opts.Format == "json" {
		return opts.formatter(cmd).Respond(CLIResponse{Status: "ok", Data: result, SessionID: id})
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

// buildTrace computes stats over every frame; changedOnly filters only the
// listed frames.
func buildTrace(id string, frames []store.Frame, changedOnly bool) TraceResult {
	result := TraceResult{SessionID: id, Frames: make([]store.Frame, 0, len(frames))}
	epochs := make(map[int]bool)
	for _, f := range frames {
		epochs[f.Epoch] = true
		result.Stats.TotalFrames++
		result.Stats.Added += len(f.Added)
		result.Stats.Removed += len(f.Removed)
		result.Stats.Bytes += int64(f.Size)

		if changedOnly && len(f.Added) == 0 && len(f.Removed) == 0 {
			continue
		}
		result.Frames = append(result.Frames, f)
	}
	result.Stats.Epochs = len(epochs)
	return result
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Session: %s\n", result.SessionID)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Timeline:")
	for _, f := range result.Frames {
		fmt.Fprintf(w, "  [seq=%d epoch=%d] %d bytes, %d message(s), +%d -%d\n",
			f.Seq, f.Epoch, f.Size, f.Messages, len(f.Added), len(f.Removed))
		if verbose {
			for _, k := range f.Added {
				fmt.Fprintf(w, "    + %s\n", k)
			}
			for _, k := range f.Removed {
				fmt.Fprintf(w, "    - %s\n", k)
			}
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Stats:")
	fmt.Fprintf(w, "  Frames: %d in %d epoch(s)\n", result.Stats.TotalFrames, result.Stats.Epochs)
	fmt.Fprintf(w, "  Added: %d, Removed: %d\n", result.Stats.Added, result.Stats.Removed)
	fmt.Fprintf(w, "  Bytes: %d\n", result.Stats.Bytes)
}
