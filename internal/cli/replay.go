package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/primdiff/internal/primitive"
	"github.com/roach88/primdiff/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplayReport holds the overall replay result.
type ReplayReport struct {
	Sessions         []store.ReplayResult `json:"sessions"`
	TotalSessions    int                  `json:"total_sessions"`
	AllDeterministic bool                 `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-decode recorded sessions and verify determinism",
		Long: `Re-decode every recorded frame through a fresh decoder and compare the
recomputed delta with the one recorded when the frame was received.

Exit codes:
  0 - Every frame reproduced its recorded delta
  1 - Determinism verification failed (mismatches detected)
  2 - Command error (database not found, etc.)

Examples:
  primdiff replay --db ./frames.db
  primdiff replay --db ./frames.db --session 0192f1c4-...
  primdiff replay --db ./frames.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var ids []string
	if opts.Session != "" {
		ids = []string{opts.Session}
	} else {
		summaries, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		ids = distinctSessions(summaries)
	}

	report := ReplayReport{
		Sessions:         make([]store.ReplayResult, 0, len(ids)),
		TotalSessions:    len(ids),
		AllDeterministic: true,
	}
	for _, id := range ids {
		res, err := st.ReplaySession(ctx, id, primitive.Default())
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", id), err)
		}
		report.Sessions = append(report.Sessions, res)
		if !res.Deterministic() {
			report.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: report}
		if !report.AllDeterministic {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_DETERMINISM", Message: "determinism verification failed"}
		}
		return opts.formatter(cmd).Respond(resp)
	}
	return outputReplayText(cmd.OutOrStdout(), report, opts.Verbose)
}

// distinctSessions returns session ids in first-recorded order. A session
// that reconnected appears once per epoch in the summaries.
func distinctSessions(summaries []store.SessionSummary) []string {
	seen := make(map[string]bool, len(summaries))
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		if !seen[s.ID] {
			seen[s.ID] = true
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, report ReplayReport, verbose bool) error {
	if report.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", report.TotalSessions)
	fmt.Fprintln(w)

	for _, s := range report.Sessions {
		status := "✓"
		if !s.Deterministic() {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Session: %s\n", status, s.SessionID)
		fmt.Fprintf(w, "  Frames: %d in %d epoch(s)\n", s.Frames, s.Epochs)

		if !s.Deterministic() {
			fmt.Fprintf(w, "  Warning: %d frame(s) did not reproduce!\n", len(s.Mismatches))
			for _, m := range s.Mismatches {
				if verbose {
					fmt.Fprintf(w, "    seq %d: %s\n", m.Seq, m.Reason)
				}
			}
		}
		fmt.Fprintln(w)
	}

	if report.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
