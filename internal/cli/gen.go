package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/primdiff/internal/harness"
	"github.com/roach88/primdiff/internal/primitive"
	"github.com/roach88/primdiff/internal/transport"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	Output string
}

// GenResult describes a written capture.
type GenResult struct {
	Scenario string `json:"scenario"`
	Output   string `json:"output"`
	Frames   int    `json:"frames"`
	Bytes    int    `json:"bytes"`
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen <scenario>",
		Short: "Encode a scenario into a capture file",
		Long: `Encode every frame of a scenario into a capture file that decode,
render and produce can read.

Session resets in the scenario are not represented; a capture is one
connection.

Examples:
  primdiff gen scenarios/boxes.yaml -o boxes.cap`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "capture file to write (default: scenario name + .cap)")

	return cmd
}

func runGen(opts *GenOptions, path string, cmd *cobra.Command) error {
	s, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	frames, err := s.EncodeAll(primitive.Default())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode scenario", err)
	}

	out := opts.Output
	if out == "" {
		out = s.Name + ".cap"
	}
	if err := transport.WriteCaptureFile(out, frames); err != nil {
		return WrapExitError(ExitCommandError, "failed to write capture", err)
	}

	result := GenResult{Scenario: s.Name, Output: out, Frames: len(frames)}
	for _, f := range frames {
		result.Bytes += len(f)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d frame(s), %d bytes → %s\n",
		result.Scenario, result.Frames, result.Bytes, result.Output)
	return nil
}
