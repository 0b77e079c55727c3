package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/primdiff/internal/diff"
	"github.com/roach88/primdiff/internal/render"
	"github.com/roach88/primdiff/internal/session"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Output string
	Width  int
	Height int
}

// RenderResult describes a written image.
type RenderResult struct {
	Output   string `json:"output"`
	Frames   int    `json:"frames"`
	Rejected int    `json:"rejected"`
	Objects  int    `json:"objects"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}
	defaults := render.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "render <capture|scenario>",
		Short: "Draw the final scene of a capture as a PNG",
		Long: `Decode every frame of a capture (or a scenario), then draw the scene
left after the last accepted frame as a top-down PNG.

Examples:
  primdiff render session.cap -o scene.png
  primdiff render scenario.yaml -o scene.png --width 1024 --height 1024`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "scene.png", "PNG file to write")
	cmd.Flags().IntVar(&opts.Width, "width", defaults.Width, "image width in pixels")
	cmd.Flags().IntVar(&opts.Height, "height", defaults.Height, "image height in pixels")

	return cmd
}

func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid image size %dx%d", opts.Width, opts.Height))
	}
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
	sess, err := session.New(session.WithSource("capture:"+path), session.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create session", err)
	}

	result := RenderResult{Output: opts.Output, Frames: len(frames)}
	for i, buf := range frames {
		if _, err := sess.HandleFrame(cmd.Context(), buf); err != nil {
			if !diff.IsProtocolError(err) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("frame %d", i), err)
			}
			result.Rejected++
		}
	}

	objs := sess.Snapshot()
	result.Objects = len(objs)

	f, err := os.Create(opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output", err)
	}
	ropts := render.DefaultOptions()
	ropts.Width, ropts.Height = opts.Width, opts.Height
	if err := render.PNG(f, objs, ropts); err != nil {
		f.Close()
		return WrapExitError(ExitCommandError, "failed to render", err)
	}
	if err := f.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %d object(s) from %d frame(s) → %s\n", result.Objects, result.Frames, result.Output)
	if result.Rejected > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d frame(s) rejected\n", result.Rejected)
	}
	return nil
}
