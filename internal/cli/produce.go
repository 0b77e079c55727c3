package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/primdiff/internal/transport"
)

// ProduceOptions holds flags for the produce command.
type ProduceOptions struct {
	*RootOptions
	Listen string
	Loop   bool
}

// NewProduceCommand creates the produce command.
func NewProduceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProduceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "produce <capture|scenario>",
		Short: "Serve frames to consumers over WebSocket",
		Long: `Act as a producer: answer every POLL from a consumer with the next
frame of a capture file (or a scenario).

Each connection starts from the first frame. Without --loop the
connection is closed after the last frame.

Examples:
  primdiff produce session.cap
  primdiff produce scenario.yaml --listen :10001 --loop`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProduce(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (default: producer.listen from config)")
	cmd.Flags().BoolVar(&opts.Loop, "loop", false, "start over after the last frame")

	return cmd
}

func runProduce(opts *ProduceOptions, path string, cmd *cobra.Command) error {
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

	addr := opts.Listen
	if addr == "" {
		addr = cfg.Producer.Listen
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to listen on %s", addr), err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer := transport.NewProducer(func() transport.FrameSource {
		return transport.NewStaticFrames(frames, opts.Loop)
	}, logger)

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %d frame(s) from %s on %s\n", len(frames), path, ln.Addr())
	return serveProducer(ctx, ln, producer, logger)
}

// serveProducer serves h on ln until ctx ends.
func serveProducer(ctx context.Context, ln net.Listener, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("producer listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("producer stopped")
	return nil
}
