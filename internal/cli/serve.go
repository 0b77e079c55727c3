package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/primdiff/internal/metrics"
	"github.com/roach88/primdiff/internal/server"
	"github.com/roach88/primdiff/internal/session"
	"github.com/roach88/primdiff/internal/transport"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port       int
	URL        string
	Database   string
	StaticRoot string
	NoPoll     bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the viewer server and poll a producer",
		Long: `Poll a producer and serve the resulting scene to the browser viewer.

Endpoints:
  /api/scene      current objects as JSON
  /api/scene.png  top-down rendering of the scene
  /api/session    session bookkeeping
  /api/types      registered primitive types
  /metrics        Prometheus metrics
  /stop           shut the server down

Static files are served from server.static_paths, relative to --static-root.

Examples:
  primdiff serve
  primdiff serve --config viewer.yaml --db frames.db
  primdiff serve --port 9000 --url ws://robot:10001`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "HTTP port (default: server.port from config)")
	cmd.Flags().StringVar(&opts.URL, "url", "", "producer URL (default: producer.url from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record frames to this SQLite database (default: store.path from config)")
	cmd.Flags().StringVar(&opts.StaticRoot, "static-root", ".", "directory static paths are relative to")
	cmd.Flags().BoolVar(&opts.NoPoll, "no-poll", false, "serve without connecting to a producer")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	logger, closer, err := opts.newLogger(cmd, cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	pc := pollerConfig(cfg.Producer, opts.URL, 0)
	sessOpts := []session.Option{
		session.WithSource(pc.URL),
		session.WithLogger(logger),
		session.WithObserver(m),
	}
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	st, err := openStore(dbPath)
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

	srv := server.New(cfg.Server, sess,
		server.WithLogger(logger),
		server.WithMetrics(m, reg),
		server.WithStaticRoot(opts.StaticRoot),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()

	pollDone := make(chan error, 1)
	if opts.NoPoll {
		pollDone <- nil
	} else {
		poller := transport.NewPoller(pc, sess, transport.WithPollerLogger(logger))
		go func() { pollDone <- poller.Run(pollCtx) }()
	}

	serveErr := srv.ListenAndServe(ctx)
	cancelPoll()
	pollErr := <-pollDone

	if serveErr != nil {
		return WrapExitError(ExitCommandError, "server failed", serveErr)
	}
	return pollErr
}
