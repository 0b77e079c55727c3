package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/primdiff/internal/config"
	"github.com/roach88/primdiff/internal/session"
	"github.com/roach88/primdiff/internal/transport"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	URL      string
	Interval time.Duration
	Database string
	All      bool // print unchanged frames too
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll a producer and print frame deltas",
		Long: `Connect to a producer, poll it for frames and print each delta as it
arrives. Reconnects with backoff when the connection drops.

With --format json every changed frame is printed as one JSON object per
line.

Examples:
  primdiff watch --url ws://localhost:10001
  primdiff watch --db frames.db --interval 250ms`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "producer URL (default: producer.url from config)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "poll interval (default: producer.poll_interval from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record frames to this SQLite database (default: store.path from config)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "print frames that changed nothing")

	return cmd
}

// pollerConfig applies command-line overrides to the producer config.
func pollerConfig(cfg config.ProducerConfig, url string, interval time.Duration) transport.PollerConfig {
	pc := transport.PollerConfig{
		URL:              cfg.URL,
		Interval:         cfg.PollInterval,
		HandshakeTimeout: cfg.HandshakeTimeout,
		Backoff:          cfg.Backoff,
	}
	if url != "" {
		pc.URL = url
	}
	if interval > 0 {
		pc.Interval = interval
	}
	return pc
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := opts.newLogger(cmd, cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	pc := pollerConfig(cfg.Producer, opts.URL, opts.Interval)
	sessOpts := []session.Option{session.WithSource(pc.URL), session.WithLogger(logger)}

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

	printer := &reportPrinter{w: cmd.OutOrStdout(), json: opts.Format == "json", all: opts.All}
	poller := transport.NewPoller(pc, sess,
		transport.WithPollerLogger(logger),
		transport.WithReportFunc(printer.print),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("watching producer", "url", pc.URL, "session", sess.ID())
	return poller.Run(ctx)
}

// reportPrinter writes one line per frame report.
type reportPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
	all  bool
}

func (p *reportPrinter) print(r session.Report) {
	if !r.Changed() && !p.all {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		_ = json.NewEncoder(p.w).Encode(r)
		return
	}
	fmt.Fprintf(p.w, "seq=%d bytes=%d +%d -%d live=%d%s\n",
		r.Seq, r.Bytes, len(r.Added), len(r.Removed), r.Live, formatTypeStats(r.Types))
}
