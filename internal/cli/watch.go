package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/snapvault/internal/doc"
	"github.com/roach88/snapvault/internal/pipeline"
	"github.com/roach88/snapvault/internal/store"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Branch   string
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <kind>",
		Short: "Print the head snapshot whenever it changes",
		Long: `Print the head snapshot of a branch, then print it again every time
another process commits to the database. Stops on interrupt.

Examples:
  snapvault watch profile
  snapvault watch profile --branch draft --debounce 500ms`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Branch, "branch", store.MainBranch, "branch to watch")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", pipeline.DefaultDebounce, "quiet period before re-reading")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, kind string, cmd *cobra.Command) error {
	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := opts.newPipeline(st, kind, opts.Branch)
	if err != nil {
		return err
	}

	printer := &snapshotPrinter{
		ctx:    ctx,
		p:      p,
		out:    opts.formatter(cmd),
		logger: opts.logger,
	}
	printer.Invalidate()

	w, err := pipeline.NewWatcher(opts.databasePath(), []pipeline.Invalidator{p, printer},
		pipeline.WithDebounce(opts.Debounce),
		pipeline.WithWatcherLogger(opts.logger),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to watch database", err)
	}
	defer w.Close()

	return w.Run(ctx)
}

// snapshotPrinter re-reads the pipeline after each invalidation and prints
// the snapshot when it differs from the last one printed. It must come
// after the pipeline in the watcher's targets.
type snapshotPrinter struct {
	ctx    context.Context
	p      *pipeline.Pipeline
	out    *OutputFormatter
	logger *slog.Logger

	mu   sync.Mutex
	last doc.Document
}

func (s *snapshotPrinter) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.p.Snapshot(s.ctx)
	if err != nil {
		s.logger.Warn("watch: read failed", "kind", s.p.Kind(), "branch", s.p.Branch(), "error", err)
		return
	}
	if s.last != nil && d.Equal(s.last) {
		return
	}
	s.last = d

	body, err := indentDocument(d)
	if err != nil {
		s.logger.Warn("watch: render failed", "error", err)
		return
	}
	text := fmt.Sprintf("== %s/%s\n%s", s.p.Kind(), s.p.Branch(), body)
	if err := s.out.Result(text, d); err != nil {
		s.logger.Warn("watch: write failed", "error", err)
	}
}
