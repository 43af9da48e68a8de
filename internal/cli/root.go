package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/snapvault/internal/config"
	"github.com/roach88/snapvault/internal/pipeline"
	"github.com/roach88/snapvault/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string // overrides config database
	ConfigPath string

	cfg    *config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the snapvault CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "snapvault",
		Short: "snapvault - versioned document snapshots",
		Long: `A versioned store for structured documents.

Every save is a full snapshot on a branch. Branches can be merged
(fact lists are unioned, scalar conflicts keep the target value) and
rolled back without ever rewriting history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if err := opts.prepare(cmd.ErrOrStderr()); err != nil {
				return err
			}
			slog.SetDefault(opts.logger)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to snapvault.yaml")

	cmd.AddCommand(NewCommitCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewBranchCommand(opts))
	cmd.AddCommand(NewCheckoutCommand(opts))
	cmd.AddCommand(NewMergeCommand(opts))
	cmd.AddCommand(NewRollbackCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewDiffCommand(opts))
	cmd.AddCommand(NewKindsCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// prepare loads configuration and builds the logger once. Subcommands call
// it too so they work when constructed without the root command.
func (o *RootOptions) prepare(stderr io.Writer) error {
	if o.cfg != nil {
		return nil
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	if o.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(stderr, handlerOpts)
	}

	o.cfg = cfg
	o.logger = slog.New(handler)
	return nil
}

// databasePath returns --db if set, else the configured database.
func (o *RootOptions) databasePath() string {
	if o.Database != "" {
		return o.Database
	}
	return o.cfg.Database
}

// openStore prepares the options and opens the configured database.
func (o *RootOptions) openStore(cmd *cobra.Command) (*store.Store, error) {
	if err := o.prepare(cmd.ErrOrStderr()); err != nil {
		return nil, err
	}

	st, err := store.Open(o.databasePath(), store.WithLogger(o.logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// newPipeline binds a pipeline to kind and branch, with the kind's schema
// if one is configured.
func (o *RootOptions) newPipeline(st *store.Store, kind, branch string) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{
		pipeline.WithBranch(branch),
		pipeline.WithLogger(o.logger),
	}

	if path, ok := o.cfg.SchemaFor(kind); ok {
		schema, err := pipeline.LoadSchema(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load schema for %s", kind), err)
		}
		opts = append(opts, pipeline.WithSchema(schema))
	}

	return pipeline.New(st, kind, opts...), nil
}

// formatter returns an OutputFormatter writing to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
