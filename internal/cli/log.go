package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/snapvault/internal/ident"
	"github.com/roach88/snapvault/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Branch string
	Limit  int
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log <kind>",
		Short: "Show commit history, newest first",
		Long: `Show the commits on a branch, newest first.

The limit defaults to log_limit from the config file (50 if unset).

Examples:
  snapvault log profile
  snapvault log profile --branch draft --limit 5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Branch, "branch", store.MainBranch, "branch to list")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum number of entries (default from config)")

	return cmd
}

func runLog(opts *LogOptions, kind string, cmd *cobra.Command) error {
	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	limit := opts.Limit
	if limit <= 0 {
		limit = opts.cfg.LogLimit
	}

	entries, err := st.Log(cmd.Context(), kind, opts.Branch, limit)
	if err != nil {
		return storeError("log failed", err)
	}

	var b strings.Builder
	if len(entries) == 0 {
		fmt.Fprintf(&b, "No commits on %s/%s\n", kind, opts.Branch)
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s %-6s +%d -%d  %s\n",
			ident.Short(e.Hash),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Confidence.Short(),
			e.DeltaAdded,
			e.DeltaRemoved,
			e.Message,
		)
	}

	return opts.formatter(cmd).Result(b.String(), entries)
}
