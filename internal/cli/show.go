package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/snapvault/internal/ident"
	"github.com/roach88/snapvault/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Branch string
	Commit string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <kind>",
		Short: "Print the head snapshot or a specific commit",
		Long: `Print the snapshot at the head of a branch, or the snapshot stored
by a specific commit.

Examples:
  snapvault show profile
  snapvault show profile --branch draft
  snapvault show profile --commit 3f9c... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Branch, "branch", store.MainBranch, "branch to read")
	cmd.Flags().StringVar(&opts.Commit, "commit", "", "commit hash to read instead of the head")

	return cmd
}

func runShow(opts *ShowOptions, kind string, cmd *cobra.Command) error {
	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	var c *store.Commit
	if opts.Commit != "" {
		c, err = st.GetCommit(ctx, opts.Commit)
		if err == nil && c.Kind != kind {
			err = fmt.Errorf("commit %s belongs to %s: %w", ident.Short(c.Hash), c.Kind, store.ErrNotFound)
		}
	} else {
		c, err = st.GetHeadCommit(ctx, kind, opts.Branch)
	}
	if err != nil {
		return storeError("show failed", err)
	}

	body, err := indentDocument(c.Snapshot)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render snapshot", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "commit %s\n", c.Hash)
	fmt.Fprintf(&b, "branch %s/%s\n", c.Kind, c.Branch)
	fmt.Fprintf(&b, "date   %s\n", c.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
	fmt.Fprintf(&b, "\n    %s\n\n", c.Message)
	b.WriteString(body)

	return opts.formatter(cmd).Result(b.String(), c)
}
