package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/snapvault/internal/ident"
	"github.com/roach88/snapvault/internal/store"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	*RootOptions
	Into string
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge <kind> <source>",
		Short: "Merge a branch's head into another branch",
		Long: `Merge the head of a source branch into a target branch.

Fact lists are unioned case-insensitively, keeping the target's items
first. Scalar fields that differ are reported as conflicts and keep the
target's value; conflicts never block the merge. The merge commit has
the target head as its only parent.

Exit codes:
  0 - Merged (possibly with conflicts)
  1 - Source branch has no commits
  2 - Command error

Examples:
  snapvault merge profile draft
  snapvault merge profile draft --into staging`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Into, "into", store.MainBranch, "target branch")

	return cmd
}

func runMerge(opts *MergeOptions, kind, source string, cmd *cobra.Command) error {
	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := opts.newPipeline(st, kind, opts.Into)
	if err != nil {
		return err
	}

	res, err := p.Merge(cmd.Context(), source)
	if err != nil {
		return storeError("merge failed", err)
	}

	out := opts.formatter(cmd)
	if !res.Success {
		msg := fmt.Sprintf("branch %s/%s has no commits to merge", kind, source)
		out.Report(ErrCodeNoSource, msg, res)
		return NewExitError(ExitFailure, msg)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Merged %s into %s/%s at %s\n", source, kind, p.Branch(), ident.Short(res.CommitHash))
	for _, c := range res.Conflicts {
		fmt.Fprintf(&b, "  conflict %s: kept %q, %s had %q\n",
			c.Field, strings.Join(c.TargetValues, ", "), source, strings.Join(c.SourceValues, ", "))
	}
	return out.Result(b.String(), res)
}

// NewRollbackCommand creates the rollback command.
func NewRollbackCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback <kind> <hash>",
		Short: "Restore an earlier snapshot as a new commit",
		Long: `Restore the snapshot stored by a commit.

The snapshot is committed again on the commit's branch with the message
"Rollback to <hash>". History is never rewritten.

Examples:
  snapvault rollback profile 3f9c0d...`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runRollback(opts *RootOptions, kind, hash string, cmd *cobra.Command) error {
	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := opts.newPipeline(st, kind, "")
	if err != nil {
		return err
	}

	c, err := p.Rollback(cmd.Context(), hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			opts.formatter(cmd).Report(ErrCodeNotFound, fmt.Sprintf("commit %s not found for %s", hash, kind), nil)
		}
		return storeError("rollback failed", err)
	}
	return opts.formatter(cmd).Result(formatCommitLine(c), c)
}
