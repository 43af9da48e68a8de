package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/snapvault/internal/doc"
	"github.com/roach88/snapvault/internal/ident"
	"github.com/roach88/snapvault/internal/pipeline"
	"github.com/roach88/snapvault/internal/store"
)

// CommitOptions holds flags for the commit command.
type CommitOptions struct {
	*RootOptions
	Branch     string
	Message    string
	Confidence string
}

// NewCommitCommand creates the commit command.
func NewCommitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CommitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "commit <kind> <file|->",
		Short: "Save a document as a new snapshot",
		Long: `Save a JSON document as the new head of a branch.

The document is validated against the kind's schema when one is
configured, stamped with lastUpdated, and stored in full. The commit
records which fact-list items were added and removed since the previous
head.

Examples:
  snapvault commit profile profile.json -m "Add Rust"
  snapvault commit profile - -b draft -m "Import" -c high < profile.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommit(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Branch, "branch", "b", store.MainBranch, "branch to commit to")
	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "commit message (required)")
	_ = cmd.MarkFlagRequired("message")
	cmd.Flags().StringVarP(&opts.Confidence, "confidence", "c", "medium", "confidence (high|medium|low)")

	return cmd
}

func runCommit(opts *CommitOptions, kind, path string, cmd *cobra.Command) error {
	confidence, err := doc.ParseConfidence(opts.Confidence)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --confidence", err)
	}

	d, err := readDocument(cmd, path)
	if err != nil {
		return err
	}

	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := opts.newPipeline(st, kind, opts.Branch)
	if err != nil {
		return err
	}

	out := opts.formatter(cmd)
	c, err := p.Save(cmd.Context(), d, opts.Message, confidence)
	if err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			out.Report(ErrCodeInvalidDocument, verr.Error(), map[string]string{
				"kind":  kind,
				"field": verr.Field,
			})
		}
		return storeError("commit failed", err)
	}

	return out.Result(formatCommitLine(c), c)
}

// formatCommitLine renders "[branch shorthash] message" plus the delta
// summary.
func formatCommitLine(c *store.Commit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s %s] %s\n", c.Branch, ident.Short(c.Hash), c.Message)
	fmt.Fprintf(&b, " %s/%s, %s, +%d -%d\n",
		c.Kind, c.Branch, c.Confidence.Short(), c.Delta.AddedCount(), c.Delta.RemovedCount())
	return b.String()
}
