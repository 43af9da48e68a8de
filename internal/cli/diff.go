package cli

import (
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/spf13/cobra"

	"github.com/roach88/snapvault/internal/doc"
	"github.com/roach88/snapvault/internal/ident"
)

// DiffResult is the JSON payload of the diff command.
type DiffResult struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	Delta   doc.Delta `json:"delta"`
	Unified string    `json:"unified"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <from-hash> <to-hash>",
		Short: "Compare the snapshots of two commits",
		Long: `Compare the snapshots stored by two commits.

Prints a unified diff of the two documents followed by the fact-list
items added and removed going from the first commit to the second.

Examples:
  snapvault diff 3f9c0d... 8ab12e...`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runDiff(opts *RootOptions, fromHash, toHash string, cmd *cobra.Command) error {
	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	from, err := st.GetCommit(ctx, fromHash)
	if err != nil {
		return storeError("diff failed", err)
	}
	to, err := st.GetCommit(ctx, toHash)
	if err != nil {
		return storeError("diff failed", err)
	}
	delta, err := st.Diff(ctx, fromHash, toHash)
	if err != nil {
		return storeError("diff failed", err)
	}

	unified, err := unifiedDiff(ident.Short(from.Hash), ident.Short(to.Hash), from.Snapshot, to.Snapshot)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render diff", err)
	}

	result := DiffResult{From: from.Hash, To: to.Hash, Delta: delta, Unified: unified}
	return opts.formatter(cmd).Result(formatDiff(result), result)
}

// unifiedDiff renders a line diff of the indented JSON of two documents.
func unifiedDiff(fromName, toName string, from, to doc.Document) (string, error) {
	before, err := indentDocument(from)
	if err != nil {
		return "", err
	}
	after, err := indentDocument(to)
	if err != nil {
		return "", err
	}

	edits := myers.ComputeEdits(span.URIFromPath(fromName), before, after)
	return fmt.Sprint(gotextdiff.ToUnified(fromName, toName, before, edits)), nil
}

func formatDiff(r DiffResult) string {
	var b strings.Builder
	b.WriteString(r.Unified)

	if r.Delta.IsEmpty() {
		b.WriteString("\nNo fact changes\n")
		return b.String()
	}

	b.WriteString("\n")
	for _, field := range r.Delta.Fields() {
		for _, item := range r.Delta.Added[field] {
			fmt.Fprintf(&b, "+ %s: %s\n", field, item)
		}
		for _, item := range r.Delta.Removed[field] {
			fmt.Fprintf(&b, "- %s: %s\n", field, item)
		}
	}
	return b.String()
}
