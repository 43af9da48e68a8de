package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/snapvault/internal/store"
)

// MigrateResult is the JSON payload of the migrate command.
type MigrateResult struct {
	Migrated bool          `json:"migrated"`
	Commit   *store.Commit `json:"commit,omitempty"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate <kind> <file|->",
		Short: "Import a legacy document as the first commit on main",
		Long: `Bootstrap history from a document kept outside snapvault.

The document becomes the first commit on main. If main already has
commits nothing is written.

Examples:
  snapvault migrate profile legacy/profile.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runMigrate(opts *RootOptions, kind, path string, cmd *cobra.Command) error {
	d, err := readDocument(cmd, path)
	if err != nil {
		return err
	}

	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := opts.newPipeline(st, kind, store.MainBranch)
	if err != nil {
		return err
	}

	c, migrated, err := p.Migrate(cmd.Context(), d)
	if err != nil {
		return storeError("migrate failed", err)
	}

	result := MigrateResult{Migrated: migrated, Commit: c}
	if !migrated {
		return opts.formatter(cmd).Result(
			fmt.Sprintf("%s/%s already has history; nothing migrated\n", kind, store.MainBranch), result)
	}
	return opts.formatter(cmd).Result(formatCommitLine(c), result)
}
