package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewKindsCommand creates the kinds command.
func NewKindsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kinds",
		Short:         "List document kinds that have branches",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKinds(rootOpts, cmd)
		},
	}
	return cmd
}

func runKinds(opts *RootOptions, cmd *cobra.Command) error {
	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	kinds, err := st.ListKinds(cmd.Context())
	if err != nil {
		return storeError("list kinds failed", err)
	}

	text := "No kinds\n"
	if len(kinds) > 0 {
		text = strings.Join(kinds, "\n") + "\n"
	}
	return opts.formatter(cmd).Result(text, kinds)
}
