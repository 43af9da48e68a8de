package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/snapvault/internal/ident"
	"github.com/roach88/snapvault/internal/store"
)

// BranchOptions holds flags for the branch subcommands.
type BranchOptions struct {
	*RootOptions
	From string
}

// NewBranchCommand creates the branch command and its subcommands.
func NewBranchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BranchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Create, list and delete branches",
		Long: `Manage the branches of a document kind.

A new branch starts with a copy of its source branch's head. The main
branch cannot be deleted.

Examples:
  snapvault branch create profile draft
  snapvault branch create profile experiment --from draft
  snapvault branch list profile
  snapvault branch delete profile draft`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	create := &cobra.Command{
		Use:           "create <kind> <name>",
		Short:         "Create a branch from another branch's head",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBranchCreate(opts, args[0], args[1], cmd)
		},
	}
	create.Flags().StringVar(&opts.From, "from", store.MainBranch, "source branch")

	list := &cobra.Command{
		Use:           "list <kind>",
		Short:         "List branches in creation order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBranchList(opts, args[0], cmd)
		},
	}

	del := &cobra.Command{
		Use:           "delete <kind> <name>",
		Short:         "Delete a branch and its commits",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBranchDelete(opts, args[0], args[1], cmd)
		},
	}

	cmd.AddCommand(create, list, del)
	return cmd
}

func runBranchCreate(opts *BranchOptions, kind, name string, cmd *cobra.Command) error {
	if strings.TrimSpace(name) == "" {
		return NewExitError(ExitCommandError, "branch name is required")
	}

	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)
	b, err := st.CreateBranch(cmd.Context(), kind, name, opts.From)
	if err != nil {
		if errors.Is(err, store.ErrBranchExists) {
			out.Report(ErrCodeBranchExists, fmt.Sprintf("branch %s/%s already exists", kind, name), nil)
		}
		return storeError("create branch failed", err)
	}

	text := fmt.Sprintf("Created branch %s/%s from %s\n", kind, b.Name, opts.From)
	if b.HeadHash != "" {
		text = fmt.Sprintf("Created branch %s/%s from %s at %s\n", kind, b.Name, opts.From, ident.Short(b.HeadHash))
	}
	return out.Result(text, b)
}

func runBranchList(opts *BranchOptions, kind string, cmd *cobra.Command) error {
	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	branches, err := st.ListBranches(cmd.Context(), kind)
	if err != nil {
		return storeError("list branches failed", err)
	}

	var b strings.Builder
	if len(branches) == 0 {
		fmt.Fprintf(&b, "No branches for %s\n", kind)
	}
	for _, br := range branches {
		head := "-"
		if br.HeadHash != "" {
			head = ident.Short(br.HeadHash)
		}
		fmt.Fprintf(&b, "%-20s %-12s %d commit(s)\n", br.Name, head, br.CommitCount)
	}

	return opts.formatter(cmd).Result(b.String(), branches)
}

func runBranchDelete(opts *BranchOptions, kind, name string, cmd *cobra.Command) error {
	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	deleted, err := st.DeleteBranch(cmd.Context(), kind, name)
	if err != nil {
		return storeError("delete branch failed", err)
	}

	out := opts.formatter(cmd)
	if !deleted {
		msg := fmt.Sprintf("branch %s/%s was not deleted", kind, name)
		if name == store.MainBranch || name == "" {
			msg = fmt.Sprintf("branch %s/%s cannot be deleted", kind, store.MainBranch)
		}
		out.Report(ErrCodeRefused, msg, nil)
		return NewExitError(ExitFailure, msg)
	}

	return out.Result(fmt.Sprintf("Deleted branch %s/%s\n", kind, name), map[string]any{
		"kind":    kind,
		"branch":  name,
		"deleted": true,
	})
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout <kind> <branch>",
		Short: "Verify a branch exists and print its head",
		Long: `Look up a branch and print its head commit.

The store keeps no per-user current branch; commands take --branch.
checkout confirms a branch exists before working on it.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runCheckout(opts *RootOptions, kind, name string, cmd *cobra.Command) error {
	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	b, err := st.SwitchBranch(cmd.Context(), kind, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			opts.formatter(cmd).Report(ErrCodeNotFound, fmt.Sprintf("branch %s/%s does not exist", kind, name), nil)
		}
		return storeError("checkout failed", err)
	}

	head := "no commits"
	if b.HeadHash != "" {
		head = "head " + ident.Short(b.HeadHash)
	}
	return opts.formatter(cmd).Result(fmt.Sprintf("On branch %s/%s (%s)\n", kind, b.Name, head), b)
}
