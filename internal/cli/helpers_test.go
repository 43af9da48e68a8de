package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snapvault/internal/store"
)

// isolateConfig keeps config.Load from finding a developer's
// snapvault.yaml.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

// newTestOptions returns text-mode options bound to a fresh database.
func newTestOptions(t *testing.T) (*RootOptions, string) {
	t.Helper()
	isolateConfig(t)
	dbPath := filepath.Join(t.TempDir(), "test.db")
	return &RootOptions{Format: "text", Database: dbPath}, dbPath
}

// execute runs cmd with args and stdin, returning stdout and the error.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

// commitDoc commits a JSON document through the commit command.
func commitDoc(t *testing.T, opts *RootOptions, kind, branch, message, body string) {
	t.Helper()
	_, err := execute(t, NewCommitCommand(opts), body, kind, "-", "-b", branch, "-m", message)
	require.NoError(t, err)
}

// openTestStore opens the database the commands wrote to.
func openTestStore(t *testing.T, dbPath string) *store.Store {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func headHash(t *testing.T, dbPath, kind, branch string) string {
	t.Helper()
	c, err := openTestStore(t, dbPath).GetHeadCommit(context.Background(), kind, branch)
	require.NoError(t, err)
	return c.Hash
}
