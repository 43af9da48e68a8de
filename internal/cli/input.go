package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/snapvault/internal/doc"
)

// Error codes used in JSON error responses.
const (
	ErrCodeGeneric         = "E001" // Generic/unknown error
	ErrCodeReadFailed      = "E002" // Input file unreadable
	ErrCodeInvalidDocument = "E003" // Document is not a JSON object or fails its schema
	ErrCodeNotFound        = "E005" // Commit, branch or head not found
	ErrCodeWriteFailed     = "E007" // File write error

	ErrCodeBranchExists = "E101" // Branch already exists
	ErrCodeNoSource     = "E102" // Merge source has no commits
	ErrCodeRefused      = "E103" // Branch cannot be deleted
)

// readDocument reads a JSON document from path, or from the command's
// stdin when path is "-".
func readDocument(cmd *cobra.Command, path string) (doc.Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", describeInput(path)), err)
	}

	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: document must be a JSON object", describeInput(path)))
	}

	d, err := doc.Parse(data)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, describeInput(path), err)
	}
	return d, nil
}

func describeInput(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}

// indentDocument renders d as indented, key-sorted JSON.
func indentDocument(d doc.Document) (string, error) {
	if d == nil {
		d = doc.Document{}
	}
	raw, err := d.MarshalJSON()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", err
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}
