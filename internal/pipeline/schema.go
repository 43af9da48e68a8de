package pipeline

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/snapvault/internal/doc"
)

// Schema is a compiled CUE constraint for one document kind, e.g.
//
//	skills: [...string]
//	name?:  string & !=""
//
// Fields without "?" are required. Unlisted fields are allowed unless the
// schema closes the struct.
//
// Thread-safety: safe for concurrent use via internal mutex (a cue.Context
// is not).
type Schema struct {
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

// ValidationError reports the first constraint a document violated.
type ValidationError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	field := e.Field
	if field == "" {
		field = "document"
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			field, e.Message)
	}
	return fmt.Sprintf("%s: %s", field, e.Message)
}

// CompileSchema compiles CUE source. filename is used in error positions.
func CompileSchema(src, filename string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", formatCUEError(err))
	}
	return &Schema{ctx: ctx, def: v}, nil
}

// LoadSchema reads and compiles a .cue file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return CompileSchema(string(data), path)
}

// Validate unifies d with the schema and requires a concrete result.
func (s *Schema) Validate(d doc.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.ctx.Encode(d.Plain())
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := s.def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError reduces a CUE error list to its first error with path and
// position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	first := errs[0]
	format, args := first.Msg()
	ve := &ValidationError{
		Field:   strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
	if positions := errors.Positions(first); len(positions) > 0 {
		ve.Pos = positions[0]
	}
	return ve
}
