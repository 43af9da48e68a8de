package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snapvault/internal/doc"
)

const profileSchema = `
skills: [...string]
name?:  string & !=""
age?:   number & >=0
`

func TestCompileSchema_SyntaxError(t *testing.T) {
	_, err := CompileSchema(`skills: [...string`, "broken.cue")
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestSchema_Validate(t *testing.T) {
	schema, err := CompileSchema(profileSchema, "profile.cue")
	require.NoError(t, err)

	tests := []struct {
		name      string
		doc       doc.Document
		wantField string
	}{
		{
			name: "valid",
			doc: doc.Document{
				"skills":        doc.List{"go"},
				"name":          doc.Text("Ada"),
				doc.LastUpdated: doc.Text("2025-03-14T09:00:00.000Z"),
			},
		},
		{
			name: "extra fields allowed",
			doc:  doc.Document{"skills": doc.List{}, "notes": doc.Text("x")},
		},
		{
			name: "raw number",
			doc:  doc.Document{"skills": doc.List{}, "age": doc.Raw(`36`)},
		},
		{
			name:      "scalar where list expected",
			doc:       doc.Document{"skills": doc.Text("go")},
			wantField: "skills",
		},
		{
			name:      "empty name",
			doc:       doc.Document{"skills": doc.List{}, "name": doc.Text("")},
			wantField: "name",
		},
		{
			name:      "negative age",
			doc:       doc.Document{"skills": doc.List{}, "age": doc.Raw(`-1`)},
			wantField: "age",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Validate(tt.doc)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.NotEmpty(t, ve.Message)
		})
	}
}

func TestSchema_RequiredField(t *testing.T) {
	schema, err := CompileSchema(`name: string`, "named.cue")
	require.NoError(t, err)

	assert.NoError(t, schema.Validate(doc.Document{"name": doc.Text("Ada")}))

	err = schema.Validate(doc.Document{"skills": doc.List{"go"}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)
}

func TestLoadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.cue")
	require.NoError(t, os.WriteFile(path, []byte(profileSchema), 0o644))

	schema, err := LoadSchema(path)
	require.NoError(t, err)
	assert.NoError(t, schema.Validate(doc.Document{"skills": doc.List{"go"}}))

	_, err = LoadSchema(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "skills", Message: "conflicting values"}
	assert.Equal(t, "skills: conflicting values", err.Error())

	err = &ValidationError{Message: "bad"}
	assert.Equal(t, "document: bad", err.Error())
}
