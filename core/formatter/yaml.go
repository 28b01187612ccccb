package formatter

import (
	"fmt"
	"io"

	"github.com/artpar/envspec/core/document"
	"github.com/artpar/envspec/domain/env"
)

// YAMLFormatter renders the environment file itself.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "Environment file (YAML)"
}

// ContentType returns the media type.
func (f *YAMLFormatter) ContentType() string {
	return "application/x-yaml; charset=utf-8"
}

// Format writes the minimal environment document as YAML.
func (f *YAMLFormatter) Format(w io.Writer, e *env.Environment, opts FormatOptions) error {
	return e.WriteYAML(w)
}

// FormatError formats an error as a YAML mapping.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	doc := document.New()
	doc.Set("error", err.Error())
	if dumpErr := document.Dump(doc, w); dumpErr != nil {
		return fmt.Errorf("format error: %w", dumpErr)
	}
	return nil
}

func init() {
	Register(NewYAMLFormatter())
}
