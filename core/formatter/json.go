package formatter

import (
	"io"

	"github.com/artpar/envspec/core/document"
	"github.com/artpar/envspec/domain/env"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// ContentType returns the media type.
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// Format writes the environment document as JSON, keeping key order.
func (f *JSONFormatter) Format(w io.Writer, e *env.Environment, opts FormatOptions) error {
	return document.DumpJSON(e.ToDocument(), w, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	doc := document.New()
	doc.Set("error", err.Error())
	return document.DumpJSON(doc, w, false)
}

func init() {
	Register(NewJSONFormatter())
}
