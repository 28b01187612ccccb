package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/artpar/envspec/domain/env"
)

// TableFormatter shows the environment's header fields followed by its
// categorized dependencies and variables as aligned tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// ContentType returns the media type.
func (f *TableFormatter) ContentType() string {
	return "text/plain; charset=utf-8"
}

// Format writes e as key-value lines and tables.
func (f *TableFormatter) Format(w io.Writer, e *env.Environment, opts FormatOptions) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Name:\t%s\n", f.formatValue(e.Name, 0))
	fmt.Fprintf(tw, "Prefix:\t%s\n", f.formatValue(e.Prefix, 0))
	fmt.Fprintf(tw, "Channels:\t%s\n", f.formatValue(strings.Join(e.Channels, ", "), 0))
	if err := tw.Flush(); err != nil {
		return err
	}

	categories := e.Dependencies.Categorized()
	if categories.Len() == 0 {
		fmt.Fprintln(w, "\nNo dependencies.")
	} else {
		fmt.Fprintln(w)
		if !opts.NoHeader {
			fmt.Fprintln(tw, "CATEGORY\tSPEC")
		}
		for _, category := range categories.Names() {
			for _, spec := range categories.Get(category) {
				fmt.Fprintf(tw, "%s\t%s\n", category, f.formatValue(spec, opts.MaxWidth))
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if e.Variables.Len() > 0 {
		fmt.Fprintln(w)
		if !opts.NoHeader {
			fmt.Fprintln(tw, "VARIABLE\tVALUE")
		}
		e.Variables.Range(func(k, v string) bool {
			fmt.Fprintf(tw, "%s\t%s\n", k, f.formatValue(v, opts.MaxWidth))
			return true
		})
		return tw.Flush()
	}
	return nil
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

// formatValue formats a value for display.
func (f *TableFormatter) formatValue(val string, maxWidth int) string {
	if val == "" {
		return "-"
	}
	if maxWidth > 3 && len(val) > maxWidth {
		return val[:maxWidth-3] + "..."
	}
	return val
}

func init() {
	Register(NewTableFormatter())
}
