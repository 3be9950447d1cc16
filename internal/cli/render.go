package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"sigs.k8s.io/yaml"
)

// RenderOptions controls how a result set is printed.
type RenderOptions struct {
	Format    OutputFormat
	NoHeaders bool
	// Template is set for OutputFormatTemplate.
	Template *template.Template
}

// Column widths for free-text cells in table output.
const (
	summaryMaxLen  = 50
	locationMaxLen = 30
	minTruncateLen = 4
)

func parseTemplate(text string) (*template.Template, error) {
	tmpl, err := template.New("output").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid --template: %w", err)
	}
	return tmpl, nil
}

// truncate collapses s to a single line and shortens it to maxLen runes,
// ending in "..." when cut.
func truncate(s string, maxLen int) string {
	if maxLen < minTruncateLen {
		maxLen = minTruncateLen
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// newTable creates a table writer for the requested format.
func newTable(w io.Writer, opts RenderOptions) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	if opts.Format == OutputFormatPlain {
		style := table.StyleDefault
		style.Options = table.OptionsNoBordersAndSeparators
		style.Box.PaddingLeft = ""
		style.Box.PaddingRight = "   "
		style.Format.Header = text.FormatUpper
		t.SetStyle(style)
	} else {
		t.SetStyle(table.StyleRounded)
	}
	return t
}

func header(opts RenderOptions, names ...string) table.Row {
	row := make(table.Row, len(names))
	for i, name := range names {
		if opts.Format == OutputFormatPlain {
			row[i] = name
		} else {
			row[i] = text.FgHiCyan.Sprint(name)
		}
	}
	return row
}

// renderStructured writes v as JSON, YAML or through the output template.
// It reports false for table formats.
func renderStructured(w io.Writer, opts RenderOptions, v interface{}) (bool, error) {
	switch opts.Format {
	case OutputFormatTemplate:
		if opts.Template == nil {
			return true, fmt.Errorf("no output template given")
		}
		if err := opts.Template.Execute(w, v); err != nil {
			return true, fmt.Errorf("failed to execute template: %w", err)
		}
		return true, nil
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("failed to encode JSON: %w", err)
		}
		return true, nil
	case OutputFormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("failed to encode YAML: %w", err)
		}
		_, err = w.Write(data)
		return true, err
	default:
		return false, nil
	}
}

func formatEmptyMessage(w io.Writer, message string) {
	fmt.Fprintf(w, "%s\n", text.FgYellow.Sprint(message))
}
