package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

const (
	// OutputFormatTable renders a bordered table.
	OutputFormatTable OutputFormat = "table"
	// OutputFormatPlain renders kubectl-style columns without borders.
	OutputFormatPlain OutputFormat = "plain"
	// OutputFormatJSON renders indented JSON.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML renders YAML.
	OutputFormatYAML OutputFormat = "yaml"
	// OutputFormatTemplate executes the Go template given with --template.
	OutputFormatTemplate OutputFormat = "template"
)

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputFormatTable, OutputFormatPlain, OutputFormatJSON, OutputFormatYAML, OutputFormatTemplate:
		return f, nil
	case "":
		return OutputFormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table, plain, json, yaml or template)", s)
	}
}

// OutputFlags holds the output flag values of listing commands.
type OutputFlags struct {
	// OutputFormat is the raw --output value.
	OutputFormat string
	// NoHeaders suppresses the header row in table output.
	NoHeaders bool
	// Template is the Go template for -o template.
	Template string
}

// RegisterOutputFlags registers --output/-o and --no-headers on cmd.
func RegisterOutputFlags(cmd *cobra.Command, flags *OutputFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable), "Output format (table, plain, json, yaml, template)")
	cmd.Flags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	cmd.Flags().StringVar(&flags.Template, "template", "", "Go template for -o template; sprig functions are available")
}

// Options converts the flag values to render options.
func (f OutputFlags) Options() (RenderOptions, error) {
	format, err := ParseOutputFormat(f.OutputFormat)
	if err != nil {
		return RenderOptions{}, err
	}
	opts := RenderOptions{Format: format, NoHeaders: f.NoHeaders}
	if format == OutputFormatTemplate {
		if f.Template == "" {
			return RenderOptions{}, fmt.Errorf("--template is required with -o template")
		}
		tmpl, err := parseTemplate(f.Template)
		if err != nil {
			return RenderOptions{}, err
		}
		opts.Template = tmpl
	} else if f.Template != "" {
		return RenderOptions{}, fmt.Errorf("--template requires -o template")
	}
	return opts, nil
}
