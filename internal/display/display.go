package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"

	"mysql-drift-guard/internal/schema"
)

// OutputFormat selects how structured results are rendered
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates a user-supplied format name
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch OutputFormat(name) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return OutputFormat(name), nil
	default:
		return FormatTable, fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", name)
	}
}

// Service renders command output. Color is applied only when the output is a
// terminal; piped output stays plain.
type Service struct {
	out     io.Writer
	colored bool

	success *color.Color
	warning *color.Color
	errored *color.Color
	info    *color.Color
	header  *color.Color
}

// NewService creates a display service writing to stdout
func NewService() *Service {
	return NewServiceWithWriter(os.Stdout)
}

// NewServiceWithWriter creates a display service writing to w
func NewServiceWithWriter(w io.Writer) *Service {
	colored := false
	if f, ok := w.(*os.File); ok {
		colored = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if colored && termenv.EnvColorProfile() == termenv.Ascii {
		colored = false
	}

	s := &Service{
		out:     w,
		colored: colored,
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		errored: color.New(color.FgRed),
		info:    color.New(color.FgCyan),
		header:  color.New(color.FgBlue, color.Bold),
	}
	if !colored {
		for _, c := range []*color.Color{s.success, s.warning, s.errored, s.info, s.header} {
			c.DisableColor()
		}
	}
	return s
}

// Success prints a success message with a check mark
func (s *Service) Success(message string) {
	fmt.Fprintln(s.out, s.success.Sprintf("✓ %s", message))
}

// Warning prints a warning message
func (s *Service) Warning(message string) {
	fmt.Fprintln(s.out, s.warning.Sprintf("! %s", message))
}

// Error prints an error message
func (s *Service) Error(message string) {
	fmt.Fprintln(s.out, s.errored.Sprintf("✗ %s", message))
}

// Info prints an informational message
func (s *Service) Info(message string) {
	fmt.Fprintln(s.out, s.info.Sprintf("• %s", message))
}

// PrintHeader prints a section header with an underline
func (s *Service) PrintHeader(title string) {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.header.Sprint(title))
	fmt.Fprintln(s.out, s.header.Sprint(strings.Repeat("─", len([]rune(title)))))
}

// PrintTable prints a simple aligned table
func (s *Service) PrintTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		fmt.Fprintln(s.out, "  "+strings.Join(parts, "  "))
	}

	printRow(headers)
	separators := make([]string, len(headers))
	for i := range headers {
		separators[i] = strings.Repeat("-", widths[i])
	}
	printRow(separators)
	for _, row := range rows {
		printRow(row)
	}
}

// PrintSQL prints DDL statements with statement numbering
func (s *Service) PrintSQL(statements []string) {
	for i, stmt := range statements {
		fmt.Fprintf(s.out, "%s\n%s;\n\n", s.info.Sprintf("-- statement %d", i+1), stmt)
	}
}

// SeverityString renders a drift severity with its conventional color
func (s *Service) SeverityString(severity schema.Severity) string {
	switch severity {
	case schema.SeverityCritical:
		return s.errored.Sprint(string(severity))
	case schema.SeverityModerate:
		return s.warning.Sprint(string(severity))
	case schema.SeverityLow:
		return s.info.Sprint(string(severity))
	default:
		return s.success.Sprint(string(severity))
	}
}

// Render writes v in the requested structured format. FormatTable callers
// handle their own layout and never reach this.
func (s *Service) Render(v interface{}, format OutputFormat) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render JSON output: %w", err)
		}
		fmt.Fprintln(s.out, string(data))
		return nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to render YAML output: %w", err)
		}
		fmt.Fprint(s.out, string(data))
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// PrintDriftReport renders a drift report as human-readable text
func (s *Service) PrintDriftReport(report *schema.DriftReport) {
	s.PrintHeader("Schema Drift Report")
	fmt.Fprintf(s.out, "  Report ID: %s\n", report.ID)
	fmt.Fprintf(s.out, "  Severity:  %s\n", s.SeverityString(report.Severity))

	if !report.HasDrift() {
		s.Success("No drift detected")
		return
	}

	if len(report.MissingTables) > 0 {
		s.Error(fmt.Sprintf("Missing tables: %s", strings.Join(report.MissingTables, ", ")))
	}
	if len(report.ExtraTables) > 0 {
		s.Info(fmt.Sprintf("Extra tables: %s", strings.Join(report.ExtraTables, ", ")))
	}

	for table, drift := range report.TableDrift {
		s.PrintHeader(fmt.Sprintf("Table %s", table))
		if len(drift.MissingColumns) > 0 {
			s.Error(fmt.Sprintf("Missing columns: %s", strings.Join(drift.MissingColumns, ", ")))
		}
		for _, mismatch := range drift.TypeMismatches {
			s.Warning(fmt.Sprintf("Column %s: expected type %s, found %s",
				mismatch.Column, mismatch.Expected, mismatch.Actual))
		}
		for _, constraint := range drift.MissingConstraints {
			s.Warning(fmt.Sprintf("Missing foreign key %s -> %s", constraint.Name, constraint.Target()))
		}
		if len(drift.ExtraColumns) > 0 {
			s.Info(fmt.Sprintf("Extra columns: %s", strings.Join(drift.ExtraColumns, ", ")))
		}
	}
}
