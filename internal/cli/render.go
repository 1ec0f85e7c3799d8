package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"svcore/internal/capability"
	"svcore/internal/orchestrator"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format for CLI commands
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return f, nil
	case "":
		return OutputFormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s (expected table, json or yaml)", s)
	}
}

// PackageResult is the serializable form of one package outcome.
type PackageResult struct {
	ID       string   `json:"id" yaml:"id"`
	Version  string   `json:"version" yaml:"version"`
	Status   string   `json:"status" yaml:"status"`
	Duration string   `json:"duration,omitempty" yaml:"duration,omitempty"`
	Requires []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	Provided []string `json:"provided,omitempty" yaml:"provided,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunResult is the serializable form of an orchestration report.
type RunResult struct {
	RunID    string          `json:"runId" yaml:"runId"`
	State    string          `json:"state" yaml:"state"`
	Started  time.Time       `json:"started" yaml:"started"`
	Duration string          `json:"duration" yaml:"duration"`
	Packages []PackageResult `json:"packages" yaml:"packages"`
}

// NewRunResult converts a report for output.
func NewRunResult(report *orchestrator.Report) RunResult {
	result := RunResult{
		RunID:    report.RunID,
		State:    string(report.State),
		Started:  report.Started,
		Duration: formatDuration(report.Finished.Sub(report.Started)),
		Packages: make([]PackageResult, 0, len(report.Outcomes)),
	}
	for _, outcome := range report.Outcomes {
		pkg := PackageResult{
			ID:       outcome.ID,
			Version:  outcome.Version,
			Status:   string(outcome.Status),
			Requires: typeNames(outcome.Requires),
			Provided: typeNames(outcome.Provided),
		}
		if outcome.Duration > 0 {
			pkg.Duration = formatDuration(outcome.Duration)
		}
		if outcome.Err != nil {
			pkg.Error = outcome.Err.Error()
		}
		result.Packages = append(result.Packages, pkg)
	}
	return result
}

// RenderReport writes the report in the requested format.
func RenderReport(w io.Writer, report *orchestrator.Report, format OutputFormat) error {
	result := NewRunResult(report)

	switch format {
	case OutputFormatJSON:
		return outputJSON(w, result)
	case OutputFormatYAML:
		return outputYAML(w, result)
	case OutputFormatTable:
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	t := newTable(w, "package", "version", "status", "duration", "provided", "error")
	for _, outcome := range report.Outcomes {
		duration := text.FgHiBlack.Sprint("-")
		if outcome.Duration > 0 {
			duration = formatDuration(outcome.Duration)
		}
		errMsg := text.FgHiBlack.Sprint("-")
		if outcome.Err != nil {
			errMsg = truncate(outcome.Err.Error(), 60)
		}
		t.AppendRow(table.Row{
			outcome.ID,
			outcome.Version,
			formatStatus(outcome.Status),
			duration,
			formatTypes(outcome.Provided),
			errMsg,
		})
	}
	t.Render()

	_, err := fmt.Fprintf(w, "\n%s %s in %s (%d completed, %d failed, %d skipped) %s\n",
		SummaryStyle.Render("Initialization"),
		formatState(report.State),
		result.Duration,
		len(report.Completed()), len(report.Failed()), len(report.Skipped()),
		TextTertiaryStyle.Render("run "+report.RunID))
	return err
}

func newTable(w io.Writer, columns ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	headers := make(table.Row, len(columns))
	for i, col := range columns {
		headers[i] = text.FgHiCyan.Sprint(strings.ToUpper(col))
	}
	t.AppendHeader(headers)
	return t
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func outputYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to convert to YAML: %w", err)
	}
	return encoder.Close()
}

func typeNames(types []capability.Type) []string {
	if len(types) == 0 {
		return nil
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

func formatTypes(types []capability.Type) string {
	return joinOrNone(typeNames(types))
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(time.Microsecond).String()
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
