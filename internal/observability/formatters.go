// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/wadi/materializer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintBlueprintResult outputs a human-readable summary of a materialization
// attempt.
func (p *Printer) PrintBlueprintResult(projectID string, result types.BlueprintResult) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Project:     %s\n", projectID))
	sb.WriteString(fmt.Sprintf("Success:     %t\n", result.Success))
	sb.WriteString(fmt.Sprintf("Correlation: %s\n", result.CorrelationID))

	if len(result.Blueprint) > 0 {
		sb.WriteString("\nBlueprint (no files written):\n")
		count := min(len(result.Blueprint), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", result.Blueprint[i]))
		}
		if len(result.Blueprint) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Blueprint)-maxItemsToShow))
		}
	} else {
		sb.WriteString(fmt.Sprintf("Files:       %d\n", result.FilesCreated))
	}

	if result.DeployURL != "" {
		sb.WriteString(fmt.Sprintf("Deployed:    %s\n", result.DeployURL))
	}

	p.printBox("MATERIALIZATION RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRun outputs a single run record.
func (p *Printer) PrintRun(run *types.Run) {
	if run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:         %s\n", run.ID))
	sb.WriteString(fmt.Sprintf("Project:     %s\n", run.ProjectID))
	sb.WriteString(fmt.Sprintf("Step:        %s\n", run.StepName))
	sb.WriteString(fmt.Sprintf("Status:      %s\n", run.Status))
	sb.WriteString(fmt.Sprintf("Correlation: %s\n", run.CorrelationID))
	sb.WriteString(fmt.Sprintf("Started:     %s", run.CreatedAt.Format("2006-01-02 15:04:05")))
	if run.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("\nCompleted:   %s", run.CompletedAt.Format("2006-01-02 15:04:05")))
	}
	if run.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("\nError:       %s", run.ErrorMessage))
	}

	p.printBox("RUN", sb.String())
}

// PrintRuns outputs a compact table of run records, newest first.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRuns(runs []types.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(p.out, "No runs found.")
		return
	}

	fmt.Fprintf(p.out, "%-38s %-16s %-12s %s\n", "RUN", "STEP", "STATUS", "STARTED")
	for i := range runs {
		run := &runs[i]
		fmt.Fprintf(p.out, "%-38s %-16s %-12s %s\n",
			run.ID, run.StepName, run.Status, run.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

// PrintBuildResult outputs the build verification verdict.
func (p *Printer) PrintBuildResult(result types.BuildResult) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:  %s\n", result.Status))
	if result.Reason != "" {
		sb.WriteString(fmt.Sprintf("Reason:  %s\n", result.Reason))
	}
	if result.Details != "" {
		sb.WriteString(fmt.Sprintf("Details: %s\n", result.Details))
	}

	p.printBox("BUILD VERIFICATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMetrics outputs the aggregated metrics snapshot.
func (p *Printer) PrintMetrics(failureRate float64, histogram map[string]int) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Deploy failure rate: %.1f%%\n", failureRate))
	sb.WriteString("Build statuses:\n")
	for _, status := range []string{"OK", "WARN", "ERROR", "RISK"} {
		if n, ok := histogram[status]; ok {
			sb.WriteString(fmt.Sprintf("  %-6s %d\n", status, n))
		}
	}

	p.printBox("METRICS", strings.TrimSuffix(sb.String(), "\n"))
}
