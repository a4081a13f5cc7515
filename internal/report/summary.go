package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/franz/autotag/internal/store"
)

// RunSummary represents a complete tagging-run summary
type RunSummary struct {
	GeneratedAt time.Time
	Duration    time.Duration

	// Run statistics
	ImagesProcessed int
	ImagesSucceeded int
	ImagesFailed    int
	ImagesSkipped   int

	// Database totals after the run
	TotalRecords int
	TotalIndexed int

	// Details
	TopErrors []ErrorSummary

	// Metadata
	SourcePath   string
	ModelName    string
	DatabasePath string
	EventLogPath string
}

// ErrorSummary represents an error with its count
type ErrorSummary struct {
	Error string
	Count int
}

// GenerateRunSummary creates a run summary from the database
func GenerateRunSummary(db *store.Store, eventLogPath string) (*RunSummary, error) {
	summary := &RunSummary{
		GeneratedAt:  time.Now(),
		EventLogPath: eventLogPath,
		TopErrors:    make([]ErrorSummary, 0),
	}

	total, err := db.CountRecords()
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	summary.TotalRecords = total

	indexed, _ := db.CountRecordsByIndexStatus(store.IndexStatusIndexed)
	summary.TotalIndexed = indexed

	summary.TopErrors = gatherTopErrors(db, 10)
	return summary, nil
}

// gatherTopErrors retrieves the most common failure messages
func gatherTopErrors(db *store.Store, limit int) []ErrorSummary {
	failed, _ := db.GetRecordsByStatus(store.StatusFailed)

	errorCounts := make(map[string]int)
	for _, rec := range failed {
		if rec.ErrorMessage != "" {
			errorCounts[rec.ErrorMessage]++
		}
	}

	errors := make([]ErrorSummary, 0, len(errorCounts))
	for err, count := range errorCounts {
		errors = append(errors, ErrorSummary{Error: err, Count: count})
	}

	sort.Slice(errors, func(i, j int) bool {
		return errors[i].Count > errors[j].Count
	})

	if len(errors) > limit {
		errors = errors[:limit]
	}
	return errors
}

// WriteMarkdownReport writes the run summary as Markdown
func WriteMarkdownReport(summary *RunSummary, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Image Auto-Tagging - Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", summary.GeneratedAt.Format("2006-01-02 15:04:05")))

	if summary.SourcePath != "" {
		md.WriteString(fmt.Sprintf("**Source:** `%s`\n\n", summary.SourcePath))
	}
	if summary.ModelName != "" {
		md.WriteString(fmt.Sprintf("**Model:** `%s`\n\n", summary.ModelName))
	}
	if summary.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", summary.DatabasePath))
	}
	if summary.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", summary.EventLogPath))
	}

	md.WriteString("---\n\n")

	// The run section only applies to summaries written from a tagging
	// run; database-only reports skip it
	if summary.ImagesProcessed > 0 {
		md.WriteString("## Run\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Images Processed | %d |\n", summary.ImagesProcessed))
		md.WriteString(fmt.Sprintf("| Succeeded | %d |\n", summary.ImagesSucceeded))
		if summary.ImagesFailed > 0 {
			md.WriteString(fmt.Sprintf("| Failed | %d |\n", summary.ImagesFailed))
		}
		if summary.ImagesSkipped > 0 {
			md.WriteString(fmt.Sprintf("| Skipped (cached) | %d |\n", summary.ImagesSkipped))
		}
		if summary.Duration > 0 {
			md.WriteString(fmt.Sprintf("| Duration | %s |\n", summary.Duration.Round(time.Second)))
		}
		md.WriteString("\n")
	}

	md.WriteString("## Database\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Total Records | %d |\n", summary.TotalRecords))
	md.WriteString(fmt.Sprintf("| Indexed | %d |\n", summary.TotalIndexed))
	md.WriteString("\n")

	if len(summary.TopErrors) > 0 {
		md.WriteString("## Top Errors\n\n")
		md.WriteString("| Count | Error |\n")
		md.WriteString("|-------|-------|\n")
		for _, err := range summary.TopErrors {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", err.Count, err.Error))
		}
		md.WriteString("\n")
	}

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
