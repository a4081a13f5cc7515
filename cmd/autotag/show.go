package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/franz/autotag/internal/store"
	"github.com/franz/autotag/internal/util"
)

var showCmd = &cobra.Command{
	Use:   "show <path-or-id>",
	Short: "Show stored tags for an image",
	Long: `Show prints the stored record for an image. The argument is either a
numeric record ID or a path fragment; a fragment matching several
records prints all of them.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	setupLogging()
	arg := args[0]

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	var records []*store.TagRecord
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		rec, err := db.GetRecordByID(id)
		if err != nil {
			return err
		}
		if rec != nil {
			records = append(records, rec)
		}
	} else {
		records, err = db.FindRecordsByPath(arg)
		if err != nil {
			return err
		}
	}

	if len(records) == 0 {
		return fmt.Errorf("%w: no record matches %q", util.ErrNotFound, arg)
	}

	for i, rec := range records {
		if i > 0 {
			fmt.Println()
		}
		printRecordDetail(rec)
	}
	return nil
}

// printRecordLine prints a one-line record summary for search results
func printRecordLine(rec *store.TagRecord) {
	status := ""
	if rec.Status != store.StatusSuccess {
		status = fmt.Sprintf(" [%s]", rec.Status)
	}
	fmt.Printf("  %s%s\n    tags: %s\n", rec.Path, status, rec.Tags)
}

// printRecordDetail prints the full record
func printRecordDetail(rec *store.TagRecord) {
	fmt.Printf("ID:        %d\n", rec.ID)
	fmt.Printf("Path:      %s\n", rec.Path)
	fmt.Printf("Status:    %s\n", rec.Status)
	if rec.Tags != "" {
		fmt.Printf("Tags:      %s (%d)\n", rec.Tags, rec.TagCount)
	}
	if rec.Description != "" {
		fmt.Printf("Descr:     %s\n", rec.Description)
	}
	fmt.Printf("Model:     %s\n", rec.ModelName)
	fmt.Printf("Language:  %s\n", rec.Language)
	if rec.OriginalWidth > 0 {
		fmt.Printf("Size:      %dx%d (%s)\n", rec.OriginalWidth, rec.OriginalHeight, rec.ImageFormat)
	}
	fmt.Printf("Generated: %s (%d ms)\n", rec.GeneratedAt.Format("2006-01-02 15:04:05"), rec.ProcessingMs)
	fmt.Printf("Indexed:   %s\n", rec.IndexStatus)
	if rec.ErrorMessage != "" {
		fmt.Printf("Error:     %s\n", rec.ErrorMessage)
	}
}
