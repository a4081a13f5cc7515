package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/autotag/internal/report"
	"github.com/franz/autotag/internal/util"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a Markdown summary of the tag database",
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("output", "o", "artifacts/summary.md", "output file")
}

func runReport(cmd *cobra.Command, args []string) error {
	setupLogging()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := report.GenerateRunSummary(db, "")
	if err != nil {
		return err
	}
	summary.DatabasePath = viper.GetString("db")

	output := GetConfigString(cmd, "output")
	if err := report.WriteMarkdownReport(summary, output); err != nil {
		return err
	}

	util.SuccessLog("Report written to %s", output)
	return nil
}
