package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/autotag/internal/annotate"
	"github.com/franz/autotag/internal/image"
	"github.com/franz/autotag/internal/index"
	"github.com/franz/autotag/internal/report"
	"github.com/franz/autotag/internal/scan"
	"github.com/franz/autotag/internal/util"
)

var tagCmd = &cobra.Command{
	Use:   "tag <path>",
	Short: "Tag images in a file or directory",
	Long: `Tag runs every image under the given path through the configured
vision model and stores the generated tags.

Images that were already tagged successfully are skipped; use
--reprocess to tag them again. After tagging, the search indexes are
rebuilt unless --no-index is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runTag,
}

func init() {
	rootCmd.AddCommand(tagCmd)

	addModelFlags(tagCmd)
	tagCmd.Flags().IntP("tag-count", "n", 10, "number of tags to request per image")
	tagCmd.Flags().String("resize", "512x512", "bounding box for model input (WxH)")
	tagCmd.Flags().IntP("concurrency", "c", 2, "parallel model calls")
	tagCmd.Flags().Bool("description", false, "also generate a one-line description per image")
	tagCmd.Flags().Bool("reprocess", false, "re-tag images that already have tags")
	tagCmd.Flags().Bool("no-index", false, "skip the index rebuild after tagging")
	tagCmd.Flags().String("report", "", "write a Markdown run summary to this file")
}

func runTag(cmd *cobra.Command, args []string) error {
	setupLogging()
	source := args[0]

	maxW, maxH, err := image.ParseSize(GetConfigString(cmd, "resize"))
	if err != nil {
		return err
	}

	backend, language, err := buildBackend(cmd)
	if err != nil {
		return err
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := newEventLogger()
	defer logger.Close()

	ctx := context.Background()
	start := time.Now()

	scanner := scan.New(nil)
	paths, err := scanner.Discover(ctx, source)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		util.WarnLog("No image files found under %s", source)
		return nil
	}
	util.InfoLog("Found %d image files", len(paths))

	annotator := annotate.New(&annotate.Config{
		Store:           db,
		Backend:         backend,
		Logger:          logger,
		Concurrency:     GetConfigInt(cmd, "concurrency"),
		TagCount:        GetConfigInt(cmd, "tag-count"),
		MaxWidth:        maxW,
		MaxHeight:       maxH,
		Language:        language,
		Force:           GetConfigBool(cmd, "reprocess"),
		WithDescription: GetConfigBool(cmd, "description"),
	})

	result, err := annotator.Run(ctx, paths)
	if err != nil {
		return fmt.Errorf("tagging failed: %w", err)
	}

	if !GetConfigBool(cmd, "no-index") && result.Succeeded > 0 {
		util.InfoLog("Rebuilding search indexes...")
		if _, err := index.NewBuilder(db, logger).Rebuild(); err != nil {
			return err
		}
		if _, err := db.MarkIndexed(); err != nil {
			return err
		}
	}

	util.InfoLog("")
	util.SuccessLog("=== Tagging Summary ===")
	util.InfoLog("Total images: %d", result.Total)
	util.InfoLog("  Tagged: %d", result.Succeeded)
	if result.Failed > 0 {
		util.WarnLog("  Failed: %d", result.Failed)
	}
	if result.Skipped > 0 {
		util.InfoLog("  Skipped (cached): %d", result.Skipped)
	}
	util.InfoLog("Total time: %v", time.Since(start).Round(time.Millisecond))

	if output := GetConfigString(cmd, "report"); output != "" {
		summary, err := report.GenerateRunSummary(db, logger.Path())
		if err != nil {
			return err
		}
		summary.SourcePath = source
		summary.ModelName = backend.Name()
		summary.DatabasePath = viper.GetString("db")
		summary.ImagesProcessed = result.Total
		summary.ImagesSucceeded = result.Succeeded
		summary.ImagesFailed = result.Failed
		summary.ImagesSkipped = result.Skipped
		summary.Duration = result.Duration

		if err := report.WriteMarkdownReport(summary, output); err != nil {
			return err
		}
		util.SuccessLog("Run summary written to %s", output)
	}

	return nil
}
