package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/franz/autotag/internal/index"
	"github.com/franz/autotag/internal/store"
	"github.com/franz/autotag/internal/util"
	"github.com/franz/autotag/internal/vector"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the search indexes from stored tags",
	Long: `Index rebuilds the tag and full-text indexes from all successfully
tagged records. The rebuild is a full replace inside one transaction.

With --embeddings the semantic vector index is rebuilt as well, which
requires a running embedding model.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().Bool("embeddings", false, "also rebuild the semantic vector index")
	indexCmd.Flags().String("embedding-model", vector.DefaultEmbeddingModel, "embedding model name")
}

func runIndex(cmd *cobra.Command, args []string) error {
	setupLogging()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := newEventLogger()
	defer logger.Close()

	result, err := index.NewBuilder(db, logger).Rebuild()
	if err != nil {
		return err
	}

	marked, err := db.MarkIndexed()
	if err != nil {
		return err
	}

	util.SuccessLog("Index rebuilt: %d records, %d tag entries in %v",
		result.Records, result.TagEntries, result.Duration.Round(time.Millisecond))
	util.DebugLog("Marked %d records indexed", marked)

	if GetConfigBool(cmd, "embeddings") {
		util.InfoLog("Building semantic index...")
		embedder := vector.NewOllamaEmbedder(GetConfigString(cmd, "embedding-model"), 0)
		ix := vector.NewIndex(db, embedder, logger)

		embedResult, err := ix.Build(context.Background())
		if err != nil {
			return err
		}
		util.SuccessLog("Semantic index built: %d embedded, %d failed in %v",
			embedResult.Embedded, embedResult.Failed, embedResult.Duration.Round(time.Millisecond))
	}

	notIndexed, _ := db.CountRecordsByIndexStatus(store.IndexStatusNotIndexed)
	if notIndexed > 0 {
		util.WarnLog("%d records remain unindexed (failed records are never indexed)", notIndexed)
	}

	return nil
}
