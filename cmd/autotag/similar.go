package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franz/autotag/internal/index"
	"github.com/franz/autotag/internal/report"
	"github.com/franz/autotag/internal/util"
	"github.com/franz/autotag/internal/vector"
)

var similarCmd = &cobra.Command{
	Use:   "similar <query>",
	Short: "Find images by semantic similarity",
	Long: `Similar searches the vector index for images whose tags are
semantically close to the query, even without an exact word match.
The index must have been built with: autotag index --embeddings

With --tags the query instead lists indexed tags containing the
given fragment.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().IntP("limit", "k", vector.DefaultTopK, "maximum results")
	similarCmd.Flags().String("embedding-model", vector.DefaultEmbeddingModel, "embedding model name")
	similarCmd.Flags().Bool("tags", false, "list indexed tags containing the query fragment")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	setupLogging()
	query := args[0]

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if GetConfigBool(cmd, "tags") {
		tags, err := index.NewSearcher(db).SimilarTags(query, GetConfigInt(cmd, "limit"))
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			util.InfoLog("No indexed tags contain %q", query)
			return nil
		}
		for _, tc := range tags {
			fmt.Printf("%6d  %s\n", tc.Count, tc.Tag)
		}
		return nil
	}

	count, err := db.CountEmbeddings()
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no vector index found, run: autotag index --embeddings")
	}

	embedder := vector.NewOllamaEmbedder(GetConfigString(cmd, "embedding-model"), 0)
	ix := vector.NewIndex(db, embedder, report.NullLogger())

	hits, err := ix.Search(context.Background(), query, GetConfigInt(cmd, "limit"))
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		util.InfoLog("No images similar to %q", query)
		return nil
	}

	util.InfoLog("Found %d similar images:", len(hits))
	for _, hit := range hits {
		fmt.Printf("  %.3f  %s\n    tags: %s\n", hit.Score, hit.Record.Path, hit.Record.Tags)
	}
	return nil
}
