package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/autotag/internal/index"
	"github.com/franz/autotag/internal/store"
	"github.com/franz/autotag/internal/util"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database and tag statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Int("top", 30, "number of top tags to show")
}

func runStats(cmd *cobra.Command, args []string) error {
	setupLogging()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	total, err := db.CountRecords()
	if err != nil {
		return err
	}

	success, _ := db.CountRecordsByStatus(store.StatusSuccess)
	failed, _ := db.CountRecordsByStatus(store.StatusFailed)
	indexed, _ := db.CountRecordsByIndexStatus(store.IndexStatusIndexed)
	embeddings, _ := db.CountEmbeddings()

	dbPath := viper.GetString("db")
	fmt.Printf("Database: %s", dbPath)
	if info, err := os.Stat(dbPath); err == nil {
		fmt.Printf(" (%s)", humanize.Bytes(uint64(info.Size())))
	}
	fmt.Println()
	fmt.Println()

	fmt.Printf("Records:    %s\n", humanize.Comma(int64(total)))
	fmt.Printf("  Tagged:   %s\n", humanize.Comma(int64(success)))
	if failed > 0 {
		fmt.Printf("  Failed:   %s\n", humanize.Comma(int64(failed)))
	}
	fmt.Printf("  Indexed:  %s\n", humanize.Comma(int64(indexed)))
	if embeddings > 0 {
		fmt.Printf("  Embedded: %s\n", humanize.Comma(int64(embeddings)))
	}

	topN := GetConfigInt(cmd, "top")
	stats, err := index.NewSearcher(db).TagStats(topN)
	if err != nil {
		util.DebugLog("Tag stats unavailable: %v", err)
		fmt.Println("\nNo tag index built yet. Run: autotag index")
		return nil
	}
	if len(stats) == 0 {
		return nil
	}

	fmt.Printf("\nTop %d tags:\n", len(stats))
	for _, tc := range stats {
		fmt.Printf("  %6d  %s\n", tc.Count, tc.Tag)
	}
	return nil
}
