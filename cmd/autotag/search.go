package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/franz/autotag/internal/index"
	"github.com/franz/autotag/internal/store"
	"github.com/franz/autotag/internal/util"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search tagged images",
	Long: `Search finds tagged images by exact tag, full-text query or keyword.

Modes:
  tag      exact tag match; comma-separated tags combine per --match
  fts      FTS5 full-text query over tags and descriptions
  keyword  full-text first, falling back to substring matching (default)`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("mode", "keyword", "search mode: tag, fts or keyword")
	searchCmd.Flags().String("match", "any", "multi-tag combination: any or all")
	searchCmd.Flags().Bool("paths-only", false, "print only matching file paths")
}

func runSearch(cmd *cobra.Command, args []string) error {
	setupLogging()
	query := args[0]

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	searcher := index.NewSearcher(db)

	var records []*store.TagRecord
	switch mode := GetConfigString(cmd, "mode"); mode {
	case "tag":
		tags := strings.Split(query, ",")
		records, err = searcher.SearchByTags(tags, index.MatchMode(GetConfigString(cmd, "match")))
	case "fts":
		records, err = searcher.Fulltext(query)
	case "keyword":
		records, err = searcher.Keyword(query)
	default:
		return fmt.Errorf("unknown search mode %q (tag, fts or keyword)", mode)
	}
	if err != nil {
		return err
	}

	if len(records) == 0 {
		util.InfoLog("No matches for %q", query)
		return nil
	}

	if GetConfigBool(cmd, "paths-only") {
		for _, rec := range records {
			fmt.Println(rec.Path)
		}
		return nil
	}

	util.InfoLog("Found %d matches:", len(records))
	for _, rec := range records {
		printRecordLine(rec)
	}
	return nil
}
