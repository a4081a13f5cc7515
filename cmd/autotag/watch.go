package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/franz/autotag/internal/annotate"
	"github.com/franz/autotag/internal/image"
	"github.com/franz/autotag/internal/index"
	"github.com/franz/autotag/internal/scan"
	"github.com/franz/autotag/internal/store"
	"github.com/franz/autotag/internal/util"
)

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a directory and tag new images as they appear",
	Long: `Watch monitors a directory tree and tags image files as they are
created or modified. Files are debounced so a file still being written
is only tagged once it has settled. The search indexes are rebuilt
periodically while new tags arrive.

Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	addModelFlags(watchCmd)
	watchCmd.Flags().IntP("tag-count", "n", 10, "number of tags to request per image")
	watchCmd.Flags().String("resize", "512x512", "bounding box for model input (WxH)")
	watchCmd.Flags().Bool("description", false, "also generate a one-line description per image")
	watchCmd.Flags().Duration("settle", 2*time.Second, "wait for a file to stop changing before tagging")
	watchCmd.Flags().Duration("reindex-every", 30*time.Second, "how often to rebuild indexes after new tags")
}

func runWatch(cmd *cobra.Command, args []string) error {
	setupLogging()
	dir := args[0]

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: watch target must be an existing directory: %s", util.ErrInvalidConfig, dir)
	}

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

	annotator := annotate.New(&annotate.Config{
		Store:           db,
		Backend:         backend,
		Logger:          logger,
		Concurrency:     1,
		TagCount:        GetConfigInt(cmd, "tag-count"),
		MaxWidth:        maxW,
		MaxHeight:       maxH,
		Language:        language,
		WithDescription: GetConfigBool(cmd, "description"),
	})
	scanner := scan.New(nil)
	builder := index.NewBuilder(db, logger)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the whole existing tree; new subdirectories are added as
	// their create events arrive
	if err := addWatchTree(watcher, dir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settle, _ := cmd.Flags().GetDuration("settle")
	if settle < time.Second {
		settle = time.Second
	}
	reindexEvery, _ := cmd.Flags().GetDuration("reindex-every")
	if reindexEvery < time.Second {
		reindexEvery = time.Second
	}

	var mu sync.Mutex
	pending := make(map[string]time.Time)
	dirty := false

	util.InfoLog("Watching %s (model: %s)", dir, backend.Name())

	settleTicker := time.NewTicker(settle / 2)
	defer settleTicker.Stop()
	reindexTicker := time.NewTicker(reindexEvery)
	defer reindexTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			util.InfoLog("Shutting down")
			return finalReindex(db, builder, dirty)

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatchTree(watcher, event.Name); err != nil {
						util.WarnLog("Failed to watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !scanner.IsImageFile(event.Name) {
				continue
			}
			logger.LogWatch(event.Name, event.Op.String())
			mu.Lock()
			pending[event.Name] = time.Now()
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			util.WarnLog("Watcher error: %v", err)

		case <-settleTicker.C:
			mu.Lock()
			var ready []string
			for path, seen := range pending {
				if time.Since(seen) >= settle {
					ready = append(ready, path)
					delete(pending, path)
				}
			}
			mu.Unlock()

			if len(ready) == 0 {
				continue
			}
			result, err := annotator.Run(ctx, ready)
			if err != nil {
				util.WarnLog("Tagging failed: %v", err)
			}
			if result != nil && result.Succeeded > 0 {
				dirty = true
			}

		case <-reindexTicker.C:
			if !dirty {
				continue
			}
			if _, err := builder.Rebuild(); err != nil {
				util.WarnLog("Index rebuild failed: %v", err)
				continue
			}
			if _, err := db.MarkIndexed(); err != nil {
				util.WarnLog("Failed to mark records indexed: %v", err)
			}
			dirty = false
		}
	}
}

// addWatchTree registers a directory and all its subdirectories
func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			util.WarnLog("Error accessing path %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); name != filepath.Base(root) && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// finalReindex rebuilds the indexes one last time on shutdown when
// tags arrived since the previous rebuild
func finalReindex(db *store.Store, builder *index.Builder, dirty bool) error {
	if !dirty {
		return nil
	}
	if _, err := builder.Rebuild(); err != nil {
		return err
	}
	_, err := db.MarkIndexed()
	return err
}
