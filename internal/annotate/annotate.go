// Package annotate drives the tagging pipeline: it feeds discovered
// image files through a model backend and persists one record per
// image, successful or not.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/franz/autotag/internal/image"
	"github.com/franz/autotag/internal/model"
	"github.com/franz/autotag/internal/parse"
	"github.com/franz/autotag/internal/report"
	"github.com/franz/autotag/internal/store"
	"github.com/franz/autotag/internal/util"
)

// Annotator tags image files through a model backend
type Annotator struct {
	store           *store.Store
	backend         model.Backend
	logger          *report.EventLogger
	concurrency     int
	tagCount        int
	maxWidth        int
	maxHeight       int
	language        string
	force           bool
	withDescription bool
}

// Config holds annotator configuration
type Config struct {
	Store           *store.Store
	Backend         model.Backend
	Logger          *report.EventLogger
	Concurrency     int
	TagCount        int
	MaxWidth        int
	MaxHeight       int
	Language        string
	Force           bool
	WithDescription bool
}

// New creates a new Annotator
func New(cfg *Config) *Annotator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.TagCount <= 0 {
		cfg.TagCount = 10
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = image.DefaultMaxWidth
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = image.DefaultMaxHeight
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}

	return &Annotator{
		store:           cfg.Store,
		backend:         cfg.Backend,
		logger:          cfg.Logger,
		concurrency:     cfg.Concurrency,
		tagCount:        cfg.TagCount,
		maxWidth:        cfg.MaxWidth,
		maxHeight:       cfg.MaxHeight,
		language:        cfg.Language,
		force:           cfg.Force,
		withDescription: cfg.WithDescription,
	}
}

// Result represents an annotation run result
type Result struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
	Errors    []error
}

// Run tags the given image files using a bounded worker pool. Each
// image produces exactly one database record; model failures are
// recorded, not fatal.
func (a *Annotator) Run(ctx context.Context, paths []string) (*Result, error) {
	start := time.Now()
	result := &Result{Total: len(paths)}

	if len(paths) == 0 {
		return result, nil
	}

	util.InfoLog("Tagging %d images with %s (%d workers)",
		len(paths), a.backend.Name(), a.concurrency)

	var succeeded, failed, skipped atomic.Int64
	var errMu sync.Mutex

	// Progress bar only on a terminal; piped output gets plain logs
	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("Tagging"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("imgs"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	filePaths := make(chan string, a.concurrency)
	var wg sync.WaitGroup

	for i := 0; i < a.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range filePaths {
				select {
				case <-ctx.Done():
					return
				default:
				}

				outcome, err := a.processImage(ctx, path)
				switch {
				case err != nil:
					failed.Add(1)
					util.ErrorLog("Failed to tag %s: %v", path, err)
					errMu.Lock()
					result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
					errMu.Unlock()
				case outcome == outcomeSkipped:
					skipped.Add(1)
				default:
					succeeded.Add(1)
				}

				if bar != nil {
					bar.Add(1)
					bar.Describe(fmt.Sprintf("Tagging | %d ok | %d failed | %d cached",
						succeeded.Load(), failed.Load(), skipped.Load()))
				}
			}
		}()
	}

	for _, path := range paths {
		select {
		case filePaths <- path:
		case <-ctx.Done():
		}
	}
	close(filePaths)
	wg.Wait()

	if bar != nil {
		bar.Finish()
	}

	result.Succeeded = int(succeeded.Load())
	result.Failed = int(failed.Load())
	result.Skipped = int(skipped.Load())
	result.Duration = time.Since(start)

	util.SuccessLog("Tagging complete: %d succeeded, %d failed, %d skipped in %s",
		result.Succeeded, result.Failed, result.Skipped, result.Duration.Round(time.Second))

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return result, err
	}
	return result, nil
}

type outcome int

const (
	outcomeTagged outcome = iota
	outcomeSkipped
)

// processImage tags a single file. A model failure is recorded as a
// failed record and reported as an error; only the skip path returns
// without writing.
func (a *Annotator) processImage(ctx context.Context, path string) (outcome, error) {
	uniqueID := util.UniqueID(path)

	if !a.force {
		existing, err := a.store.GetRecordByUniqueID(uniqueID)
		if err != nil {
			return outcomeTagged, fmt.Errorf("failed to check existing record: %w", err)
		}
		if existing != nil && existing.Status == store.StatusSuccess {
			util.DebugLog("Already tagged, skipping: %s", path)
			a.logger.LogSkip(uniqueID, path, "already processed")
			return outcomeSkipped, nil
		}
	}

	start := time.Now()

	data, info, err := image.Prepare(path, a.maxWidth, a.maxHeight)
	if err != nil {
		a.recordFailure(uniqueID, path, info, err.Error(), start)
		return outcomeTagged, err
	}

	rawTags, err := a.backend.GenerateTags(ctx, data, a.tagCount)
	if err != nil {
		a.recordFailure(uniqueID, path, info, failureMessage(err), start)
		a.logger.LogTag(uniqueID, path, a.backend.Name(), "", 0, time.Since(start), err)
		return outcomeTagged, err
	}

	tagList := parse.Tags(rawTags, a.tagCount)
	if len(tagList) == 0 {
		err := fmt.Errorf("no usable tags in model output")
		a.recordFailure(uniqueID, path, info, "[PARSE_FAILED] "+err.Error(), start)
		a.logger.LogTag(uniqueID, path, a.backend.Name(), "", 0, time.Since(start), err)
		return outcomeTagged, err
	}
	tags := strings.Join(tagList, ",")

	description := ""
	if a.withDescription {
		description, err = a.backend.GenerateDescription(ctx, data)
		if err != nil {
			// Tags are the product; a failed description is not fatal
			util.WarnLog("Description failed for %s: %v", path, err)
			description = ""
		}
	}

	rec := &store.TagRecord{
		UniqueID:       uniqueID,
		Path:           path,
		Tags:           tags,
		Description:    description,
		ModelName:      a.backend.Name(),
		ImageSize:      fmt.Sprintf("%dx%d", info.Width, info.Height),
		TagCount:       len(tagList),
		OriginalWidth:  info.Width,
		OriginalHeight: info.Height,
		ImageFormat:    info.Format,
		Status:         store.StatusSuccess,
		ProcessingMs:   time.Since(start).Milliseconds(),
		Language:       a.language,
	}
	if err := a.store.UpsertRecord(rec); err != nil {
		return outcomeTagged, fmt.Errorf("failed to store record: %w", err)
	}

	a.logger.LogTag(uniqueID, path, a.backend.Name(), tags, len(tagList), time.Since(start), nil)
	util.DebugLog("Tagged %s: %s", path, tags)
	return outcomeTagged, nil
}

// recordFailure persists a failed record so the image is visible in
// stats and can be retried with --reprocess
func (a *Annotator) recordFailure(uniqueID, path string, info image.Info, message string, start time.Time) {
	rec := &store.TagRecord{
		UniqueID:       uniqueID,
		Path:           path,
		ModelName:      a.backend.Name(),
		OriginalWidth:  info.Width,
		OriginalHeight: info.Height,
		ImageFormat:    info.Format,
		Status:         store.StatusFailed,
		ErrorMessage:   message,
		ProcessingMs:   time.Since(start).Milliseconds(),
		Language:       a.language,
	}
	if info.Width > 0 {
		rec.ImageSize = fmt.Sprintf("%dx%d", info.Width, info.Height)
	}
	if err := a.store.UpsertRecord(rec); err != nil {
		util.ErrorLog("Failed to store failure record for %s: %v", path, err)
	}
}

// failureMessage formats an error for the error_message column,
// preserving the structured form of model API failures
func failureMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}
