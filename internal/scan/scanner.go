package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/franz/autotag/internal/util"
)

// ImageExtensions are the default supported image file extensions
var ImageExtensions = []string{
	".jpg",
	".jpeg",
	".png",
	".bmp",
	".gif",
	".webp",
}

// Scanner discovers image files under a path
type Scanner struct {
	extensions map[string]bool
}

// Config holds scanner configuration
type Config struct {
	AdditionalExts []string
}

// New creates a new Scanner
func New(cfg *Config) *Scanner {
	// Build extension map (case-insensitive)
	extMap := make(map[string]bool)
	for _, ext := range ImageExtensions {
		extMap[strings.ToLower(ext)] = true
	}
	if cfg != nil {
		for _, ext := range cfg.AdditionalExts {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			extMap[strings.ToLower(ext)] = true
		}
	}

	return &Scanner{extensions: extMap}
}

// Discover returns the image files at or below path in sorted order.
// A single-file path is accepted when its extension is supported.
func (s *Scanner) Discover(ctx context.Context, path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", path, err)
	}

	if !info.IsDir() {
		if !s.IsImageFile(path) {
			return nil, fmt.Errorf("%w: not a supported image file: %s", util.ErrUnsupported, path)
		}
		return []string{path}, nil
	}

	var found []string
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			util.WarnLog("Error accessing path %s: %v", p, err)
			return nil // Continue walking
		}
		if d.IsDir() {
			// Skip hidden directories like .thumbnails
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if s.IsImageFile(p) {
			found = append(found, p)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk error: %w", walkErr)
	}

	sort.Strings(found)
	util.DebugLog("Discovered %d image files under %s", len(found), path)
	return found, nil
}

// IsImageFile checks if a file has a supported image extension
func (s *Scanner) IsImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return s.extensions[ext]
}

// SupportedExtensions returns the list of supported extensions
func (s *Scanner) SupportedExtensions() []string {
	exts := make([]string, 0, len(s.extensions))
	for ext := range s.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
