package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventTag   EventType = "tag"
	EventSkip  EventType = "skip"
	EventIndex EventType = "index"
	EventEmbed EventType = "embed"
	EventWatch EventType = "watch"
	EventError EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event in the pipeline
type Event struct {
	Timestamp time.Time         `json:"ts"`
	RunID     string            `json:"run_id"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	ImageID   string            `json:"image_id,omitempty"`
	Path      string            `json:"path,omitempty"`
	Model     string            `json:"model,omitempty"`
	Tags      string            `json:"tags,omitempty"`
	TagCount  int               `json:"tag_count,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file. Every event carries the
// run ID assigned at construction so interleaved runs can be separated.
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    uuid.NewString(),
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RunID = l.runID

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogTag logs a completed tagging call
func (l *EventLogger) LogTag(imageID, path, model, tags string, tagCount int, duration time.Duration, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:    level,
		Event:    EventTag,
		ImageID:  imageID,
		Path:     path,
		Model:    model,
		Tags:     tags,
		TagCount: tagCount,
		Duration: duration.Milliseconds(),
		Error:    errMsg,
	})
}

// LogSkip logs an image skipped because it was already processed
func (l *EventLogger) LogSkip(imageID, path, reason string) error {
	return l.Log(&Event{
		Level:   LevelDebug,
		Event:   EventSkip,
		ImageID: imageID,
		Path:    path,
		Reason:  reason,
	})
}

// LogIndex logs an index rebuild
func (l *EventLogger) LogIndex(entries int, duration time.Duration, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:    level,
		Event:    EventIndex,
		Duration: duration.Milliseconds(),
		Error:    errMsg,
		Extra: map[string]string{
			"entries": fmt.Sprintf("%d", entries),
		},
	})
}

// LogEmbed logs an embedding build
func (l *EventLogger) LogEmbed(imageID, path, model string, dim int, err error) error {
	level := LevelDebug
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:   level,
		Event:   EventEmbed,
		ImageID: imageID,
		Path:    path,
		Model:   model,
		Error:   errMsg,
		Extra: map[string]string{
			"dim": fmt.Sprintf("%d", dim),
		},
	})
}

// LogWatch logs a filesystem event picked up in watch mode
func (l *EventLogger) LogWatch(path, op string) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventWatch,
		Path:  path,
		Extra: map[string]string{
			"op": op,
		},
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, path string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		Path:  path,
		Error: err.Error(),
	})
}

// RunID returns the run identifier stamped on every event
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
