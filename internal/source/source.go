// Package source streams lines from a log rotation family as they are written.
package source

import "context"

// LogEntry represents a single log line with metadata.
type LogEntry struct {
	// Line is the raw log line text, without its terminator.
	Line string
	// Source is the file that produced this entry. It is empty for the
	// "no log yet" marker sent when the rotation family has no files.
	Source string
}

// Empty reports whether e is the "no log yet" marker.
func (e LogEntry) Empty() bool {
	return e.Line == "" && e.Source == ""
}

// Source defines the interface for all log sources.
type Source interface {
	// Lines returns a channel that emits log entries.
	Lines() <-chan LogEntry
	// Errors returns a channel that emits errors encountered during reading.
	Errors() <-chan error
	// Start begins reading in the background and returns once watching is set up.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the source.
	Stop() error
}
