package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/clarabennett2626/logkeep/internal/logs"
	"github.com/fsnotify/fsnotify"
)

// FollowConfig holds configuration for a Follower.
type FollowConfig struct {
	// Prefix names the rotation family to follow. Relative prefixes are
	// resolved against the accessor directory.
	Prefix string
	// TailLines is the number of existing lines emitted on startup.
	TailLines int
	// PollInterval is the fallback check interval for missed events.
	// Defaults to one second.
	PollInterval time.Duration
	// Logger receives debug output about file switches. Optional.
	Logger *charmlog.Logger
}

// Follower emits the tail of the newest file in a rotation family and then
// keeps emitting lines as they are appended. It switches to a newer family
// member when one appears and rereads the file after truncation.
type Follower struct {
	acc     *logs.Accessor
	config  FollowConfig
	log     *charmlog.Logger
	lines   chan LogEntry
	errs    chan error
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped chan struct{}
}

// tracked is the file currently being followed.
type tracked struct {
	path   string
	file   *os.File
	offset int64
}

func (t *tracked) close() {
	if t.file != nil {
		t.file.Close()
	}
	*t = tracked{}
}

// NewFollower creates a follower for cfg.Prefix.
func NewFollower(acc *logs.Accessor, cfg FollowConfig) *Follower {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = charmlog.New(io.Discard)
	}
	return &Follower{
		acc:     acc,
		config:  cfg,
		log:     logger,
		lines:   make(chan LogEntry, 256),
		errs:    make(chan error, 32),
		stopped: make(chan struct{}),
	}
}

func (f *Follower) Lines() <-chan LogEntry { return f.lines }
func (f *Follower) Errors() <-chan error   { return f.errs }

// Start watches the prefix's directory and begins following in the
// background. The directory must exist.
func (f *Follower) Start(ctx context.Context) error {
	prefix := f.acc.Abs(f.config.Prefix)
	dir := filepath.Dir(prefix)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}

	// The starting offset is fixed before Start returns so that lines
	// appended afterwards are never skipped.
	var cur tracked
	initial, err := f.prime(&cur, prefix)
	if err != nil {
		f.sendError(err)
	}

	ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	go f.follow(ctx, watcher, prefix, &cur, initial)

	go func() {
		f.wg.Wait()
		watcher.Close()
		close(f.lines)
		close(f.errs)
		close(f.stopped)
	}()

	return nil
}

// Stop cancels following and waits for goroutines to finish.
func (f *Follower) Stop() error {
	if f.cancel == nil {
		return nil
	}
	f.cancel()
	<-f.stopped
	return nil
}

func (f *Follower) follow(ctx context.Context, watcher *fsnotify.Watcher, prefix string, cur *tracked, initial []LogEntry) {
	defer f.wg.Done()
	defer cur.close()

	for _, e := range initial {
		if !f.send(ctx, e) {
			return
		}
	}

	ticker := time.NewTicker(f.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !logs.InFamily(prefix, event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) && cur.file != nil && filepath.Clean(event.Name) == cur.path {
				if err := f.readAppended(ctx, cur); err != nil {
					f.sendError(err)
				}
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				f.refresh(ctx, cur, prefix)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.sendError(fmt.Errorf("watching %s: %w", prefix, err))

		case <-ticker.C:
			f.refresh(ctx, cur, prefix)
			if cur.file != nil {
				if err := f.readAppended(ctx, cur); err != nil {
					f.sendError(err)
				}
			}
		}
	}
}

// refresh re-evaluates the newest family member and switches to it when it
// differs from the file being followed.
func (f *Follower) refresh(ctx context.Context, cur *tracked, prefix string) {
	newest, err := f.acc.Newest(prefix)
	if err != nil {
		f.sendError(fmt.Errorf("listing rotation family %s: %w", prefix, err))
		return
	}
	if newest == cur.path {
		return
	}
	if newest == "" {
		f.log.Debug("rotation family is empty", "prefix", prefix)
		cur.close()
		return
	}

	// A rename keeps the same file; carry on from the current offset.
	if cur.file != nil {
		if info, err := os.Stat(newest); err == nil {
			if old, err := cur.file.Stat(); err == nil && os.SameFile(old, info) {
				f.log.Debug("followed log renamed", "from", cur.path, "to", newest)
				cur.path = newest
				return
			}
		}
		if err := f.readAppended(ctx, cur); err != nil {
			f.sendError(err)
		}
	}

	f.log.Debug("switching log file", "from", cur.path, "to", newest)
	if err := f.open(ctx, cur, newest); err != nil {
		f.sendError(err)
	}
}

// prime opens the newest family member and returns its last TailLines
// lines, leaving cur positioned after them. With no family member it returns
// the "no log yet" marker.
func (f *Follower) prime(cur *tracked, prefix string) ([]LogEntry, error) {
	empty := []LogEntry{{}}

	newest, err := f.acc.Newest(prefix)
	if err != nil {
		return empty, fmt.Errorf("listing rotation family %s: %w", prefix, err)
	}
	if newest == "" {
		return empty, nil
	}
	file, err := os.Open(newest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return empty, nil
		}
		return empty, fmt.Errorf("opening %s: %w", newest, err)
	}
	cur.path = newest
	cur.file = file

	n := f.config.TailLines
	lines, err := logs.LastLines(file, n)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", newest, err)
	}
	whence := io.SeekCurrent
	if n <= 0 {
		whence = io.SeekEnd
	}
	off, err := file.Seek(0, whence)
	if err != nil {
		return nil, fmt.Errorf("seeking in %s: %w", newest, err)
	}
	cur.offset = off

	entries := make([]LogEntry, len(lines))
	for i, line := range lines {
		entries[i] = LogEntry{Line: line, Source: newest}
	}
	return entries, nil
}

// open switches to path and emits all of its lines. A file that disappeared
// before it could be opened is skipped.
func (f *Follower) open(ctx context.Context, cur *tracked, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("opening %s: %w", path, err)
	}
	cur.close()
	cur.path = path
	cur.file = file
	return f.readAppended(ctx, cur)
}

// readAppended emits lines written since the last read. A file that shrank
// below the last offset was truncated and is read again from the start.
func (f *Follower) readAppended(ctx context.Context, cur *tracked) error {
	info, err := cur.file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", cur.path, err)
	}
	if info.Size() < cur.offset {
		f.log.Debug("log truncated", "path", cur.path, "size", info.Size(), "offset", cur.offset)
		if _, err := cur.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("seek after truncation %s: %w", cur.path, err)
		}
		cur.offset = 0
	}

	scanner := bufio.NewScanner(cur.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if !f.send(ctx, LogEntry{Line: scanner.Text(), Source: cur.path}) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", cur.path, err)
	}
	off, err := cur.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("seeking in %s: %w", cur.path, err)
	}
	cur.offset = off
	return nil
}

// send delivers an entry unless ctx is cancelled first.
func (f *Follower) send(ctx context.Context, e LogEntry) bool {
	select {
	case f.lines <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

func (f *Follower) sendError(err error) {
	select {
	case f.errs <- err:
	default:
	}
}
