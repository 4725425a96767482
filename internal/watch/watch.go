// Package watch notices changes to systemd unit files on disk.
package watch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dtg01100/systemctl-manager/internal/logger"
	"github.com/dtg01100/systemctl-manager/pkg/utils"
)

// DefaultDebounce is how long the directories must be quiet before a
// change is reported.
const DefaultDebounce = 500 * time.Millisecond

// UnitWatcher reports batched changes to unit files in a set of directories.
type UnitWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	paths       []string
	debounceDur time.Duration
	lastEvent   time.Time
	pending     bool
	events      chan struct{}
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	closed      bool
	log         logger.Logger

	stats Stats
}

// Stats counts watcher activity.
type Stats struct {
	Events   int // relevant filesystem events seen
	Reported int // batched notifications sent
	Errors   int
}

// NewUnitWatcher creates a watcher for paths. Missing directories are
// skipped when the watcher starts.
func NewUnitWatcher(paths []string, debounce time.Duration, log logger.Logger) (*UnitWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &UnitWatcher{
		watcher:     w,
		paths:       paths,
		debounceDur: debounce,
		events:      make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		log:         log,
	}, nil
}

// Events delivers one value per settled batch of changes. Batches that
// arrive while a value is still unread are merged into it. The channel is
// closed by Stop.
func (uw *UnitWatcher) Events() <-chan struct{} {
	return uw.events
}

// Start begins watching. It returns immediately.
func (uw *UnitWatcher) Start(ctx context.Context) error {
	uw.mu.Lock()
	if uw.running || uw.closed {
		uw.mu.Unlock()
		return nil
	}
	uw.running = true
	uw.mu.Unlock()

	for _, dir := range uw.paths {
		if !utils.DirExists(dir) {
			uw.log.Debug("unit directory missing, not watching", logger.String("path", dir))
			continue
		}
		if err := uw.watcher.Add(dir); err != nil {
			uw.log.Warn("failed to watch unit directory", logger.String("path", dir), logger.Error(err))
			continue
		}
		uw.log.Debug("watching unit directory", logger.String("path", dir))
	}

	go uw.run(ctx)
	return nil
}

// Stop stops the watcher and releases its resources. It is safe to call
// more than once and without Start.
func (uw *UnitWatcher) Stop() {
	uw.mu.Lock()
	if uw.closed {
		uw.mu.Unlock()
		return
	}
	wasRunning := uw.running
	uw.running = false
	uw.closed = true
	uw.mu.Unlock()

	if wasRunning {
		close(uw.stopCh)
		<-uw.doneCh
	}
	// run has exited, so nothing sends on events any more.
	close(uw.events)

	if err := uw.watcher.Close(); err != nil {
		uw.log.Error("error closing unit watcher", logger.Error(err))
	}
}

// WatchedDirs returns the directories actually being watched.
func (uw *UnitWatcher) WatchedDirs() []string {
	return uw.watcher.WatchList()
}

// GetStats returns the current counters.
func (uw *UnitWatcher) GetStats() Stats {
	uw.mu.Lock()
	defer uw.mu.Unlock()
	return uw.stats
}

func (uw *UnitWatcher) run(ctx context.Context) {
	defer close(uw.doneCh)

	tick := uw.debounceDur / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	debounceTicker := time.NewTicker(tick)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-uw.stopCh:
			return

		case event, ok := <-uw.watcher.Events:
			if !ok {
				return
			}
			uw.handleEvent(event)

		case err, ok := <-uw.watcher.Errors:
			if !ok {
				return
			}
			uw.log.Warn("unit watcher error", logger.Error(err))
			uw.mu.Lock()
			uw.stats.Errors++
			uw.mu.Unlock()

		case <-debounceTicker.C:
			uw.flush()
		}
	}
}

// relevant reports whether a path can affect the service list.
func relevant(name string) bool {
	return strings.HasSuffix(name, ".service") || strings.Contains(name, ".service.d")
}

func (uw *UnitWatcher) handleEvent(event fsnotify.Event) {
	if !relevant(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	uw.log.Debug("unit file changed", logger.String("path", event.Name), logger.String("op", event.Op.String()))

	uw.mu.Lock()
	uw.stats.Events++
	uw.pending = true
	uw.lastEvent = time.Now()
	uw.mu.Unlock()
}

// flush reports a pending batch once it has settled.
func (uw *UnitWatcher) flush() {
	uw.mu.Lock()
	if !uw.pending || time.Since(uw.lastEvent) < uw.debounceDur {
		uw.mu.Unlock()
		return
	}
	uw.pending = false
	uw.stats.Reported++
	uw.mu.Unlock()

	select {
	case uw.events <- struct{}{}:
	default:
	}
}
