package application

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prshepherd/prshepherd/internal/domain/model"
	"github.com/prshepherd/prshepherd/internal/domain/port/driven"
)

// SessionFactory builds a Session for a freshly discovered target bound to
// its dedicated checkout.
type SessionFactory func(target model.Target, vcs driven.VCS) *Session

// WatchService supervises multi-target monitoring: it periodically discovers
// open pull requests and runs one independent session per target. The only
// state shared across sessions is the active-target registry, guarded by a
// mutex; a target is check-and-inserted before its session launches and
// removed when the session terminates for any reason. Two sessions driving
// the same target would double-post escalations and race on commits to the
// same branch.
type WatchService struct {
	source     driven.TargetSource
	workspaces driven.VCSProvider
	newSession SessionFactory
	interval   time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	active map[string]*Session
	wg     sync.WaitGroup
}

// NewWatchService creates a WatchService with the given discovery interval.
func NewWatchService(
	source driven.TargetSource,
	workspaces driven.VCSProvider,
	newSession SessionFactory,
	interval time.Duration,
) *WatchService {
	return &WatchService{
		source:     source,
		workspaces: workspaces,
		newSession: newSession,
		interval:   interval,
		logger:     slog.Default(),
		active:     make(map[string]*Session),
	}
}

// Start begins the discovery loop. It runs an immediate discovery pass, then
// polls on the configured interval. Start blocks until the context is
// canceled and all launched sessions have returned.
func (w *WatchService) Start(ctx context.Context) {
	w.discover(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch service stopping, waiting for sessions")
			w.wg.Wait()
			w.logger.Info("watch service stopped")
			return
		case <-ticker.C:
			w.discover(ctx)
		}
	}
}

// ActiveSessions returns snapshots of the currently running sessions,
// ordered by target key.
func (w *WatchService) ActiveSessions() []model.SessionSummary {
	w.mu.Lock()
	sessions := make([]*Session, 0, len(w.active))
	for _, s := range w.active {
		if s != nil {
			sessions = append(sessions, s)
		}
	}
	w.mu.Unlock()

	summaries := make([]model.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.Snapshot())
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Target < summaries[j].Target })

	return summaries
}

// discover fetches the current open targets and launches sessions for any
// not already monitored. A discovery failure is logged and retried on the
// next tick.
func (w *WatchService) discover(ctx context.Context) {
	targets, err := w.source.DiscoverTargets(ctx)
	if err != nil {
		w.logger.Error("target discovery failed", "error", err)
		return
	}

	var launched int
	for _, target := range targets {
		if w.launch(ctx, target) {
			launched++
		}
	}

	w.logger.Info("discovery complete", "targets", len(targets), "launched", launched)
}

// launch atomically reserves the target's registry slot and starts its
// session goroutine. Returns false when the target is already monitored or
// its workspace could not be prepared.
func (w *WatchService) launch(ctx context.Context, target model.Target) bool {
	key := target.Key()

	w.mu.Lock()
	if _, exists := w.active[key]; exists {
		w.mu.Unlock()
		return false
	}
	// Reserve the slot before the (slow) workspace preparation so a
	// concurrent discovery pass cannot launch the same target twice.
	w.active[key] = nil
	w.mu.Unlock()

	vcs, err := w.workspaces.WorkspaceFor(ctx, target)
	if err != nil {
		w.logger.Error("workspace preparation failed", "target", key, "error", err)
		w.release(key)
		return false
	}

	session := w.newSession(target, vcs)

	w.mu.Lock()
	w.active[key] = session
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		// The deferred release guarantees a failing session never leaves
		// its registry entry stuck.
		defer w.wg.Done()
		defer w.release(key)

		state, err := session.Run(ctx)
		if err != nil {
			w.logger.Error("session ended with error", "target", key, "state", string(state), "error", err)
			return
		}
		w.logger.Info("session ended", "target", key, "state", string(state))
	}()

	w.logger.Info("session launched", "target", key)
	return true
}

func (w *WatchService) release(key string) {
	w.mu.Lock()
	delete(w.active, key)
	w.mu.Unlock()
}
