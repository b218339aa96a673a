package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/getbuf/internal/logfields"
)

// Reason says why a run was triggered.
type Reason string

const (
	ReasonInitial  Reason = "initial"
	ReasonChange   Reason = "change"
	ReasonInterval Reason = "interval"
)

// RunFunc performs one generation run.
type RunFunc func(ctx context.Context, reason Reason)

// Options configures a Watcher.
type Options struct {
	// Roots are directories watched recursively.
	Roots []string
	// Files are individual files watched through their parent directory.
	Files []string
	// Ignore lists directories whose events never trigger a run (output dirs).
	Ignore   []string
	Debounce time.Duration
	// Interval enables periodic runs when > 0.
	Interval time.Duration
	// SkipInitial suppresses the run performed on start.
	SkipInitial bool
	Logger      *slog.Logger
}

// Watcher triggers serialized runs on relevant filesystem changes.
type Watcher struct {
	opts Options
	run  RunFunc
	log  *slog.Logger

	fsw       *fsnotify.Watcher
	scheduler gocron.Scheduler

	files  map[string]struct{}
	ignore []string

	runMu   sync.Mutex
	stateMu sync.Mutex
	running bool
	pending bool
	timer   *time.Timer
	wg      sync.WaitGroup

	// ready is closed once every watch and the scheduler are registered.
	ready chan struct{}
}

// New creates a watcher; nothing is observed until Run.
func New(run RunFunc, opts Options) (*Watcher, error) {
	if run == nil {
		return nil, fmt.Errorf("watch: nil run function")
	}
	if len(opts.Roots) == 0 && len(opts.Files) == 0 {
		return nil, fmt.Errorf("watch: nothing to watch")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	roots := make([]string, 0, len(opts.Roots))
	for _, r := range opts.Roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", r, err)
		}
		roots = append(roots, abs)
	}
	opts.Roots = roots
	w := &Watcher{opts: opts, run: run, log: opts.Logger, files: map[string]struct{}{}, ready: make(chan struct{})}
	for _, f := range opts.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		w.files[abs] = struct{}{}
	}
	for _, d := range opts.Ignore {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", d, err)
		}
		w.ignore = append(w.ignore, abs)
	}
	return w, nil
}

// Run blocks until ctx is cancelled, then waits for the in-flight run.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsw = fsw
	defer func() { _ = fsw.Close() }()

	for _, root := range w.opts.Roots {
		if err := w.addTree(root); err != nil {
			return err
		}
	}
	for f := range w.files {
		if err := fsw.Add(filepath.Dir(f)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", filepath.Dir(f), err)
		}
	}

	if w.opts.Interval > 0 {
		if err := w.startScheduler(ctx); err != nil {
			return err
		}
		defer func() {
			if err := w.scheduler.Shutdown(); err != nil {
				w.log.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	w.log.Info("Watching for changes",
		slog.Any("roots", w.opts.Roots),
		slog.Duration("debounce", w.opts.Debounce),
		slog.Duration("interval", w.opts.Interval))
	close(w.ready)

	if !w.opts.SkipInitial {
		w.trigger(ctx, ReasonInitial)
	}

	w.loop(ctx)

	w.stateMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.stateMu.Unlock()
	w.wg.Wait()
	return nil
}

func (w *Watcher) startScheduler(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.opts.Interval),
		gocron.NewTask(func() { w.trigger(ctx, ReasonInterval) }),
		gocron.WithName("periodic-generate"),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to create periodic job: %w", err)
	}
	w.scheduler = s
	s.Start()
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && w.underRoot(event.Name) {
			if w.watching(event.Name) {
				return
			}
			if err := w.addTree(event.Name); err != nil {
				w.log.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
			}
			return
		}
	}
	if event.Op == fsnotify.Chmod || !w.relevant(event.Name) {
		return
	}
	w.log.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
	w.debounce(ctx)
}

// debounce restarts the timer so a burst of events yields one run.
func (w *Watcher) debounce(ctx context.Context) {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() { w.trigger(ctx, ReasonChange) })
}

// trigger starts a run or marks one pending if a run is in progress.
func (w *Watcher) trigger(ctx context.Context, reason Reason) {
	if ctx.Err() != nil {
		return
	}
	w.stateMu.Lock()
	if w.running {
		w.pending = true
		w.stateMu.Unlock()
		return
	}
	w.running = true
	w.wg.Add(1)
	w.stateMu.Unlock()

	go func() {
		defer w.wg.Done()
		for {
			w.runOnce(ctx, reason)

			w.stateMu.Lock()
			if !w.pending || ctx.Err() != nil {
				w.running = false
				w.pending = false
				w.stateMu.Unlock()
				return
			}
			w.pending = false
			w.stateMu.Unlock()
			reason = ReasonChange
		}
	}()
}

func (w *Watcher) runOnce(ctx context.Context, reason Reason) {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	start := time.Now()
	w.log.Info("Regenerating", slog.String("reason", string(reason)))
	w.run(ctx, reason)
	w.log.Debug("Regeneration finished", logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if w.ignored(p) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// watching reports whether dir is registered with the file watcher.
func (w *Watcher) watching(dir string) bool {
	for _, p := range w.fsw.WatchList() {
		if p == dir {
			return true
		}
	}
	return false
}

func (w *Watcher) relevant(name string) bool {
	abs, err := filepath.Abs(name)
	if err == nil {
		if _, ok := w.files[abs]; ok {
			return true
		}
	}
	if !w.underRoot(name) {
		return false
	}
	switch filepath.Base(name) {
	case "buf.yaml", "buf.lock", "buf.work.yaml":
		return true
	}
	return strings.HasSuffix(name, ".proto")
}

func (w *Watcher) underRoot(name string) bool {
	for _, r := range w.opts.Roots {
		if within(r, name) {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	for _, d := range w.ignore {
		if within(d, abs) {
			return true
		}
	}
	return false
}

func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "node_modules", "vendor", "__pycache__":
		return true
	}
	return false
}
