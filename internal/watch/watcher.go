// Package watch provides a debounced filesystem watcher that keeps an
// indexing engine in sync with on-disk changes. Its debounce mechanics
// are modeled directly on the teacher's internal/indexing eventDebouncer:
// a single coalescing map plus one timer, reset on every incoming event.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/sourcegrid/codeindex/internal/debug"
	"github.com/sourcegrid/codeindex/internal/indexengine"
	"github.com/sourcegrid/codeindex/internal/pathutil"
)

// ChangeKind classifies a filesystem change the way the engine's public
// API expects it to be dispatched.
type ChangeKind string

const (
	KindAdd    ChangeKind = "add"
	KindChange ChangeKind = "change"
	KindUnlink ChangeKind = "unlink"
)

// ChangeItem is one path/kind pair queued for batch dispatch.
type ChangeItem struct {
	Path string
	Kind ChangeKind
}

// FileChangedEvent is emitted to listeners whenever a change is about
// to be dispatched to the engine, regardless of the outcome.
type FileChangedEvent struct {
	Path      string
	Kind      ChangeKind
	Timestamp time.Time
}

type FileChangedListener func(FileChangedEvent)
type ErrorListener func(error)

type state int

const (
	stateStarted state = iota
	statePaused
	stateDisposed
)

const defaultDebounce = 200 * time.Millisecond

// Watcher watches a workspace rooted at a directory and feeds add/
// change/unlink events to an indexengine.Engine, debounced and
// deduplicated by path.
type Watcher struct {
	fsWatcher      *fsnotify.Watcher
	engine         *indexengine.Engine
	debounce       time.Duration
	maxConcurrency int
	excludes       []string

	mu      sync.Mutex
	state   state
	pending map[string]ChangeKind
	timer   *time.Timer

	fingerprintsMu sync.Mutex
	fingerprints   map[string]uint64

	listenersMu          sync.Mutex
	fileChangedListeners []FileChangedListener
	errorListeners       []ErrorListener

	done chan struct{}
	wg   sync.WaitGroup
}

// New builds a Watcher driving the given engine. debounceMs <= 0 falls
// back to a 200ms quiet window; maxConcurrency <= 0 falls back to 1.
func New(engine *indexengine.Engine, excludePatterns []string, debounceMs, maxConcurrency int) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := defaultDebounce
	if debounceMs > 0 {
		debounce = time.Duration(debounceMs) * time.Millisecond
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Watcher{
		fsWatcher:      fsw,
		engine:         engine,
		debounce:       debounce,
		maxConcurrency: maxConcurrency,
		excludes:       excludePatterns,
		pending:        make(map[string]ChangeKind),
		fingerprints:   make(map[string]uint64),
		done:           make(chan struct{}),
	}, nil
}

// OnFileChanged registers a listener invoked before every dispatch.
func (w *Watcher) OnFileChanged(l FileChangedListener) {
	w.listenersMu.Lock()
	defer w.listenersMu.Unlock()
	w.fileChangedListeners = append(w.fileChangedListeners, l)
}

// OnError registers a listener invoked whenever a dispatch to the
// engine fails, or the underlying fsnotify watcher reports an error.
func (w *Watcher) OnError(l ErrorListener) {
	w.listenersMu.Lock()
	defer w.listenersMu.Unlock()
	w.errorListeners = append(w.errorListeners, l)
}

// Start begins watching root and all of its subdirectories. It
// returns once the initial recursive watch set has been installed;
// events are processed on a background goroutine.
func (w *Watcher) Start(root string) error {
	if err := w.addWatches(root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.processEvents()
	return nil
}

func (w *Watcher) addWatches(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && pathutil.MatchesAny(rel, w.excludes) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.emitError(err)
		}
	}
}

func classify(op fsnotify.Op) (ChangeKind, bool) {
	switch {
	case op&fsnotify.Remove != 0:
		return KindUnlink, true
	case op&fsnotify.Create != 0:
		return KindAdd, true
	case op&fsnotify.Write != 0, op&fsnotify.Rename != 0:
		return KindChange, true
	default:
		return "", false
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	kind, ok := classify(event.Op)
	if !ok {
		return
	}
	if kind == KindUnlink {
		w.queue(event.Name, KindUnlink)
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// The path vanished between the event firing and the stat;
		// treat it the same as an explicit remove.
		w.queue(event.Name, KindUnlink)
		return
	}
	if info.IsDir() {
		if kind == KindAdd {
			if err := w.fsWatcher.Add(event.Name); err != nil {
				w.emitError(err)
			}
		}
		return
	}
	w.queue(event.Name, kind)
}

// queue coalesces path into the pending map (last event for a path
// wins) and resets the single debounce timer, exactly as the
// teacher's eventDebouncer.addEvent does.
func (w *Watcher) queue(path string, kind ChangeKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != stateStarted {
		return
	}
	w.pending[path] = kind
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// flush drains the pending map and dispatches it as one batch. Like
// the teacher, it does not attempt to flush again on shutdown: doing
// so risks racing engine teardown with in-flight dispatches.
func (w *Watcher) flush() {
	w.mu.Lock()
	if w.state == stateDisposed {
		w.mu.Unlock()
		return
	}
	pending := w.pending
	w.pending = make(map[string]ChangeKind)
	w.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	items := make([]ChangeItem, 0, len(pending))
	for path, kind := range pending {
		items = append(items, ChangeItem{Path: path, Kind: kind})
	}
	w.HandleBatchChanges(items, w.maxConcurrency)
}

// HandleBatchChanges groups items by kind and dispatches each group
// with up to maxConcurrency dispatches in flight at once. Groups are
// processed removes, then changes, then adds, mirroring the order the
// teacher's debouncer flushes its own grouped callbacks in.
func (w *Watcher) HandleBatchChanges(items []ChangeItem, maxConcurrency int) {
	if maxConcurrency <= 0 {
		maxConcurrency = w.maxConcurrency
	}
	groups := map[ChangeKind][]string{}
	for _, item := range items {
		groups[item.Kind] = append(groups[item.Kind], item.Path)
	}

	for _, kind := range [...]ChangeKind{KindUnlink, KindChange, KindAdd} {
		paths := groups[kind]
		if len(paths) == 0 {
			continue
		}
		var g errgroup.Group
		g.SetLimit(maxConcurrency)
		for _, path := range paths {
			path := path
			kind := kind
			g.Go(func() error {
				w.handleFileChange(path, kind)
				return nil
			})
		}
		_ = g.Wait()
	}
}

// handleFileChange dispatches a single path/kind pair to the engine.
// Errors never propagate to the caller: they are reported to error
// listeners so a single bad file can never take the watcher down.
func (w *Watcher) handleFileChange(path string, kind ChangeKind) {
	w.mu.Lock()
	st := w.state
	w.mu.Unlock()
	if st != stateStarted {
		return
	}

	w.emitFileChanged(FileChangedEvent{Path: path, Kind: kind, Timestamp: time.Now()})

	var err error
	switch kind {
	case KindAdd:
		err = w.engine.IndexFile(path)
	case KindChange:
		if w.unchanged(path) {
			debug.LogWatch("skip unchanged %s", path)
			return
		}
		err = w.engine.UpdateFile(path)
	case KindUnlink:
		w.forgetFingerprint(path)
		err = w.engine.RemoveFile(path)
	}
	if err != nil {
		w.emitError(err)
	}
}

// unchanged short-circuits a change event when the file's content
// matches what is already indexed. The xxhash fingerprint is cheap to
// compute and catches the common case (content genuinely differs)
// without touching SHA-256; only a fingerprint match falls through to
// the authoritative checksum comparison against the file index.
func (w *Watcher) unchanged(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	fp := pathutil.FastFingerprint(content)

	w.fingerprintsMu.Lock()
	prev, known := w.fingerprints[path]
	w.fingerprintsMu.Unlock()

	if !known || prev != fp {
		w.rememberFingerprint(path, fp)
		return false
	}

	info, ok := w.engine.FileIndex().GetFileInfo(path)
	if !ok {
		return false
	}
	return pathutil.Checksum(content) == info.Checksum
}

func (w *Watcher) rememberFingerprint(path string, fp uint64) {
	w.fingerprintsMu.Lock()
	w.fingerprints[path] = fp
	w.fingerprintsMu.Unlock()
}

func (w *Watcher) forgetFingerprint(path string) {
	w.fingerprintsMu.Lock()
	delete(w.fingerprints, path)
	w.fingerprintsMu.Unlock()
}

func (w *Watcher) emitFileChanged(ev FileChangedEvent) {
	w.listenersMu.Lock()
	listeners := append([]FileChangedListener(nil), w.fileChangedListeners...)
	w.listenersMu.Unlock()
	for _, l := range listeners {
		w.dispatchFileChanged(l, ev)
	}
}

func (w *Watcher) dispatchFileChanged(l FileChangedListener, ev FileChangedEvent) {
	defer func() {
		if r := recover(); r != nil {
			debug.LogWatch("file-changed listener panicked: %v", r)
		}
	}()
	l(ev)
}

func (w *Watcher) emitError(err error) {
	w.listenersMu.Lock()
	listeners := append([]ErrorListener(nil), w.errorListeners...)
	w.listenersMu.Unlock()
	for _, l := range listeners {
		w.dispatchError(l, err)
	}
}

func (w *Watcher) dispatchError(l ErrorListener, err error) {
	defer func() {
		if r := recover(); r != nil {
			debug.LogWatch("error listener panicked: %v", r)
		}
	}()
	l(err)
}

// Pause stops new filesystem events from being queued. Events that
// arrive while paused are dropped, not buffered for later replay.
func (w *Watcher) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == stateStarted {
		w.state = statePaused
	}
}

// Resume lets a paused watcher process events again.
func (w *Watcher) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == statePaused {
		w.state = stateStarted
	}
}

// Paused reports whether the watcher is currently paused.
func (w *Watcher) Paused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == statePaused
}

// Disposed reports whether Stop has been called.
func (w *Watcher) Disposed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == stateDisposed
}

// Stop tears down the underlying fsnotify watcher and waits for the
// event-processing goroutine to exit. It does not cancel or wait for
// dispatches already in flight. Stop is idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.state == stateDisposed {
		w.mu.Unlock()
		return nil
	}
	w.state = stateDisposed
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}
