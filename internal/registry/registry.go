// Package registry implements the process-wide parser registry and
// factory (spec.md §4.2, §4.3): a singleton tracking every registered
// parser plugin by name, extension, and language, plus lazy loaders
// that defer construction until a plugin is actually needed.
package registry

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/hbollon/go-edlib"
	"github.com/sourcegrid/codeindex/internal/parserapi"
	"github.com/sourcegrid/codeindex/internal/xerrors"
)

// RegisterOptions controls how Register resolves a name collision and
// where the plugin sorts within its extension/language buckets.
type RegisterOptions struct {
	Priority int
	Override bool
}

// info pairs a plugin with its registration metadata; the same *info
// pointer is shared across the primary table and every secondary
// bucket it appears in, so unregister can remove it by identity.
type info struct {
	plugin   parserapi.Plugin
	priority int
	seq      int // registration order, used to break priority ties
}

// Registry is the parser registry singleton (spec.md §4.2). Use
// Instance to obtain the process-wide registry; ResetInstance exists
// solely for tests.
type Registry struct {
	mu          sync.RWMutex
	byName      map[string]*info
	byExtension map[string][]*info
	byLanguage  map[string][]*info
	nextSeq     int
	initialized bool
	disposed    bool
}

func newRegistry() *Registry {
	return &Registry{
		byName:      make(map[string]*info),
		byExtension: make(map[string][]*info),
		byLanguage:  make(map[string][]*info),
	}
}

var (
	instanceMu sync.Mutex
	instance   *Registry
)

// Instance returns the process-wide registry, constructing it on
// first use.
func Instance() *Registry {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = newRegistry()
	}
	return instance
}

// ResetInstance replaces the singleton with a fresh, empty registry.
// Exists solely for testability (spec.md §4.2).
func ResetInstance() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = newRegistry()
}

func sortBucket(bucket []*info) {
	sort.SliceStable(bucket, func(i, j int) bool {
		if bucket[i].priority != bucket[j].priority {
			return bucket[i].priority > bucket[j].priority
		}
		return bucket[i].seq < bucket[j].seq
	})
}

// Register validates plugin against the plugin contract and adds it
// to the primary table plus every extension/language bucket it
// declares. A name collision fails with DuplicateParser unless
// opts.Override is set, in which case the prior entry is unregistered
// first.
func (r *Registry) Register(plugin parserapi.Plugin, opts RegisterOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return xerrors.Disposed("parser registry")
	}

	name := plugin.Name()
	if _, exists := r.byName[name]; exists {
		if !opts.Override {
			return xerrors.DuplicateParser(name)
		}
		r.removeLocked(name)
	}

	entry := &info{plugin: plugin, priority: opts.Priority, seq: r.nextSeq}
	r.nextSeq++
	r.byName[name] = entry

	for _, ext := range plugin.SupportedExtensions() {
		r.byExtension[ext] = append(r.byExtension[ext], entry)
		sortBucket(r.byExtension[ext])
	}
	for _, lang := range plugin.SupportedLanguages() {
		r.byLanguage[lang] = append(r.byLanguage[lang], entry)
		sortBucket(r.byLanguage[lang])
	}
	return nil
}

// Unregister removes name from the primary table and every bucket it
// appears in, dropping buckets that become empty. Fails with
// ParserNotFound if name is unknown.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return xerrors.Disposed("parser registry")
	}
	if _, exists := r.byName[name]; !exists {
		return xerrors.ParserNotFound(name)
	}
	r.removeLocked(name)
	return nil
}

// removeLocked does the bucket surgery for Unregister and for the
// override path of Register. Caller holds r.mu.
func (r *Registry) removeLocked(name string) {
	entry := r.byName[name]
	delete(r.byName, name)

	for ext, bucket := range r.byExtension {
		filtered := filterOut(bucket, entry)
		if len(filtered) == 0 {
			delete(r.byExtension, ext)
		} else {
			r.byExtension[ext] = filtered
		}
	}
	for lang, bucket := range r.byLanguage {
		filtered := filterOut(bucket, entry)
		if len(filtered) == 0 {
			delete(r.byLanguage, lang)
		} else {
			r.byLanguage[lang] = filtered
		}
	}
}

func filterOut(bucket []*info, target *info) []*info {
	out := bucket[:0]
	for _, e := range bucket {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

// GetParser returns the highest-priority plugin registered for ext,
// or nil if none matches.
func (r *Registry) GetParser(ext string) parserapi.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.byExtension[ext]
	if len(bucket) == 0 {
		return nil
	}
	return bucket[0].plugin
}

// GetParserByLanguage returns the highest-priority plugin registered
// for language, or nil if none matches.
func (r *Registry) GetParserByLanguage(language string) parserapi.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.byLanguage[language]
	if len(bucket) == 0 {
		return nil
	}
	return bucket[0].plugin
}

// GetByName returns the plugin registered under name, if any.
func (r *Registry) GetByName(name string) (parserapi.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return entry.plugin, true
}

// Names returns every registered plugin name, used to build a
// "did you mean" suggestion on a lookup miss.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// Suggest returns the closest registered name to query by Levenshtein
// distance, or "" if the registry is empty. Callers attach this as
// xerrors.Error.WithSuggestion on a ParserNotFound/NoParser error.
func (r *Registry) Suggest(query string) string {
	names := r.Names()
	if len(names) == 0 {
		return ""
	}
	best := names[0]
	bestDist := edlib.LevenshteinDistance(query, best)
	for _, n := range names[1:] {
		d := edlib.LevenshteinDistance(query, n)
		if d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// Initialize concurrently validates every registered plugin. A single
// validation failure surfaces as ParserInitialization with the
// underlying cause chained. Idempotent after the first success.
func (r *Registry) Initialize() error {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return xerrors.Disposed("parser registry")
	}
	if r.initialized {
		r.mu.Unlock()
		return nil
	}
	entries := make([]*info, 0, len(r.byName))
	for _, e := range r.byName {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, e := range entries {
		wg.Add(1)
		go func(e *info) {
			defer wg.Done()
			result := e.plugin.Validate()
			if !result.OK {
				mu.Lock()
				if firstErr == nil {
					firstErr = xerrors.ParserInitialization(e.plugin.Name(), joinErrors(result.Errors))
				}
				mu.Unlock()
			}
		}(e)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	r.mu.Lock()
	r.initialized = true
	r.mu.Unlock()
	return nil
}

func joinErrors(msgs []string) error {
	if len(msgs) == 0 {
		return nil
	}
	joined := msgs[0]
	for _, m := range msgs[1:] {
		joined += "; " + m
	}
	return xerrors.ConfigInvalid(joined)
}

// Dispose concurrently calls every plugin's Dispose, logging but not
// aborting on individual failures (Dispose itself cannot fail — it
// has no error return — so this sweep only guards against panics),
// then clears all three tables and marks the registry disposed. Any
// subsequent operation other than a second Dispose or ResetInstance
// fails with "disposed".
func (r *Registry) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	entries := make([]*info, 0, len(r.byName))
	for _, e := range r.byName {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e *info) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					slog.Warn("parser dispose panicked", "parser", e.plugin.Name(), "panic", rec)
				}
			}()
			e.plugin.Dispose()
		}(e)
	}
	wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]*info)
	r.byExtension = make(map[string][]*info)
	r.byLanguage = make(map[string][]*info)
	r.disposed = true
}

// Disposed reports whether Dispose has been called.
func (r *Registry) Disposed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.disposed
}
