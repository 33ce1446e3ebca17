// Package fileindex implements the File Index (spec.md §4.4): a
// filePath → FileIndexEntry map with explicit setters for each facet
// of an entry, and an update-event stream mirroring the teacher's
// cache-subsystem event pattern.
package fileindex

import (
	"sort"
	"sync"
	"time"

	"github.com/sourcegrid/codeindex/internal/debug"
	"github.com/sourcegrid/codeindex/internal/types"
	"github.com/sourcegrid/codeindex/internal/xerrors"
)

// reindexSlack absorbs filesystem timestamp rounding (spec.md §4.4).
const reindexSlack = time.Second

// Stats is the getStats snapshot (spec.md §4.4). IndexSize is an
// estimated byte footprint, not authoritative.
type Stats struct {
	TotalFiles        int
	IndexedFiles      int
	TotalSymbols      int
	TotalDependencies int
	LastUpdated       time.Time
	IndexSize         int64
}

// FileIndex is a keyed map of filePath → *types.FileIndexEntry plus
// the operations spec.md §4.4 names.
type FileIndex struct {
	mu      sync.RWMutex
	entries map[string]*types.FileIndexEntry

	listeners []Listener
	updated   time.Time
}

// New constructs an empty file index.
func New() *FileIndex {
	return &FileIndex{entries: make(map[string]*types.FileIndexEntry)}
}

// AddListener subscribes to update events. Subscription is optional;
// the index never blocks or rejects a mutation for lack of listeners.
func (fi *FileIndex) AddListener(l Listener) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.listeners = append(fi.listeners, l)
}

func (fi *FileIndex) emit(ev UpdateEvent) {
	fi.mu.RLock()
	listeners := make([]Listener, len(fi.listeners))
	copy(listeners, fi.listeners)
	fi.mu.RUnlock()

	for _, l := range listeners {
		fi.dispatch(l, ev)
	}
}

func (fi *FileIndex) dispatch(l Listener, ev UpdateEvent) {
	defer func() {
		if r := recover(); r != nil {
			debug.LogIndex("file index listener panicked: %v", r)
		}
	}()
	l(ev)
}

func (fi *FileIndex) touch() {
	fi.updated = time.Now()
}

// AddFile creates a new entry for info.FilePath, or replaces the
// FileInfo of an existing one while preserving its symbols,
// dependencies, and parse errors.
func (fi *FileIndex) AddFile(info types.FileInfo) error {
	fi.mu.Lock()
	if err := info.Validate(); err != nil {
		fi.mu.Unlock()
		fi.emit(UpdateEvent{Operation: OpAdd, FilePath: info.FilePath, Timestamp: time.Now(), Success: false, Error: err})
		return err
	}

	entry, exists := fi.entries[info.FilePath]
	if exists {
		entry.Info = info
	} else {
		fi.entries[info.FilePath] = &types.FileIndexEntry{Info: info}
	}
	fi.touch()
	fi.mu.Unlock()

	op := OpAdd
	if exists {
		op = OpUpdate
	}
	fi.emit(UpdateEvent{Operation: op, FilePath: info.FilePath, Timestamp: time.Now(), Success: true})
	return nil
}

// RemoveFile deletes path's entry, if present. Always succeeds (a
// missing path is not an error), matching the cascading-delete
// contract the symbol index relies on.
func (fi *FileIndex) RemoveFile(path string) {
	fi.mu.Lock()
	delete(fi.entries, path)
	fi.touch()
	fi.mu.Unlock()

	fi.emit(UpdateEvent{Operation: OpDelete, FilePath: path, Timestamp: time.Now(), Success: true})
}

// HasFile reports whether path is present in the index.
func (fi *FileIndex) HasFile(path string) bool {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	_, ok := fi.entries[path]
	return ok
}

// IsFileIndexed reports whether path has completed at least one
// successful SetFileSymbols call.
func (fi *FileIndex) IsFileIndexed(path string) bool {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	entry, ok := fi.entries[path]
	return ok && entry.IsIndexed
}

// GetFileInfo returns path's FileInfo, if present.
func (fi *FileIndex) GetFileInfo(path string) (types.FileInfo, bool) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	entry, ok := fi.entries[path]
	if !ok {
		return types.FileInfo{}, false
	}
	return entry.Info, true
}

// SetFileSymbols replaces path's symbol list wholesale. IsIndexed
// becomes true exactly when this completes without error (spec.md
// §4.4/§3). Fails with FileNotInIndex if path was never added.
func (fi *FileIndex) SetFileSymbols(path string, symbols []types.Symbol) error {
	fi.mu.Lock()
	entry, ok := fi.entries[path]
	if !ok {
		fi.mu.Unlock()
		err := xerrors.FileNotInIndex(path)
		fi.emit(UpdateEvent{Operation: OpUpdate, FilePath: path, Timestamp: time.Now(), Success: false, Error: err})
		return err
	}
	entry.Symbols = symbols
	entry.IsIndexed = true
	now := time.Now()
	entry.LastIndexed = &now
	fi.touch()
	fi.mu.Unlock()

	fi.emit(UpdateEvent{Operation: OpUpdate, FilePath: path, Timestamp: time.Now(), Success: true})
	return nil
}

// GetFileSymbols returns path's symbols, if path is in the index.
func (fi *FileIndex) GetFileSymbols(path string) ([]types.Symbol, bool) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	entry, ok := fi.entries[path]
	if !ok {
		return nil, false
	}
	return entry.Symbols, true
}

// SetFileDependencies replaces path's dependency list wholesale.
// Fails with FileNotInIndex if path was never added.
func (fi *FileIndex) SetFileDependencies(path string, deps []types.Dependency) error {
	fi.mu.Lock()
	entry, ok := fi.entries[path]
	if !ok {
		fi.mu.Unlock()
		err := xerrors.FileNotInIndex(path)
		fi.emit(UpdateEvent{Operation: OpUpdate, FilePath: path, Timestamp: time.Now(), Success: false, Error: err})
		return err
	}
	entry.Dependencies = deps
	fi.touch()
	fi.mu.Unlock()

	fi.emit(UpdateEvent{Operation: OpUpdate, FilePath: path, Timestamp: time.Now(), Success: true})
	return nil
}

// GetFileDependencies returns path's dependencies, if present.
func (fi *FileIndex) GetFileDependencies(path string) ([]types.Dependency, bool) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	entry, ok := fi.entries[path]
	if !ok {
		return nil, false
	}
	return entry.Dependencies, true
}

// SetFileParseErrors replaces path's recorded parse errors wholesale.
// Fails with FileNotInIndex if path was never added.
func (fi *FileIndex) SetFileParseErrors(path string, errs []string) error {
	fi.mu.Lock()
	entry, ok := fi.entries[path]
	if !ok {
		fi.mu.Unlock()
		err := xerrors.FileNotInIndex(path)
		fi.emit(UpdateEvent{Operation: OpUpdate, FilePath: path, Timestamp: time.Now(), Success: false, Error: err})
		return err
	}
	entry.ParseErrors = errs
	fi.touch()
	fi.mu.Unlock()

	fi.emit(UpdateEvent{Operation: OpUpdate, FilePath: path, Timestamp: time.Now(), Success: true})
	return nil
}

// GetFileParseErrors returns path's recorded parse errors, if present.
func (fi *FileIndex) GetFileParseErrors(path string) ([]string, bool) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	entry, ok := fi.entries[path]
	if !ok {
		return nil, false
	}
	return entry.ParseErrors, true
}

// HasFileParseErrors reports whether path has any recorded parse
// errors.
func (fi *FileIndex) HasFileParseErrors(path string) bool {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	entry, ok := fi.entries[path]
	return ok && len(entry.ParseErrors) > 0
}

// UpdateFileInfo is an alias for AddFile's replace-path: it updates
// an existing entry's FileInfo without touching its symbols or
// dependencies. Fails with FileNotInIndex if path was never added.
func (fi *FileIndex) UpdateFileInfo(path string, info types.FileInfo) error {
	fi.mu.Lock()
	entry, ok := fi.entries[path]
	if !ok {
		fi.mu.Unlock()
		err := xerrors.FileNotInIndex(path)
		fi.emit(UpdateEvent{Operation: OpUpdate, FilePath: path, Timestamp: time.Now(), Success: false, Error: err})
		return err
	}
	if err := info.Validate(); err != nil {
		fi.mu.Unlock()
		fi.emit(UpdateEvent{Operation: OpUpdate, FilePath: path, Timestamp: time.Now(), Success: false, Error: err})
		return err
	}
	entry.Info = info
	fi.touch()
	fi.mu.Unlock()

	fi.emit(UpdateEvent{Operation: OpUpdate, FilePath: path, Timestamp: time.Now(), Success: true})
	return nil
}

// FindFilesByExtension returns every indexed path whose FileInfo.Extension
// equals ext, sorted for deterministic output.
func (fi *FileIndex) FindFilesByExtension(ext string) []string {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	var out []string
	for path, entry := range fi.entries {
		if entry.Info.Extension == ext {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// FindFilesByLanguage returns every indexed path whose FileInfo.Language
// equals language, sorted for deterministic output.
func (fi *FileIndex) FindFilesByLanguage(language string) []string {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	var out []string
	for path, entry := range fi.entries {
		if entry.Info.Language == language {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// GetAllFiles returns every indexed path, sorted for deterministic
// output.
func (fi *FileIndex) GetAllFiles() []string {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	out := make([]string, 0, len(fi.entries))
	for path := range fi.entries {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// GetTotalFiles returns the number of entries in the index,
// regardless of indexed state.
func (fi *FileIndex) GetTotalFiles() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return len(fi.entries)
}

// GetIndexedFilesCount returns the number of entries whose IsIndexed
// flag is set.
func (fi *FileIndex) GetIndexedFilesCount() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	count := 0
	for _, entry := range fi.entries {
		if entry.IsIndexed {
			count++
		}
	}
	return count
}

// GetStats returns a snapshot of the index's size (spec.md §4.4).
// IndexSize is a coarse heuristic for capacity reporting, not
// authoritative: path length × 2, plus ~64 bytes per FileInfo, ~128
// per Symbol, ~64 per Dependency.
func (fi *FileIndex) GetStats() Stats {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	stats := Stats{LastUpdated: fi.updated}
	for path, entry := range fi.entries {
		stats.TotalFiles++
		if entry.IsIndexed {
			stats.IndexedFiles++
		}
		stats.TotalSymbols += len(entry.Symbols)
		stats.TotalDependencies += len(entry.Dependencies)

		stats.IndexSize += int64(len(path))*2 + 64
		stats.IndexSize += int64(len(entry.Symbols)) * 128
		stats.IndexSize += int64(len(entry.Dependencies)) * 64
	}
	return stats
}

// Clear empties the index. It emits no UpdateEvent.
func (fi *FileIndex) Clear() {
	fi.mu.Lock()
	fi.entries = make(map[string]*types.FileIndexEntry)
	fi.touch()
	fi.mu.Unlock()
}

// NeedsReindexing reports whether path should be reparsed: true when
// the file is absent from the index, when it has never completed
// indexing, or when currentMTime has advanced more than one second
// past the stored LastModified (spec.md §4.4's filesystem-rounding
// slack).
func (fi *FileIndex) NeedsReindexing(path string, currentMTime time.Time) bool {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	entry, ok := fi.entries[path]
	if !ok {
		return true
	}
	if !entry.IsIndexed {
		return true
	}
	delta := currentMTime.Sub(time.Unix(0, entry.Info.LastModified))
	return delta > reindexSlack
}
