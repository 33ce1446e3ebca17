// Package indexengine implements the Indexing Engine (spec.md §4.6):
// the orchestration layer that walks a workspace, drives parser
// plugins, and populates the file and symbol indexes.
package indexengine

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegrid/codeindex/internal/config"
	"github.com/sourcegrid/codeindex/internal/fileindex"
	"github.com/sourcegrid/codeindex/internal/parserapi"
	"github.com/sourcegrid/codeindex/internal/pathutil"
	"github.com/sourcegrid/codeindex/internal/registry"
	"github.com/sourcegrid/codeindex/internal/symbolindex"
	"github.com/sourcegrid/codeindex/internal/types"
	"github.com/sourcegrid/codeindex/internal/xerrors"
	"golang.org/x/sync/errgroup"
)

const defaultBatchSize = 10

// Engine is the indexing engine (spec.md §4.6): it owns one file
// index and one symbol index and drives both from parser plugins
// resolved through a registry.Factory.
type Engine struct {
	config      *config.IndexConfig
	fileIndex   *fileindex.FileIndex
	symbolIndex *symbolindex.Index
	factory     *registry.Factory
	logger      *slog.Logger

	indexed  atomic.Bool
	disposed atomic.Bool
}

// New validates cfg and constructs an Engine backed by factory for
// parser resolution.
func New(cfg *config.IndexConfig, factory *registry.Factory) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config:      cfg,
		fileIndex:   fileindex.New(),
		symbolIndex: symbolindex.New(),
		factory:     factory,
		logger:      slog.Default().With("component", "indexengine"),
	}, nil
}

// Config exposes the engine's configuration for watcher and CLI
// consumers.
func (e *Engine) Config() *config.IndexConfig { return e.config }

// FileIndex exposes the underlying file index for watcher and CLI
// consumers.
func (e *Engine) FileIndex() *fileindex.FileIndex { return e.fileIndex }

// SymbolIndex exposes the underlying symbol index for watcher and CLI
// consumers.
func (e *Engine) SymbolIndex() *symbolindex.Index { return e.symbolIndex }

// IndexProject resolves root (the argument, falling back to
// config.WorkspacePath), validates it names a directory, and delegates
// to IndexDirectory.
func (e *Engine) IndexProject(root string) error {
	if root == "" {
		root = e.config.WorkspacePath
	}
	if root == "" {
		return xerrors.PathUnusable("index path must be a valid string")
	}

	stat, err := os.Stat(root)
	if err != nil {
		return xerrors.PathUnusable("path does not exist").WithFile(root)
	}
	if !stat.IsDir() {
		return xerrors.PathUnusable("index path must be a directory").WithFile(root)
	}

	if err := e.IndexDirectory(root); err != nil {
		return err
	}
	e.indexed.Store(true)
	return nil
}

// IndexDirectory discovers every file under dir matching the
// configured include/exclude rules, indexes them through
// BatchIndexFiles, then removes index entries for any previously
// indexed path no longer present on disk.
func (e *Engine) IndexDirectory(dir string) error {
	files, err := discoverFiles(dir, e.config.IncludeExtensions, e.config.ExcludePatterns)
	if err != nil {
		return xerrors.PathUnusable("failed to walk index path").WithFile(dir).WithCause(err)
	}

	e.BatchIndexFiles(files, BatchOptions{Concurrency: e.config.MaxConcurrency, BatchSize: defaultBatchSize})
	e.cleanupOrphans(files)
	e.indexed.Store(true)
	return nil
}

func discoverFiles(dir string, includeExtensions, excludePatterns []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if rel != "." && pathutil.MatchesAny(rel, excludePatterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if pathutil.ShouldIndexFile(rel, includeExtensions, excludePatterns) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (e *Engine) cleanupOrphans(discovered []string) {
	present := make(map[string]bool, len(discovered))
	for _, f := range discovered {
		present[f] = true
	}
	for _, path := range e.fileIndex.GetAllFiles() {
		if !present[path] {
			e.symbolIndex.RemoveFileSymbols(path)
			e.fileIndex.RemoveFile(path)
		}
	}
}

// ProgressUpdate reports BatchIndexFiles progress after each completed
// task (spec.md §4.6).
type ProgressUpdate struct {
	TotalFiles     int
	ProcessedFiles int
	CurrentFile    string
	Percentage     float64
	Errors         []string
}

// BatchOptions configures BatchIndexFiles.
type BatchOptions struct {
	Concurrency      int
	BatchSize        int
	ProgressCallback func(ProgressUpdate)
}

// BatchResult summarizes a BatchIndexFiles run.
type BatchResult struct {
	Errors []string
}

// BatchIndexFiles partitions files into chunks of opts.BatchSize and
// indexes each chunk with no more than opts.Concurrency tasks running
// simultaneously. A failing file is recorded in the result's Errors
// but never aborts its siblings.
func (e *Engine) BatchIndexFiles(files []string, opts BatchOptions) BatchResult {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = e.config.MaxConcurrency
	}

	total := len(files)
	var processed int64
	var mu sync.Mutex
	var errs []string

	for start := 0; start < len(files); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(files) {
			end = len(files)
		}
		chunk := files[start:end]

		var g errgroup.Group
		g.SetLimit(opts.Concurrency)
		for _, path := range chunk {
			path := path
			g.Go(func() error {
				taskErr := e.IndexFile(path)
				n := atomic.AddInt64(&processed, 1)

				mu.Lock()
				if taskErr != nil {
					errs = append(errs, taskErr.Error())
				}
				snapshot := append([]string(nil), errs...)
				mu.Unlock()

				if opts.ProgressCallback != nil {
					opts.ProgressCallback(ProgressUpdate{
						TotalFiles:     total,
						ProcessedFiles: int(n),
						CurrentFile:    path,
						Percentage:     float64(n) / float64(total) * 100,
						Errors:         snapshot,
					})
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	if len(errs) > 0 {
		e.logger.Warn("batch indexing completed with errors", "count", len(errs))
	}
	return BatchResult{Errors: errs}
}

// IndexFile parses a single file and writes its symbols and
// dependencies into both indexes. A file over maxFileSize is skipped
// silently, not treated as an error.
func (e *Engine) IndexFile(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return xerrors.IndexingFailed(path, err.Error())
	}
	if stat.Size() > e.config.MaxFileSize {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return xerrors.IndexingFailed(path, err.Error())
	}

	ext := pathutil.ExtensionOf(path)
	info := types.FileInfo{
		FilePath:     path,
		LastModified: stat.ModTime().UnixNano(),
		Size:         stat.Size(),
		Extension:    ext,
		Language:     pathutil.LanguageForExtension(ext),
		Checksum:     pathutil.Checksum(content),
	}
	if err := e.fileIndex.AddFile(info); err != nil {
		return xerrors.IndexingFailed(path, err.Error())
	}
	e.indexed.Store(true)

	plugin, err := e.factory.CreateParser(path)
	if err != nil {
		return xerrors.IndexingFailed(path, err.Error())
	}
	if plugin == nil {
		return xerrors.IndexingFailed(path, xerrors.NoParser(path).Error())
	}

	if err := e.parseAndIndex(path, content, info, plugin); err != nil {
		return xerrors.IndexingFailed(path, err.Error())
	}
	return nil
}

func (e *Engine) parseAndIndex(path string, content []byte, info types.FileInfo, plugin parserapi.Plugin) error {
	ast, err := plugin.Parse(content, path)
	if err != nil {
		e.fileIndex.SetFileParseErrors(path, []string{err.Error()})
		return xerrors.ParseFailed(path, err.Error())
	}
	symbols, err := plugin.ExtractSymbols(ast)
	if err != nil {
		e.fileIndex.SetFileParseErrors(path, []string{err.Error()})
		return xerrors.ParseFailed(path, err.Error())
	}
	deps, err := plugin.ExtractDependencies(ast)
	if err != nil {
		e.fileIndex.SetFileParseErrors(path, []string{err.Error()})
		return xerrors.ParseFailed(path, err.Error())
	}

	if err := e.fileIndex.SetFileSymbols(path, symbols); err != nil {
		return err
	}
	if err := e.fileIndex.SetFileDependencies(path, deps); err != nil {
		return err
	}

	entries := make([]types.SymbolIndexEntry, len(symbols))
	for i, s := range symbols {
		entries[i] = types.SymbolIndexEntry{Symbol: s, FileInfo: info, Dependencies: deps}
	}
	e.symbolIndex.AddSymbols(entries)
	return nil
}

// UpdateFile re-indexes path, first removing its prior entries if it
// was already indexed.
func (e *Engine) UpdateFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return xerrors.IndexingFailed(path, err.Error())
	}
	if e.fileIndex.HasFile(path) {
		if err := e.RemoveFile(path); err != nil {
			return err
		}
	}
	return e.IndexFile(path)
}

// RemoveFile drops path's symbols and file-index entry.
func (e *Engine) RemoveFile(path string) error {
	e.symbolIndex.RemoveFileSymbols(path)
	e.fileIndex.RemoveFile(path)
	return nil
}

// NeedsReindexing reports whether path should be reparsed. A stat
// failure (the file is gone) reports true iff the path is still
// present in the file index, marking it for orphan cleanup.
func (e *Engine) NeedsReindexing(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return e.fileIndex.HasFile(path)
	}
	return e.fileIndex.NeedsReindexing(path, stat.ModTime())
}

// IsIndexed reports whether path has completed indexing.
func (e *Engine) IsIndexed(path string) bool {
	return e.fileIndex.IsFileIndexed(path)
}

func (e *Engine) guard() error {
	if e.disposed.Load() {
		return xerrors.Disposed("indexing engine")
	}
	return nil
}

// FindSymbol delegates to the symbol index's exact byName lookup.
// Fails if the engine is disposed; returns an empty result before the
// first successful indexing pass.
func (e *Engine) FindSymbol(name string, maxResults int) ([]symbolindex.SearchResult, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if !e.indexed.Load() {
		return nil, nil
	}
	return e.symbolIndex.FindSymbol(name, maxResults), nil
}

// FindSymbolsByType delegates to the symbol index's exact byKind
// lookup, with the same guards as FindSymbol.
func (e *Engine) FindSymbolsByType(kind types.SymbolKind, maxResults int) ([]symbolindex.SearchResult, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if !e.indexed.Load() {
		return nil, nil
	}
	return e.symbolIndex.FindSymbolsByType(kind, maxResults), nil
}

// SearchSymbols delegates to the symbol index's fuzzy/substring
// search, with the same guards as FindSymbol.
func (e *Engine) SearchSymbols(pattern string, opts symbolindex.SearchOptions) ([]symbolindex.SearchResult, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if !e.indexed.Load() {
		return nil, nil
	}
	return e.symbolIndex.SearchSymbols(pattern, opts), nil
}

// IndexStats aggregates the file and symbol indexes' own stats into
// the single view the engine API exposes (spec.md §6).
type IndexStats struct {
	TotalFiles        int
	IndexedFiles      int
	TotalSymbols      int
	TotalDependencies int
	IndexSize         int64
	LastUpdated       time.Time
	SymbolsByType     map[types.SymbolKind]int
	SymbolsByFile     map[string]int
}

// GetStats reports combined file and symbol index statistics. Unlike
// FindSymbol and friends it is available before the first indexing
// pass and after Clear, reporting zero counts in either case.
func (e *Engine) GetStats() (IndexStats, error) {
	if err := e.guard(); err != nil {
		return IndexStats{}, err
	}
	fileStats := e.fileIndex.GetStats()
	symbolStats := e.symbolIndex.GetStats()
	return IndexStats{
		TotalFiles:        fileStats.TotalFiles,
		IndexedFiles:      fileStats.IndexedFiles,
		TotalSymbols:      symbolStats.TotalSymbols,
		TotalDependencies: fileStats.TotalDependencies,
		IndexSize:         fileStats.IndexSize,
		LastUpdated:       fileStats.LastUpdated,
		SymbolsByType:     symbolStats.SymbolsByType,
		SymbolsByFile:     symbolStats.SymbolsByFile,
	}, nil
}

// Clear empties both indexes and resets the indexed flag, returning
// the engine to the same state as a freshly constructed one. Unlike
// Dispose it is non-terminal: the engine remains usable and a
// subsequent IndexFile or IndexProject call reindexes normally.
func (e *Engine) Clear() error {
	if err := e.guard(); err != nil {
		return err
	}
	e.fileIndex.Clear()
	e.symbolIndex.Clear()
	e.indexed.Store(false)
	return nil
}

// Dispose clears both indexes and marks the engine disposed. Repeat
// calls are no-ops.
func (e *Engine) Dispose() {
	if e.disposed.Swap(true) {
		return
	}
	e.fileIndex.Clear()
	e.symbolIndex.Clear()
}
