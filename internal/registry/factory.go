package registry

import (
	"path/filepath"
	"sync"

	"github.com/sourcegrid/codeindex/internal/parserapi"
)

// Loader lazily constructs a plugin on first demand.
type Loader func() (parserapi.Plugin, error)

type loaderEntry struct {
	load     Loader
	priority int
}

// Factory is the thin construction layer above a Registry (spec.md
// §4.3): callers pre-register lazy loaders keyed by extension,
// language, or name, and CreateParser resolves an extension to a
// plugin, constructing and registering it on first use.
type Factory struct {
	registry *Registry

	mu          sync.Mutex
	byExtension map[string]loaderEntry
	byLanguage  map[string]loaderEntry
	byName      map[string]loaderEntry
}

// NewFactory builds a Factory backed by registry.
func NewFactory(registry *Registry) *Factory {
	return &Factory{
		registry:    registry,
		byExtension: make(map[string]loaderEntry),
		byLanguage:  make(map[string]loaderEntry),
		byName:      make(map[string]loaderEntry),
	}
}

// RegisterLoader installs loader under ext, language, and name — any
// of which may be empty to skip that key — at the registry's default
// priority (0).
func (f *Factory) RegisterLoader(ext, language, name string, loader Loader) {
	f.RegisterLoaderWithPriority(ext, language, name, 0, loader)
}

// RegisterLoaderWithPriority is RegisterLoader with an explicit
// registration priority, used for loaders (e.g. community-maintained
// grammars) that should rank below officially supported plugins
// sharing the same extension.
func (f *Factory) RegisterLoaderWithPriority(ext, language, name string, priority int, loader Loader) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := loaderEntry{load: loader, priority: priority}
	if ext != "" {
		f.byExtension[ext] = entry
	}
	if language != "" {
		f.byLanguage[language] = entry
	}
	if name != "" {
		f.byName[name] = entry
	}
}

// CreateParser resolves filePath's extension to a plugin: an already
// registered plugin wins; otherwise a matching lazy loader is
// invoked, its product registered, and returned; otherwise nil.
func (f *Factory) CreateParser(filePath string) (parserapi.Plugin, error) {
	ext := filepath.Ext(filePath)

	if plugin := f.registry.GetParser(ext); plugin != nil {
		return plugin, nil
	}

	f.mu.Lock()
	entry, ok := f.byExtension[ext]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}

	plugin, err := entry.load()
	if err != nil {
		return nil, err
	}
	if err := f.registry.Register(plugin, RegisterOptions{Priority: entry.priority}); err != nil {
		return nil, err
	}
	return plugin, nil
}

// CreateByLanguage resolves language the same way CreateParser
// resolves an extension.
func (f *Factory) CreateByLanguage(language string) (parserapi.Plugin, error) {
	if plugin := f.registry.GetParserByLanguage(language); plugin != nil {
		return plugin, nil
	}

	f.mu.Lock()
	entry, ok := f.byLanguage[language]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}

	plugin, err := entry.load()
	if err != nil {
		return nil, err
	}
	if err := f.registry.Register(plugin, RegisterOptions{Priority: entry.priority}); err != nil {
		return nil, err
	}
	return plugin, nil
}

// CreateByName resolves a plugin by its registered (or lazily
// loadable) name.
func (f *Factory) CreateByName(name string) (parserapi.Plugin, error) {
	if plugin, ok := f.registry.GetByName(name); ok {
		return plugin, nil
	}

	f.mu.Lock()
	entry, ok := f.byName[name]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}

	plugin, err := entry.load()
	if err != nil {
		return nil, err
	}
	if err := f.registry.Register(plugin, RegisterOptions{Priority: entry.priority}); err != nil {
		return nil, err
	}
	return plugin, nil
}
