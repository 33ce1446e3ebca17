// Package parserapi defines the polymorphic parser plugin contract
// (spec.md §4.1): every language parser, whether tree-sitter-backed or
// otherwise, implements Plugin and is interchangeable from the
// registry's point of view.
package parserapi

import (
	"github.com/sourcegrid/codeindex/internal/types"
)

// AST is an opaque handle a plugin hands back to the caller from
// Parse. Other components never inspect it; they pass it back into
// the same plugin's subsequent calls unchanged. A plugin must not
// mutate an AST it has already returned, unless the operation that
// receives it is explicitly documented to do so (none currently are).
type AST interface{}

// Capabilities declares which optional operations a plugin supports,
// so callers can gate features instead of calling blind and handling
// a "not supported" error.
type Capabilities struct {
	SupportsRename          bool
	SupportsExtractFunction bool
	SupportsGoToDefinition  bool
	SupportsFindUsages      bool
	SupportsCodeActions     bool
}

// Plugin is the fixed capability set every parser exposes (spec.md
// §4.1). Name, Version, SupportedExtensions, and SupportedLanguages
// are identity fields and must not change after constuction.
type Plugin interface {
	Name() string
	Version() string
	SupportedExtensions() []string
	SupportedLanguages() []string
	Capabilities() Capabilities

	// Parse turns source into an opaque AST, or fails with a
	// *types.ParseError carrying a location.
	Parse(source []byte, filePath string) (AST, error)

	ExtractSymbols(ast AST) ([]types.Symbol, error)
	ExtractDependencies(ast AST) ([]types.Dependency, error)
	FindReferences(ast AST, symbol types.Symbol) ([]types.Reference, error)
	Rename(ast AST, pos types.Position, newName string) ([]types.CodeEdit, error)
	ExtractFunction(ast AST, r types.Range) ([]types.CodeEdit, error)

	// FindDefinition returns (nil, nil) when no definition is found;
	// it is not an error for a position to resolve to nothing.
	FindDefinition(ast AST, pos types.Position) (*types.Definition, error)
	FindUsages(ast AST, symbol types.Symbol) ([]types.Usage, error)

	// Validate is a self-check invoked once during registry
	// initialization.
	Validate() types.ValidationResult

	// Dispose releases internal resources. Idempotent: a second call
	// must be a no-op, not an error.
	Dispose()
}
