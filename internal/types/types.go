// Package types defines the shared value types that flow between the
// parser plugin framework, the indexing engine, and the file/symbol
// indexes: FileInfo, Symbol, Dependency, and their supporting enums.
//
// Everything here is an immutable value once constructed; mutation
// happens by replacing a field's holder (e.g. FileIndex.setFileSymbols
// replaces the symbols slice wholesale), never by mutating a Symbol or
// FileInfo in place once it has been handed to an index.
package types

import "fmt"

// SymbolKind enumerates the kinds of named program entities the
// indexing engine tracks.
type SymbolKind string

const (
	SymbolClass     SymbolKind = "class"
	SymbolInterface SymbolKind = "interface"
	SymbolFunction  SymbolKind = "function"
	SymbolMethod    SymbolKind = "method"
	SymbolVariable  SymbolKind = "variable"
	SymbolConstant  SymbolKind = "constant"
	SymbolType      SymbolKind = "type"
	SymbolEnum      SymbolKind = "enum"
	SymbolModule    SymbolKind = "module"
	SymbolNamespace SymbolKind = "namespace"
)

// DependencyKind enumerates the kinds of directed edges a parser plugin
// can report between a source file and a target path or module.
type DependencyKind string

const (
	DependencyImport    DependencyKind = "import"
	DependencyExport    DependencyKind = "export"
	DependencyInherit   DependencyKind = "inherit"
	DependencyImplement DependencyKind = "implement"
	DependencyReference DependencyKind = "reference"
	DependencyCall      DependencyKind = "call"
)

// Position is a single line/column location, one-indexed, matching the
// convention parser plugins report in diagnostics.
type Position struct {
	Line   int
	Column int
}

// Range is a half-open [Start, End) span within a single file.
type Range struct {
	Start Position
	End   Position
}

// Location pins a Range to the file it was found in.
type Location struct {
	FilePath string
	Range    Range
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.FilePath, l.Range.Start.Line, l.Range.Start.Column)
}

// ScopeFrame is one link in a Symbol's lexical scope chain, root first.
type ScopeFrame struct {
	Kind SymbolKind
	Name string // empty for an anonymous scope (e.g. an anonymous function)
}

// Scope is the nested lexical container chain (module/class/function)
// a Symbol is declared within. Equality is full-path equality: two
// Scopes are equal iff every frame matches in order.
type Scope []ScopeFrame

// Equal reports whether s and other describe the same chain.
func (s Scope) Equal(other Scope) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Key projects the scope chain to a flat string, root-to-leaf, using
// "anonymous" for any frame with no name. This is the representation
// the symbol index's byScope view is keyed on — scopes are never
// stored as linked structures in the index.
func (s Scope) Key() string {
	if len(s) == 0 {
		return ""
	}
	key := ""
	for i, frame := range s {
		name := frame.Name
		if name == "" {
			name = "anonymous"
		}
		if i > 0 {
			key += "/"
		}
		key += string(frame.Kind) + ":" + name
	}
	return key
}

// Symbol is a named program entity extracted by a parser plugin.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	Location  Location
	Scope     Scope // nil when the symbol has no enclosing scope
	Modifiers []string
}

// HasModifier reports whether m (e.g. "export", "static", "private")
// is present on the symbol.
func (s Symbol) HasModifier(m string) bool {
	for _, mod := range s.Modifiers {
		if mod == m {
			return true
		}
	}
	return false
}

// Dependency is a directed edge from a source file to a target path or
// module, as reported by extractDependencies.
type Dependency struct {
	Path             string
	Kind             DependencyKind
	IsRelative       bool
	ImportedSymbols  []string // optional; nil when the plugin can't resolve named imports
}

// FileInfo is an immutable description of a file's metadata and
// content fingerprint. Two FileInfo values with equal fields describe
// the same observed file state.
type FileInfo struct {
	FilePath     string
	LastModified int64 // unix nanoseconds
	Size         int64
	Extension    string // including the leading dot
	Language     string // optional; the engine records "undefined" when the extension maps to no known language
	Checksum     string // hex SHA-256 digest of the file content, or "" if not yet computed
}

// Validate checks the invariants spec.md §3 places on FileInfo.
func (fi FileInfo) Validate() error {
	if fi.FilePath == "" {
		return fmt.Errorf("types: FileInfo.FilePath must not be empty")
	}
	if fi.Size < 0 {
		return fmt.Errorf("types: FileInfo.Size must be >= 0, got %d", fi.Size)
	}
	if fi.Checksum != "" && len(fi.Checksum) != 64 {
		return fmt.Errorf("types: FileInfo.Checksum must be a 64-character hex digest, got %d characters", len(fi.Checksum))
	}
	return nil
}

// ParseError is returned by a parser plugin's parse operation when the
// source cannot be parsed at all.
type ParseError struct {
	Location       Location
	SyntaxElement  string // optional; the offending token or production name
	Message        string
}

func (e *ParseError) Error() string {
	if e.SyntaxElement != "" {
		return fmt.Sprintf("parse error at %s (near %q): %s", e.Location, e.SyntaxElement, e.Message)
	}
	return fmt.Sprintf("parse error at %s: %s", e.Location, e.Message)
}
