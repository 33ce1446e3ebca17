package langs

import "github.com/sourcegrid/codeindex/internal/types"

// symbolCaptures maps a query's main capture name to the SymbolKind it
// produces. Every language query in this package (adapted from the
// grammar-specific queries each tree-sitter binding ships with)
// reuses this same vocabulary, so one extraction loop serves all ten
// languages.
var symbolCaptures = map[string]types.SymbolKind{
	"function":    types.SymbolFunction,
	"method":      types.SymbolMethod,
	"constructor": types.SymbolMethod,
	"variable":    types.SymbolVariable,
	"class":       types.SymbolClass,
	"interface":   types.SymbolInterface,
	"trait":       types.SymbolInterface,
	"type":        types.SymbolType,
	"struct":      types.SymbolType,
	"enum":        types.SymbolEnum,
	"namespace":   types.SymbolNamespace,
	"module":      types.SymbolModule,
	"record":      types.SymbolClass,
	"property":    types.SymbolVariable,
	"field":       types.SymbolVariable,
	"delegate":    types.SymbolType,
	"event":       types.SymbolVariable,
	"annotation":  types.SymbolType,
	"constant":    types.SymbolConstant,
}

// dependencyCaptures names the main captures that mark an import-like
// edge rather than a named symbol.
var dependencyCaptures = map[string]bool{
	"import":  true,
	"package": true,
	"using":   true,
}

// nonSymbolCaptures marks main captures that carry neither a symbol
// nor a dependency — they exist only to locate a region (e.g. marking
// exported declarations) and are skipped during extraction.
var nonSymbolCaptures = map[string]bool{
	"export": true,
}
