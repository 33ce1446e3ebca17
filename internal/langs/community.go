package langs

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
)

// CommunityPriority is the default registration priority for
// community-maintained grammars (currently just Zig): low enough that
// an officially-supported plugin registered for the same extension
// always wins the registry's getParser lookup.
const CommunityPriority = -10

// NewZig builds the Zig plugin. Zig has no official tree-sitter Go
// binding, only a community-maintained grammar, so it is registered
// through the factory's lazy-loader path at CommunityPriority rather
// than alongside the officially supported languages in languages.go.
func NewZig() *Plugin {
	return newPlugin(spec{
		name:        "zig",
		version:     pluginVersion,
		extensions:  []string{".zig"},
		languages:   []string{"zig"},
		languagePtr: tree_sitter.NewLanguage(tree_sitter_zig.Language()),
		queryStr: `
        (function_declaration (identifier) @function.name) @function
        (variable_declaration
          (identifier) @struct.name
          (struct_declaration) @struct)
        (variable_declaration
          (identifier) @struct.name
          (union_declaration) @struct)
    `,
		capabilities: fullCapabilities,
	})
}
