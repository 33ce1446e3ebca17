// Package langs adapts tree-sitter grammars into parserapi.Plugin
// implementations: one generic extraction loop driven by a per-
// language query string, plus the nine language constructors in
// languages.go and the Zig constructor in community.go.
package langs

import (
	"fmt"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sourcegrid/codeindex/internal/debug"
	"github.com/sourcegrid/codeindex/internal/parserapi"
	"github.com/sourcegrid/codeindex/internal/types"
)

// spec is the data a language constructor supplies: the grammar's
// language pointer, the query that drives symbol/dependency
// extraction, and the identity fields spec.md §4.1 requires.
type spec struct {
	name         string
	version      string
	extensions   []string
	languages    []string
	languagePtr  *tree_sitter.Language
	queryStr     string
	capabilities parserapi.Capabilities
}

// Plugin is the shared tree-sitter-backed parserapi.Plugin
// implementation. Every concrete language in this package is one
// instance of Plugin configured with a different spec.
type Plugin struct {
	spec  spec
	query *tree_sitter.Query

	pool sync.Pool // of *tree_sitter.Parser, pre-configured with spec.languagePtr

	disposed bool
	mu       sync.Mutex
}

// ast is the opaque handle Parse hands back: the parsed tree plus the
// source it was parsed from (tree-sitter nodes index into the
// original byte slice, so both must travel together).
type ast struct {
	tree     *tree_sitter.Tree
	content  []byte
	filePath string
}

func newPlugin(s spec) *Plugin {
	p := &Plugin{spec: s}
	p.pool.New = func() interface{} {
		parser := tree_sitter.NewParser()
		if err := parser.SetLanguage(s.languagePtr); err != nil {
			return nil
		}
		return parser
	}
	if s.queryStr != "" {
		if query, _ := tree_sitter.NewQuery(s.languagePtr, s.queryStr); query != nil {
			p.query = query
		}
	}
	return p
}

func (p *Plugin) Name() string                              { return p.spec.name }
func (p *Plugin) Version() string                            { return p.spec.version }
func (p *Plugin) SupportedExtensions() []string             { return p.spec.extensions }
func (p *Plugin) SupportedLanguages() []string               { return p.spec.languages }
func (p *Plugin) Capabilities() parserapi.Capabilities       { return p.spec.capabilities }

// Parse copies content into a fresh buffer before handing it to the
// tree-sitter parser: the underlying C library mutates its input
// buffer via cgo, so the caller's slice must never be passed directly.
func (p *Plugin) Parse(source []byte, filePath string) (parserapi.AST, error) {
	buf := make([]byte, len(source))
	copy(buf, source)

	raw := p.pool.Get()
	parser, ok := raw.(*tree_sitter.Parser)
	if !ok || parser == nil {
		return nil, &types.ParseError{
			Location: types.Location{FilePath: filePath},
			Message:  fmt.Sprintf("%s: parser unavailable for this grammar", p.spec.name),
		}
	}
	defer p.pool.Put(parser)

	var tree *tree_sitter.Tree
	func() {
		defer func() {
			if r := recover(); r != nil {
				debug.LogParser("PANIC parsing %s with %s: %v", filePath, p.spec.name, r)
			}
		}()
		tree = parser.Parse(buf, nil)
	}()

	if tree == nil {
		return nil, &types.ParseError{
			Location: types.Location{FilePath: filePath},
			Message:  fmt.Sprintf("%s: parse produced no tree", p.spec.name),
		}
	}
	return &ast{tree: tree, content: buf, filePath: filePath}, nil
}

func (p *Plugin) asAST(a parserapi.AST) (*ast, error) {
	t, ok := a.(*ast)
	if !ok || t == nil {
		return nil, parserapi.NewError("invalid_ast", "AST handle was not produced by this plugin", types.Location{})
	}
	return t, nil
}

// extraction holds the symbols and dependencies extracted from one AST.
type extraction struct {
	symbols []types.Symbol
	deps    []types.Dependency
}

func (p *Plugin) extract(a *ast) extraction {
	var out extraction
	if p.query == nil {
		return out
	}

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()

	matches := qc.Matches(p.query, a.tree.RootNode(), a.content)
	captureNames := p.query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		sub := make(map[string]tree_sitter.Node, 4)
		for _, c := range match.Captures {
			name := captureNames[c.Index]
			if strings.Contains(name, ".") {
				sub[name] = c.Node
			}
		}

		for _, c := range match.Captures {
			name := captureNames[c.Index]
			if strings.Contains(name, ".") {
				continue // subcapture, already collected above
			}
			node := c.Node

			if nonSymbolCaptures[name] {
				continue
			}
			if dependencyCaptures[name] {
				out.deps = append(out.deps, p.buildDependency(name, node, a.content, sub))
				continue
			}
			if kind, ok := symbolCaptures[name]; ok {
				out.symbols = append(out.symbols, p.buildSymbol(kind, name, node, a.content, sub))
			}
		}
	}

	attachScopes(out.symbols)
	return out
}

func nodeText(content []byte, n tree_sitter.Node) string {
	return string(content[n.StartByte():n.EndByte()])
}

func (p *Plugin) buildSymbol(kind types.SymbolKind, captureName string, node tree_sitter.Node, content []byte, sub map[string]tree_sitter.Node) types.Symbol {
	name := ""
	if n, ok := sub[captureName+".name"]; ok {
		name = nodeText(content, n)
	} else if fieldNode := node.ChildByFieldName("name"); fieldNode != nil {
		name = nodeText(content, *fieldNode)
	}

	start := node.StartPosition()
	end := node.EndPosition()
	return types.Symbol{
		Name: name,
		Kind: kind,
		Location: types.Location{
			Range: types.Range{
				Start: types.Position{Line: int(start.Row) + 1, Column: int(start.Column) + 1},
				End:   types.Position{Line: int(end.Row) + 1, Column: int(end.Column) + 1},
			},
		},
	}
}

func (p *Plugin) buildDependency(captureName string, node tree_sitter.Node, content []byte, sub map[string]tree_sitter.Node) types.Dependency {
	path := ""
	for _, suffix := range []string{".source", ".path", ".name"} {
		if n, ok := sub[captureName+suffix]; ok {
			path = nodeText(content, n)
			break
		}
	}
	if path == "" {
		path = nodeText(content, node)
	}
	path = strings.Trim(path, `"'`)

	return types.Dependency{
		Path:       path,
		Kind:       types.DependencyImport,
		IsRelative: strings.HasPrefix(path, ".") || strings.HasPrefix(path, "/"),
	}
}

// attachScopes derives each symbol's lexical scope from range
// containment against the rest of the file's symbols: the innermost
// enclosing symbol becomes the leaf scope frame, its own enclosing
// symbol the frame above it, and so on to the root. No per-grammar
// node-kind table is needed since every container-shaped symbol
// (class/interface/function/method/namespace/module) already carries
// its full declaration range from the query capture.
func attachScopes(symbols []types.Symbol) {
	for i := range symbols {
		var chain types.Scope
		for j := range symbols {
			if i == j {
				continue
			}
			if encloses(symbols[j].Location.Range, symbols[i].Location.Range) {
				chain = append(chain, types.ScopeFrame{Kind: symbols[j].Kind, Name: symbols[j].Name})
			}
		}
		if len(chain) == 0 {
			continue
		}
		sortScopeChainOuterToInner(chain, symbols, i)
		symbols[i].Scope = chain
	}
}

// encloses reports whether outer strictly contains inner (and is not
// inner itself).
func encloses(outer, inner types.Range) bool {
	if outer == inner {
		return false
	}
	startsBefore := outer.Start.Line < inner.Start.Line ||
		(outer.Start.Line == inner.Start.Line && outer.Start.Column <= inner.Start.Column)
	endsAfter := outer.End.Line > inner.End.Line ||
		(outer.End.Line == inner.End.Line && outer.End.Column >= inner.End.Column)
	return startsBefore && endsAfter
}

// sortScopeChainOuterToInner orders a containment chain root-first by
// re-deriving each candidate's span size (larger span = further from
// the leaf) and sorting by span, largest first.
func sortScopeChainOuterToInner(chain types.Scope, symbols []types.Symbol, leafIdx int) {
	spanOf := make(map[string]int, len(chain))
	for _, frame := range chain {
		for _, s := range symbols {
			if s.Kind == frame.Kind && s.Name == frame.Name {
				spanOf[string(frame.Kind)+"/"+frame.Name] = (s.Location.Range.End.Line - s.Location.Range.Start.Line)
				break
			}
		}
	}
	for i := 1; i < len(chain); i++ {
		for j := i; j > 0; j-- {
			a := spanOf[string(chain[j-1].Kind)+"/"+chain[j-1].Name]
			b := spanOf[string(chain[j].Kind)+"/"+chain[j].Name]
			if a < b {
				chain[j-1], chain[j] = chain[j], chain[j-1]
			} else {
				break
			}
		}
	}
	_ = leafIdx
}

func (p *Plugin) ExtractSymbols(a parserapi.AST) ([]types.Symbol, error) {
	t, err := p.asAST(a)
	if err != nil {
		return nil, err
	}
	return p.extract(t).symbols, nil
}

func (p *Plugin) ExtractDependencies(a parserapi.AST) ([]types.Dependency, error) {
	t, err := p.asAST(a)
	if err != nil {
		return nil, err
	}
	return p.extract(t).deps, nil
}

func (p *Plugin) FindReferences(a parserapi.AST, symbol types.Symbol) ([]types.Reference, error) {
	t, err := p.asAST(a)
	if err != nil {
		return nil, err
	}
	var refs []types.Reference
	walkIdentifiers(t.tree.RootNode(), t.content, symbol.Name, func(n tree_sitter.Node) {
		refs = append(refs, types.Reference{
			Symbol:   symbol,
			Location: locationOf(t.filePath, n),
			IsWrite:  isAssignmentTarget(n),
		})
	})
	return refs, nil
}

func (p *Plugin) FindUsages(a parserapi.AST, symbol types.Symbol) ([]types.Usage, error) {
	t, err := p.asAST(a)
	if err != nil {
		return nil, err
	}
	var usages []types.Usage
	walkIdentifiers(t.tree.RootNode(), t.content, symbol.Name, func(n tree_sitter.Node) {
		usages = append(usages, types.Usage{
			Symbol:   symbol,
			Location: locationOf(t.filePath, n),
			Kind:     usageKind(n),
		})
	})
	return usages, nil
}

func (p *Plugin) FindDefinition(a parserapi.AST, pos types.Position) (*types.Definition, error) {
	t, err := p.asAST(a)
	if err != nil {
		return nil, err
	}
	name := identifierAt(t.tree.RootNode(), t.content, pos)
	if name == "" {
		return nil, nil
	}
	symbols := p.extract(t).symbols
	for _, s := range symbols {
		if s.Name == name {
			return &types.Definition{Symbol: s, Location: s.Location}, nil
		}
	}
	return nil, nil
}

func (p *Plugin) Rename(a parserapi.AST, pos types.Position, newName string) ([]types.CodeEdit, error) {
	t, err := p.asAST(a)
	if err != nil {
		return nil, err
	}
	if !p.spec.capabilities.SupportsRename {
		return nil, parserapi.NewError("unsupported", p.spec.name+" does not support rename", types.Location{FilePath: t.filePath})
	}
	name := identifierAt(t.tree.RootNode(), t.content, pos)
	if name == "" {
		return nil, nil
	}
	var edits []types.CodeEdit
	walkIdentifiers(t.tree.RootNode(), t.content, name, func(n tree_sitter.Node) {
		start := n.StartPosition()
		end := n.EndPosition()
		edits = append(edits, types.CodeEdit{
			FilePath: t.filePath,
			Range: types.Range{
				Start: types.Position{Line: int(start.Row) + 1, Column: int(start.Column) + 1},
				End:   types.Position{Line: int(end.Row) + 1, Column: int(end.Column) + 1},
			},
			NewText:     newName,
			Description: fmt.Sprintf("rename %q to %q", name, newName),
		})
	})
	return edits, nil
}

func (p *Plugin) ExtractFunction(a parserapi.AST, r types.Range) ([]types.CodeEdit, error) {
	t, err := p.asAST(a)
	if err != nil {
		return nil, err
	}
	if !p.spec.capabilities.SupportsExtractFunction {
		return nil, parserapi.NewError("unsupported", p.spec.name+" does not support extractFunction", types.Location{FilePath: t.filePath})
	}

	node := smallestEnclosingNode(t.tree.RootNode(), r)
	if node == nil {
		return nil, parserapi.NewError("invalid_range", "no AST node encloses the requested range", types.Location{FilePath: t.filePath, Range: r})
	}
	start := node.StartPosition()
	end := node.EndPosition()
	snapped := types.Range{
		Start: types.Position{Line: int(start.Row) + 1, Column: int(start.Column) + 1},
		End:   types.Position{Line: int(end.Row) + 1, Column: int(end.Column) + 1},
	}
	body := nodeText(t.content, *node)

	return []types.CodeEdit{{
		FilePath:    t.filePath,
		Range:       snapped,
		NewText:     "extracted()",
		Description: "replace extracted range with a call to the new function",
	}, {
		FilePath:    t.filePath,
		Range:       types.Range{Start: snapped.Start, End: snapped.Start},
		NewText:     "\nfunction extracted() {\n" + body + "\n}\n\n",
		Description: "insert the extracted function before its original location",
	}}, nil
}

func (p *Plugin) Validate() types.ValidationResult {
	if p.spec.languagePtr == nil {
		return types.ValidationResult{OK: false, Errors: []string{p.spec.name + ": no grammar language configured"}}
	}
	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(p.spec.languagePtr); err != nil {
		return types.ValidationResult{OK: false, Errors: []string{err.Error()}}
	}
	if p.query == nil {
		return types.ValidationResult{OK: false, Errors: []string{p.spec.name + ": query failed to compile"}}
	}
	return types.ValidationResult{OK: true}
}

func (p *Plugin) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	if p.query != nil {
		p.query.Close()
	}
	p.disposed = true
}
