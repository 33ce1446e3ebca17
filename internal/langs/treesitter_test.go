package langs

import (
	"testing"

	"github.com/sourcegrid/codeindex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSample = `package main

import "fmt"

type Person struct {
	Name string
}

func (p Person) Greet() string {
	return "hello " + p.Name
}

func main() {
	p := Person{Name: "ada"}
	fmt.Println(p.Greet())
}
`

func TestGo_ExtractSymbols(t *testing.T) {
	p := NewGo()
	defer p.Dispose()

	ast, err := p.Parse([]byte(goSample), "main.go")
	require.NoError(t, err)

	symbols, err := p.ExtractSymbols(ast)
	require.NoError(t, err)

	names := make(map[string]types.SymbolKind)
	for _, s := range symbols {
		names[s.Name] = s.Kind
	}
	assert.Equal(t, types.SymbolType, names["Person"])
	assert.Equal(t, types.SymbolMethod, names["Greet"])
	assert.Equal(t, types.SymbolFunction, names["main"])
}

func TestGo_ExtractDependencies(t *testing.T) {
	p := NewGo()
	defer p.Dispose()

	ast, err := p.Parse([]byte(goSample), "main.go")
	require.NoError(t, err)

	deps, err := p.ExtractDependencies(ast)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "fmt", deps[0].Path)
	assert.Equal(t, types.DependencyImport, deps[0].Kind)
}

func TestGo_FindReferences(t *testing.T) {
	p := NewGo()
	defer p.Dispose()

	ast, err := p.Parse([]byte(goSample), "main.go")
	require.NoError(t, err)

	refs, err := p.FindReferences(ast, types.Symbol{Name: "Person"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(refs), 2)
}

func TestGo_Validate(t *testing.T) {
	p := NewGo()
	defer p.Dispose()
	result := p.Validate()
	assert.True(t, result.OK)
}

func TestGo_DisposeIdempotent(t *testing.T) {
	p := NewGo()
	assert.NotPanics(t, func() {
		p.Dispose()
		p.Dispose()
	})
}

const jsSample = `
import { helper } from './util';

class Greeter {
  greet() {
    return helper('hi');
  }
}

function standalone() {
  return 1;
}
`

func TestJavaScript_ExtractSymbolsAndScope(t *testing.T) {
	p := NewJavaScript()
	defer p.Dispose()

	ast, err := p.Parse([]byte(jsSample), "app.js")
	require.NoError(t, err)

	symbols, err := p.ExtractSymbols(ast)
	require.NoError(t, err)

	var greet, class, standalone *types.Symbol
	for i := range symbols {
		switch symbols[i].Name {
		case "greet":
			greet = &symbols[i]
		case "Greeter":
			class = &symbols[i]
		case "standalone":
			standalone = &symbols[i]
		}
	}
	require.NotNil(t, class)
	require.NotNil(t, greet)
	require.NotNil(t, standalone)

	require.Len(t, greet.Scope, 1)
	assert.Equal(t, "Greeter", greet.Scope[0].Name)
	assert.Empty(t, standalone.Scope)
}

func TestJavaScript_ExtractDependencies(t *testing.T) {
	p := NewJavaScript()
	defer p.Dispose()

	ast, err := p.Parse([]byte(jsSample), "app.js")
	require.NoError(t, err)

	deps, err := p.ExtractDependencies(ast)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "./util", deps[0].Path)
	assert.True(t, deps[0].IsRelative)
}

func TestPython_ExtractSymbols(t *testing.T) {
	p := NewPython()
	defer p.Dispose()

	src := "import os\n\nclass Greeter:\n    def greet(self):\n        return os.getcwd()\n\ndef standalone():\n    return 1\n"
	ast, err := p.Parse([]byte(src), "app.py")
	require.NoError(t, err)

	symbols, err := p.ExtractSymbols(ast)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, s := range symbols {
		names[s.Name] = true
	}
	assert.True(t, names["Greeter"])
	assert.True(t, names["greet"])
	assert.True(t, names["standalone"])
}

func TestZig_ExtractSymbols(t *testing.T) {
	p := NewZig()
	defer p.Dispose()

	src := "fn add(a: i32, b: i32) i32 {\n    return a + b;\n}\n"
	ast, err := p.Parse([]byte(src), "main.zig")
	require.NoError(t, err)

	symbols, err := p.ExtractSymbols(ast)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "add", symbols[0].Name)
}
