package registry

import (
	"testing"

	"github.com/sourcegrid/codeindex/internal/parserapi"
	"github.com/sourcegrid/codeindex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlugin struct {
	name   string
	exts   []string
	langs  []string
	valid  bool
	errs   []string
	closed bool
}

func (f *fakePlugin) Name() string                  { return f.name }
func (f *fakePlugin) Version() string                { return "1.0.0" }
func (f *fakePlugin) SupportedExtensions() []string { return f.exts }
func (f *fakePlugin) SupportedLanguages() []string  { return f.langs }
func (f *fakePlugin) Capabilities() parserapi.Capabilities {
	return parserapi.Capabilities{}
}
func (f *fakePlugin) Parse(source []byte, filePath string) (parserapi.AST, error) { return nil, nil }
func (f *fakePlugin) ExtractSymbols(ast parserapi.AST) ([]types.Symbol, error)    { return nil, nil }
func (f *fakePlugin) ExtractDependencies(ast parserapi.AST) ([]types.Dependency, error) {
	return nil, nil
}
func (f *fakePlugin) FindReferences(ast parserapi.AST, symbol types.Symbol) ([]types.Reference, error) {
	return nil, nil
}
func (f *fakePlugin) Rename(ast parserapi.AST, pos types.Position, newName string) ([]types.CodeEdit, error) {
	return nil, nil
}
func (f *fakePlugin) ExtractFunction(ast parserapi.AST, r types.Range) ([]types.CodeEdit, error) {
	return nil, nil
}
func (f *fakePlugin) FindDefinition(ast parserapi.AST, pos types.Position) (*types.Definition, error) {
	return nil, nil
}
func (f *fakePlugin) FindUsages(ast parserapi.AST, symbol types.Symbol) ([]types.Usage, error) {
	return nil, nil
}
func (f *fakePlugin) Validate() types.ValidationResult {
	return types.ValidationResult{OK: f.valid, Errors: f.errs}
}
func (f *fakePlugin) Dispose() { f.closed = true }

func newFake(name string, exts, langs []string) *fakePlugin {
	return &fakePlugin{name: name, exts: exts, langs: langs, valid: true}
}

func TestRegister_GetParserByExtensionAndLanguage(t *testing.T) {
	r := newRegistry()
	p := newFake("go-parser", []string{".go"}, []string{"go"})

	require.NoError(t, r.Register(p, RegisterOptions{}))
	assert.Same(t, parserapi.Plugin(p), r.GetParser(".go"))
	assert.Same(t, parserapi.Plugin(p), r.GetParserByLanguage("go"))
	assert.Nil(t, r.GetParser(".rs"))
}

func TestRegister_DuplicateNameFailsWithoutOverride(t *testing.T) {
	r := newRegistry()
	p1 := newFake("go-parser", []string{".go"}, []string{"go"})
	p2 := newFake("go-parser", []string{".go"}, []string{"go"})

	require.NoError(t, r.Register(p1, RegisterOptions{}))
	err := r.Register(p2, RegisterOptions{})
	require.Error(t, err)
}

func TestRegister_OverrideReplacesPriorEntry(t *testing.T) {
	r := newRegistry()
	p1 := newFake("go-parser", []string{".go"}, []string{"go"})
	p2 := newFake("go-parser", []string{".go"}, []string{"go"})

	require.NoError(t, r.Register(p1, RegisterOptions{}))
	require.NoError(t, r.Register(p2, RegisterOptions{Override: true}))
	assert.Same(t, parserapi.Plugin(p2), r.GetParser(".go"))
}

func TestGetParser_HighestPriorityWins(t *testing.T) {
	r := newRegistry()
	low := newFake("low", []string{".ts"}, nil)
	high := newFake("high", []string{".ts"}, nil)

	require.NoError(t, r.Register(low, RegisterOptions{Priority: 1}))
	require.NoError(t, r.Register(high, RegisterOptions{Priority: 10}))

	assert.Same(t, parserapi.Plugin(high), r.GetParser(".ts"))
}

func TestGetParser_TiedPriorityBreaksOnRegistrationOrder(t *testing.T) {
	r := newRegistry()
	first := newFake("first", []string{".ts"}, nil)
	second := newFake("second", []string{".ts"}, nil)

	require.NoError(t, r.Register(first, RegisterOptions{}))
	require.NoError(t, r.Register(second, RegisterOptions{}))

	assert.Same(t, parserapi.Plugin(first), r.GetParser(".ts"))
}

func TestUnregister_RemovesFromAllBuckets(t *testing.T) {
	r := newRegistry()
	p := newFake("go-parser", []string{".go"}, []string{"go"})
	require.NoError(t, r.Register(p, RegisterOptions{}))

	require.NoError(t, r.Unregister("go-parser"))
	assert.Nil(t, r.GetParser(".go"))
	assert.Nil(t, r.GetParserByLanguage("go"))
	_, ok := r.GetByName("go-parser")
	assert.False(t, ok)
}

func TestUnregister_UnknownNameFails(t *testing.T) {
	r := newRegistry()
	err := r.Unregister("missing")
	require.Error(t, err)
}

func TestInitialize_ValidatesAllPlugins(t *testing.T) {
	r := newRegistry()
	p := newFake("go-parser", []string{".go"}, nil)
	require.NoError(t, r.Register(p, RegisterOptions{}))

	require.NoError(t, r.Initialize())
	require.NoError(t, r.Initialize())
}

func TestInitialize_FailsOnInvalidPlugin(t *testing.T) {
	r := newRegistry()
	p := newFake("bad", []string{".go"}, nil)
	p.valid = false
	p.errs = []string{"boom"}
	require.NoError(t, r.Register(p, RegisterOptions{}))

	err := r.Initialize()
	require.Error(t, err)
}

func TestDispose_DisposesEveryPluginAndClearsTables(t *testing.T) {
	r := newRegistry()
	p := newFake("go-parser", []string{".go"}, []string{"go"})
	require.NoError(t, r.Register(p, RegisterOptions{}))

	r.Dispose()
	assert.True(t, p.closed)
	assert.Nil(t, r.GetParser(".go"))
	assert.True(t, r.Disposed())

	err := r.Register(newFake("other", nil, nil), RegisterOptions{})
	require.Error(t, err)
}

func TestDispose_Idempotent(t *testing.T) {
	r := newRegistry()
	assert.NotPanics(t, func() {
		r.Dispose()
		r.Dispose()
	})
}

func TestSuggest_ClosestName(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(newFake("typescript", nil, nil), RegisterOptions{}))
	require.NoError(t, r.Register(newFake("javascript", nil, nil), RegisterOptions{}))

	assert.Equal(t, "typescript", r.Suggest("typescrpt"))
}

func TestResetInstance_ReplacesSingleton(t *testing.T) {
	first := Instance()
	ResetInstance()
	second := Instance()
	assert.NotSame(t, first, second)
}
