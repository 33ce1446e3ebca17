package registry

import (
	"errors"
	"testing"

	"github.com/sourcegrid/codeindex/internal/parserapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateParser_ReturnsAlreadyRegistered(t *testing.T) {
	r := newRegistry()
	f := NewFactory(r)
	p := newFake("go-parser", []string{".go"}, nil)
	require.NoError(t, r.Register(p, RegisterOptions{}))

	got, err := f.CreateParser("main.go")
	require.NoError(t, err)
	assert.Same(t, parserapi.Plugin(p), got)
}

func TestCreateParser_InvokesLazyLoaderOnce(t *testing.T) {
	r := newRegistry()
	f := NewFactory(r)
	calls := 0
	f.RegisterLoader(".rs", "rust", "rust-parser", func() (parserapi.Plugin, error) {
		calls++
		return newFake("rust-parser", []string{".rs"}, []string{"rust"}), nil
	})

	got1, err := f.CreateParser("main.rs")
	require.NoError(t, err)
	require.NotNil(t, got1)

	got2, err := f.CreateParser("lib.rs")
	require.NoError(t, err)
	assert.Same(t, got1, got2)
	assert.Equal(t, 1, calls)
}

func TestCreateParser_NoMatchReturnsNil(t *testing.T) {
	r := newRegistry()
	f := NewFactory(r)
	got, err := f.CreateParser("main.zig")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateParser_LoaderErrorPropagates(t *testing.T) {
	r := newRegistry()
	f := NewFactory(r)
	f.RegisterLoader(".rs", "", "", func() (parserapi.Plugin, error) {
		return nil, errors.New("boom")
	})

	_, err := f.CreateParser("main.rs")
	require.Error(t, err)
}

func TestCreateByLanguage_InvokesLoader(t *testing.T) {
	r := newRegistry()
	f := NewFactory(r)
	f.RegisterLoader("", "rust", "", func() (parserapi.Plugin, error) {
		return newFake("rust-parser", []string{".rs"}, []string{"rust"}), nil
	})

	got, err := f.CreateByLanguage("rust")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestCreateByName_InvokesLoader(t *testing.T) {
	r := newRegistry()
	f := NewFactory(r)
	f.RegisterLoader("", "", "rust-parser", func() (parserapi.Plugin, error) {
		return newFake("rust-parser", []string{".rs"}, []string{"rust"}), nil
	})

	got, err := f.CreateByName("rust-parser")
	require.NoError(t, err)
	require.NotNil(t, got)
}
