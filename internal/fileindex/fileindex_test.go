package fileindex

import (
	"testing"
	"time"

	"github.com/sourcegrid/codeindex/internal/types"
	"github.com/sourcegrid/codeindex/internal/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInfo(path string) types.FileInfo {
	return types.FileInfo{
		FilePath:     path,
		Size:         10,
		LastModified: time.Now().UnixNano(),
		Checksum:     "0000000000000000000000000000000000000000000000000000000000000000"[:64],
		Extension:    ".go",
		Language:     "go",
	}
}

func TestFileIndex_AddAndGetFileInfo(t *testing.T) {
	fi := New()
	info := sampleInfo("a.go")
	require.NoError(t, fi.AddFile(info))

	got, ok := fi.GetFileInfo("a.go")
	require.True(t, ok)
	assert.Equal(t, info, got)
	assert.True(t, fi.HasFile("a.go"))
	assert.Equal(t, 1, fi.GetTotalFiles())
}

func TestFileIndex_AddFile_InvalidInfoFails(t *testing.T) {
	fi := New()
	err := fi.AddFile(types.FileInfo{})
	assert.Error(t, err)
	assert.False(t, fi.HasFile(""))
}

func TestFileIndex_SetFileSymbols_MarksIndexed(t *testing.T) {
	fi := New()
	require.NoError(t, fi.AddFile(sampleInfo("a.go")))

	syms := []types.Symbol{{Name: "Foo", Kind: types.SymbolFunction}}
	require.NoError(t, fi.SetFileSymbols("a.go", syms))

	got, ok := fi.GetFileSymbols("a.go")
	require.True(t, ok)
	assert.Equal(t, syms, got)
	assert.Equal(t, 1, fi.GetIndexedFilesCount())
}

func TestFileIndex_SetFileSymbols_AbsentPathFails(t *testing.T) {
	fi := New()
	err := fi.SetFileSymbols("missing.go", nil)
	require.Error(t, err)

	var xerr *xerrors.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, xerrors.KindFileNotInIndex, xerr.Kind)
}

func TestFileIndex_SetFileDependencies_AbsentPathFails(t *testing.T) {
	fi := New()
	err := fi.SetFileDependencies("missing.go", nil)
	assert.Error(t, err)
}

func TestFileIndex_SetFileParseErrors(t *testing.T) {
	fi := New()
	require.NoError(t, fi.AddFile(sampleInfo("a.go")))
	require.NoError(t, fi.SetFileParseErrors("a.go", []string{"unexpected token"}))

	assert.True(t, fi.HasFileParseErrors("a.go"))
	errs, ok := fi.GetFileParseErrors("a.go")
	require.True(t, ok)
	assert.Equal(t, []string{"unexpected token"}, errs)
}

func TestFileIndex_RemoveFile(t *testing.T) {
	fi := New()
	require.NoError(t, fi.AddFile(sampleInfo("a.go")))
	fi.RemoveFile("a.go")
	assert.False(t, fi.HasFile("a.go"))
	assert.Equal(t, 0, fi.GetTotalFiles())
}

func TestFileIndex_RemoveFile_AbsentPathIsNoop(t *testing.T) {
	fi := New()
	assert.NotPanics(t, func() { fi.RemoveFile("missing.go") })
}

func TestFileIndex_FindFilesByExtensionAndLanguage(t *testing.T) {
	fi := New()
	require.NoError(t, fi.AddFile(sampleInfo("a.go")))
	py := sampleInfo("b.py")
	py.Extension = ".py"
	py.Language = "python"
	require.NoError(t, fi.AddFile(py))

	assert.Equal(t, []string{"a.go"}, fi.FindFilesByExtension(".go"))
	assert.Equal(t, []string{"b.py"}, fi.FindFilesByLanguage("python"))
	assert.Equal(t, []string{"a.go", "b.py"}, fi.GetAllFiles())
}

func TestFileIndex_Clear(t *testing.T) {
	fi := New()
	require.NoError(t, fi.AddFile(sampleInfo("a.go")))
	fi.Clear()
	assert.Equal(t, 0, fi.GetTotalFiles())
}

func TestFileIndex_NeedsReindexing(t *testing.T) {
	fi := New()
	now := time.Now()
	info := sampleInfo("a.go")
	info.LastModified = now.UnixNano()
	require.NoError(t, fi.AddFile(info))

	assert.True(t, fi.NeedsReindexing("a.go", now), "not yet indexed")

	require.NoError(t, fi.SetFileSymbols("a.go", nil))
	assert.False(t, fi.NeedsReindexing("a.go", now))
	assert.False(t, fi.NeedsReindexing("a.go", now.Add(500*time.Millisecond)))
	assert.True(t, fi.NeedsReindexing("a.go", now.Add(2*time.Second)))
	assert.True(t, fi.NeedsReindexing("missing.go", now))
}

func TestFileIndex_GetStats(t *testing.T) {
	fi := New()
	require.NoError(t, fi.AddFile(sampleInfo("a.go")))
	require.NoError(t, fi.SetFileSymbols("a.go", []types.Symbol{{Name: "Foo"}}))
	require.NoError(t, fi.SetFileDependencies("a.go", []types.Dependency{{Path: "fmt"}}))

	stats := fi.GetStats()
	assert.Equal(t, 1, stats.TotalFiles)
	assert.Equal(t, 1, stats.IndexedFiles)
	assert.Equal(t, 1, stats.TotalSymbols)
	assert.Equal(t, 1, stats.TotalDependencies)
	assert.Greater(t, stats.IndexSize, int64(0))
}

func TestFileIndex_EmitsUpdateEvents(t *testing.T) {
	fi := New()
	var events []UpdateEvent
	fi.AddListener(func(ev UpdateEvent) { events = append(events, ev) })

	require.NoError(t, fi.AddFile(sampleInfo("a.go")))
	require.NoError(t, fi.SetFileSymbols("a.go", nil))
	fi.RemoveFile("a.go")

	require.Len(t, events, 3)
	assert.Equal(t, OpAdd, events[0].Operation)
	assert.Equal(t, OpUpdate, events[1].Operation)
	assert.Equal(t, OpDelete, events[2].Operation)
	for _, ev := range events {
		assert.True(t, ev.Success)
	}
}

func TestFileIndex_NoListenersDoesNotBlockMutation(t *testing.T) {
	fi := New()
	assert.NotPanics(t, func() {
		require.NoError(t, fi.AddFile(sampleInfo("a.go")))
	})
}

func TestFileIndex_ListenerPanicIsIsolated(t *testing.T) {
	fi := New()
	fi.AddListener(func(UpdateEvent) { panic("boom") })

	var called bool
	fi.AddListener(func(UpdateEvent) { called = true })

	assert.NotPanics(t, func() {
		require.NoError(t, fi.AddFile(sampleInfo("a.go")))
	})
	assert.True(t, called)
}
