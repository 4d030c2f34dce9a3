package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symgraph/internal/config"
	"symgraph/internal/inheritance"
	"symgraph/internal/reference"
	"symgraph/internal/resolution"
	"symgraph/internal/storage"
)

const zooDoc = `
types:
  - id: "class:/src/zoo.py:1:0:10:0:Animal"
    members:
      speak: "method:/src/zoo.py:2:4:3:0:speak:Animal"
  - id: "class:/src/zoo.py:12:0:20:0:Bird"
    extends: ["class:/src/zoo.py:1:0:10:0:Animal"]
  - id: "class:/src/zoo.py:22:0:30:0:Fish"
    extends: ["class:/src/zoo.py:1:0:10:0:Animal"]
  - id: "class:/src/zoo.py:32:0:40:0:Penguin"
    extends: ["class:/src/zoo.py:12:0:20:0:Bird", "class:/src/zoo.py:22:0:30:0:Fish"]
use_sites:
  - location: {file_path: /src/zoo.py, start_line: 35, start_column: 8, end_line: 35, end_column: 18}
    scope: "method:/src/zoo.py:34:4:36:0"
    name: speak
    chain: [self, speak]
    invoked: true
  - location: {file_path: /src/main.py, start_line: 3, end_line: 3}
    scope: "module:/src/main.py:1:0:10:0"
    name: Penguin
    construct: true
  - location: {file_path: /src/main.py, start_line: 4, end_line: 4}
    name: dangling
    chain: [p, dangling]
`

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zoo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(zooDoc), 0o644))
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunPipeline(t *testing.T) {
	b, err := runPipeline(context.Background(), config.Default(), quietLogger(), writeDoc(t))
	require.NoError(t, err)

	assert.Equal(t, 4, b.Graph.Len())
	require.Len(t, b.Result.Diamonds, 1)
	assert.Equal(t, "Penguin", b.Result.Diamonds[0].Descendant().Name)
	assert.Empty(t, b.Result.Diagnostics)

	// The dangling member access has no receiver location or scope.
	assert.Len(t, b.Skipped, 1)
	require.Len(t, b.Snapshot.References, 2)

	self := b.Snapshot.References[0]
	assert.Equal(t, reference.KindSelfReferenceCall, self.Reference.Kind())
	require.True(t, self.Resolution.IsResolved())
	assert.Equal(t, "speak", self.Resolution.Resolved.Name)
	assert.Equal(t, resolution.ReasonInherited, self.Resolution.Reason)

	ctor := b.Snapshot.References[1]
	require.True(t, ctor.Resolution.IsResolved())
	assert.Equal(t, "Penguin", ctor.Resolution.Resolved.Name)
	assert.Equal(t, resolution.ReasonImported, ctor.Resolution.Reason)
}

func TestRunPipeline_SnapshotSaves(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.MRO = string(inheritance.PolicyDepthFirst)
	b, err := runPipeline(context.Background(), cfg, quietLogger(), writeDoc(t))
	require.NoError(t, err)

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "zoo.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	buildID, err := store.SaveSnapshot(ctx, b.Snapshot)
	require.NoError(t, err)

	loaded, err := store.LoadSnapshot(ctx, buildID)
	require.NoError(t, err)
	assert.Equal(t, inheritance.PolicyDepthFirst, loaded.Policy)
	assert.Len(t, loaded.Types, 4)
	assert.Len(t, loaded.References, 2)
}

func TestRunPipeline_BadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("types:\n  - id: \"class:/a.py:A\"\n"), 0o644))

	_, err := runPipeline(context.Background(), config.Default(), quietLogger(), path)
	assert.Error(t, err)
}

func TestDecodeCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"decode", `method:C:\src\zoo.py:2:4:3:0:speak:Animal`})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), `path:      C:\src\zoo.py`)
	assert.Contains(t, out.String(), "qualifier: Animal")
}

func TestRunPipeline_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zoo.yaml"), []byte(zooDoc), 0o644))

	b, err := runPipeline(context.Background(), config.Default(), quietLogger(), dir)
	require.NoError(t, err)
	assert.Equal(t, 4, b.Graph.Len())
	assert.Len(t, b.Snapshot.References, 2)
}

func TestRunPipeline_DirectorySkipsIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zoo.yaml"), []byte(zooDoc), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "drafts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "drafts", "wip.yaml"), []byte("types:\n  - id: \"class:/a.py:A\"\n"), 0o644))

	_, err := runPipeline(context.Background(), config.Default(), quietLogger(), dir)
	require.Error(t, err)

	cfg := config.Default()
	cfg.Analysis.Ignore = []string{"drafts"}
	b, err := runPipeline(context.Background(), cfg, quietLogger(), dir)
	require.NoError(t, err)
	assert.Equal(t, 4, b.Graph.Len())
}
