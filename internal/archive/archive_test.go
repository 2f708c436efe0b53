package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"today-todo/internal/todo"
)

func TestExportImport(t *testing.T) {
	m := todo.New(nil, "k")
	m.HydrateFrom("")
	tag := m.AddTag("work")
	id := m.AddTodo("ship", false, tag)
	m.AddTodo("stretch", true, "")
	m.CompleteTodo(id)
	payload, err := m.Payload()
	require.NoError(t, err)

	zipPath := filepath.Join(t.TempDir(), "out", "x.zip")
	man, err := Export(payload, zipPath)
	require.NoError(t, err)
	_, err = uuid.Parse(man.ExportID)
	assert.NoError(t, err)
	assert.Equal(t, 1, man.Todos)
	assert.Equal(t, 1, man.Completed)
	assert.Equal(t, 1, man.Tags)

	got, raw, err := Import(zipPath)
	require.NoError(t, err)
	assert.Equal(t, man.ExportID, got.ExportID)
	assert.Equal(t, payload, raw)

	m2 := todo.New(nil, "k")
	m2.HydrateFrom(raw)
	assert.Equal(t, m.Snapshot(), m2.Snapshot())
}

func TestImportRejectsBadArchives(t *testing.T) {
	dir := t.TempDir()

	mk := func(name string, files map[string]string) string {
		p := filepath.Join(dir, name)
		f, err := os.Create(p)
		require.NoError(t, err)
		zw := zip.NewWriter(f)
		for n, body := range files {
			w, err := zw.Create(n)
			require.NoError(t, err)
			_, err = w.Write([]byte(body))
			require.NoError(t, err)
		}
		require.NoError(t, zw.Close())
		require.NoError(t, f.Close())
		return p
	}

	_, _, err := Import(mk("nomanifest.zip", map[string]string{StateName: "{}"}))
	assert.Error(t, err)

	_, _, err = Import(mk("nostate.zip", map[string]string{ManifestName: `{"version":1}`}))
	assert.Error(t, err)

	_, _, err = Import(mk("future.zip", map[string]string{ManifestName: `{"version":99}`, StateName: "{}"}))
	assert.Error(t, err)

	_, _, err = Import(mk("badjson.zip", map[string]string{ManifestName: `{`, StateName: "{}"}))
	assert.Error(t, err)

	_, raw, err := Import(mk("ok.zip", map[string]string{ManifestName: `{"version":1}`, "nested/" + StateName: `{"nextId":3}`}))
	require.NoError(t, err)
	assert.Equal(t, `{"nextId":3}`, raw)

	_, _, err = Import(filepath.Join(dir, "missing.zip"))
	assert.Error(t, err)
}

func TestExportLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()

	ok := filepath.Join(dir, "ok.zip")
	_, err := Export(`{"nextId":1}`, ok)
	require.NoError(t, err)

	// a non-empty directory at the target makes the final rename fail
	blocked := filepath.Join(dir, "blocked.zip")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "keep"), 0o755))
	_, err = Export(`{"nextId":1}`, blocked)
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"ok.zip", "blocked.zip"}, names)
	fi, err := os.Stat(blocked)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestDefaultName(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "today-todo-20240102-030405.zip", DefaultName(at))
}
