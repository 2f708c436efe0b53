package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"today-todo/internal/storage"
	"today-todo/internal/todo"
)

func TestRunBatchAddExportImport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st := storage.NewMemory()
	mgr := todo.New(st, "k")

	// each run re-hydrates from the store, as separate invocations would
	require.NoError(t, runBatch(ctx, mgr, batchArgs{add: "water plants", routine: true, tag: "Home"}))
	mgr.Flush()
	require.NoError(t, runBatch(ctx, mgr, batchArgs{add: "call bank", tag: "home"}))
	mgr.Flush()
	require.Len(t, mgr.Tags(), 1)
	todos := mgr.Todos()
	require.Len(t, todos, 2)
	assert.True(t, todos[0].IsRoutine)
	assert.Equal(t, todos[0].TagID, todos[1].TagID)

	zipPath := filepath.Join(dir, "out.zip")
	mdPath := filepath.Join(dir, "out.md")
	require.NoError(t, runBatch(ctx, mgr, batchArgs{export: zipPath, dump: mdPath}))
	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "water plants")

	other := todo.New(storage.NewMemory(), "k")
	require.NoError(t, runBatch(ctx, other, batchArgs{importZip: zipPath}))
	require.NoError(t, other.Close(ctx))
	assert.Equal(t, mgr.Snapshot(), other.Snapshot())

	assert.Error(t, runBatch(ctx, todo.New(nil, "k"), batchArgs{add: "  "}))
	assert.Error(t, runBatch(ctx, todo.New(nil, "k"), batchArgs{importZip: filepath.Join(dir, "missing.zip")}))
}

func TestPrintListAndStats(t *testing.T) {
	p := todo.Payload{
		Todos: []todo.Task{
			{ID: "2", Text: "report", Today: true, TagID: "1"},
			{ID: "3", Text: "stretch\nslowly", IsRoutine: true},
		},
		Tags:   []todo.Tag{{ID: "1", Name: "work"}},
		NextID: 4,
	}
	var b bytes.Buffer
	printList(&b, p)
	assert.Equal(t, "2 tasks\n2\ttoday\t[work] report\n3\troutine\tstretch slowly\n", b.String())

	b.Reset()
	printStats(&b, p)
	assert.Contains(t, b.String(), "tasks: 2\n")
	assert.Contains(t, b.String(), "today: 1\n")
	assert.Contains(t, b.String(), "tag work: 1\n")
}

func TestRunBackupNeedsSQLite(t *testing.T) {
	assert.Error(t, runBackup(context.Background(), storage.NewMemory(), "k", false))

	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), storage.SQLiteFile), nil)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, runBackup(context.Background(), db, "k", false))
	infos, _, err := db.ListBackups()
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}
