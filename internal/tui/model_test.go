package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"today-todo/internal/config"
	"today-todo/internal/hooks"
	"today-todo/internal/storage"
	"today-todo/internal/todo"
)

func newTestModel(t *testing.T) (*model, *todo.Manager) {
	t.Helper()
	mgr := todo.New(nil, "test@todos")
	mgr.HydrateFrom("")
	m := New(config.Config{}, mgr, zaptest.NewLogger(t)).(*model)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m.Update(hydratedMsg{})
	return m, mgr
}

func press(m *model, keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m.Update(msg)
	}
}

func TestAddPlanCompleteFlow(t *testing.T) {
	m, mgr := newTestModel(t)

	press(m, "a", "buy milk", "enter")
	require.Len(t, mgr.Todos(), 1)
	assert.Equal(t, "buy milk", mgr.Todos()[0].Text)
	assert.False(t, mgr.Todos()[0].IsRoutine)

	press(m, "t")
	assert.Len(t, mgr.TodayTodos(), 1)

	press(m, "2")
	assert.Equal(t, tabToday, m.tab)
	press(m, "c")
	assert.Empty(t, mgr.Todos())
	require.Len(t, mgr.CompletedTodos(), 1)
	assert.Equal(t, "buy milk", mgr.CompletedTodos()[0].Text)

	press(m, "3")
	assert.Equal(t, tabDone, m.tab)
	assert.Contains(t, m.View(), "milk")
}

func TestRoutineStaysAfterComplete(t *testing.T) {
	m, mgr := newTestModel(t)
	press(m, "R", "stretch", "enter", "t", "2", "c")
	require.Len(t, mgr.Todos(), 1)
	assert.True(t, mgr.Todos()[0].IsRoutine)
	assert.False(t, mgr.Todos()[0].Today)
	assert.Len(t, mgr.CompletedTodos(), 1)
}

func TestEmptyInputIgnored(t *testing.T) {
	m, mgr := newTestModel(t)
	press(m, "a", "   ", "enter")
	assert.Empty(t, mgr.Todos())
	assert.Equal(t, "empty text ignored", m.statusMsg)

	press(m, "a", "draft", "esc")
	assert.Empty(t, mgr.Todos())
	assert.Equal(t, inputNone, m.mode)
}

func TestEditToggleDeleteWithConfirm(t *testing.T) {
	m, mgr := newTestModel(t)
	press(m, "a", "first", "enter")
	id := mgr.Todos()[0].ID

	press(m, "e", "!", "enter")
	assert.Equal(t, "first!", mgr.Todos()[0].Text)

	press(m, " ")
	assert.True(t, mgr.Todos()[0].Done)

	press(m, "x", "n")
	assert.Len(t, mgr.Todos(), 1)
	press(m, "x", "y")
	assert.Empty(t, mgr.Todos())
	assert.Equal(t, "deleted: "+id, m.statusMsg)
}

func TestTagsFilterAndDelete(t *testing.T) {
	m, mgr := newTestModel(t)
	press(m, "#", "work", "enter")
	require.Len(t, mgr.Tags(), 1)
	tagID := mgr.Tags()[0].ID
	assert.Equal(t, tagID, m.selectedTag)

	press(m, "a", "report", "enter")
	assert.Equal(t, tagID, mgr.Todos()[0].TagID)
	assert.Empty(t, m.selectedTag)
	press(m, "a", "laundry", "enter")

	press(m, "f")
	assert.Equal(t, tagID, m.filterTag)
	assert.Len(t, m.list.Items(), 1)

	press(m, "X", "y")
	assert.Empty(t, mgr.Tags())
	assert.Empty(t, m.filterTag)
	for _, td := range mgr.Todos() {
		assert.Empty(t, td.TagID)
	}
	assert.Len(t, m.list.Items(), 2)
}

func TestKeysIgnoredWhileLoading(t *testing.T) {
	mgr := todo.New(nil, "test@todos")
	m := New(config.Config{}, mgr, nil).(*model)
	press(m, "a")
	assert.Equal(t, inputNone, m.mode)
	assert.Contains(t, m.View(), "Loading")
}

func TestSeedTagsHook(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed.js"), []byte(`export function seedTags() { return ["Work", "home"]; }`), 0o644))
	env, err := hooks.LoadDir(dir, nil)
	require.NoError(t, err)

	m, mgr := newTestModel(t)
	mgr.AddTag("work")
	m.Update(hooksLoadedMsg{env})
	tags := mgr.Tags()
	require.Len(t, tags, 2)
	assert.Equal(t, "work", tags[0].Name)
	assert.Equal(t, "home", tags[1].Name)

	// seeding runs once
	m.Update(hooksLoadedMsg{env})
	assert.Len(t, mgr.Tags(), 2)
}

func TestRenderTodoItemHook(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.js"), []byte(`function renderTodoItem(t) { return { title: "* " + t.text + " @" + t.tag }; }`), 0o644))
	env, err := hooks.LoadDir(dir, nil)
	require.NoError(t, err)

	m, mgr := newTestModel(t)
	m.Update(hooksLoadedMsg{env})
	tag := mgr.AddTag("home")
	mgr.AddTodo("sweep", false, tag)
	m.refresh()
	it := m.list.Items()[0].(item)
	assert.Equal(t, "* sweep @home", it.Title())
	assert.Contains(t, it.Description(), "#")
}

func TestCompletedMarkdown(t *testing.T) {
	p := todo.Payload{
		Tags: []todo.Tag{{ID: "1", Name: "work"}},
		CompletedTodos: []todo.CompletedRecord{
			{ID: "2", Text: "ship", CompletedAt: "2024/3/9 14:05:07", TagID: "1"},
			{ID: "3", Text: "nap", CompletedAt: "2024/3/9 15:00:00"},
		},
	}
	md := completedMarkdown(p, nil)
	assert.Contains(t, md, "# Completed (2)")
	assert.Contains(t, md, "- `work` **ship** _2024/3/9 14:05:07_")
	assert.Contains(t, md, "- **nap** _2024/3/9 15:00:00_")

	assert.Contains(t, completedMarkdown(todo.Payload{}, nil), "No completed tasks yet")
}

func TestCycleTag(t *testing.T) {
	m, mgr := newTestModel(t)
	assert.Equal(t, "", m.cycleTag(""))
	a := mgr.AddTag("a")
	b := mgr.AddTag("b")
	assert.Equal(t, a, m.cycleTag(""))
	assert.Equal(t, b, m.cycleTag(a))
	assert.Equal(t, "", m.cycleTag(b))
	assert.Equal(t, "", m.cycleTag("gone"))
}

func TestRestoreModelSelect(t *testing.T) {
	entries := []BackupEntry{
		{Info: storage.BackupInfo{Suffix: "20240102-030405", ModTime: time.Now(), Size: 2048}, Err: errors.New("corrupt")},
		{Info: storage.BackupInfo{Suffix: "20240101-000000", ModTime: time.Now()}, Stats: todo.Stats{Total: 3, Today: 1, ByTag: map[string]int{}}},
	}
	var rm tea.Model = NewRestore(entries, "/tmp/x.db")
	view := rm.View()
	assert.Contains(t, view, "20240101-000000")
	assert.Contains(t, view, "3 tasks, 1 today")

	// unreadable backups cannot be picked
	rm, cmd := rm.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "", rm.(RestoreModel).Selected())
	assert.Contains(t, rm.View(), "cannot restore 20240102-030405")

	rm, _ = rm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	rm, cmd = rm.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotNil(t, cmd)
	assert.Equal(t, "20240101-000000", rm.(RestoreModel).Selected())

	rm, _ = NewRestore(nil, "/tmp/x.db").Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, "", rm.(RestoreModel).Selected())
	assert.Contains(t, NewRestore(nil, "/tmp/x.db").View(), "No backups found")
}

func TestLoadBackupEntries(t *testing.T) {
	ctx := context.Background()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), storage.SQLiteFile), nil)
	require.NoError(t, err)
	defer db.Close()

	mgr := todo.New(db, "k")
	mgr.Hydrate(ctx)
	tag := mgr.AddTag("work")
	mgr.AddTodo("a", false, tag)
	mgr.MarkToday(mgr.AddTodo("b", true, ""))
	require.NoError(t, mgr.Close(ctx))
	_, err = db.Backup("20240101-000000")
	require.NoError(t, err)

	entries, err := LoadBackupEntries(ctx, db, "k")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NoError(t, entries[0].Err)
	assert.Equal(t, 2, entries[0].Stats.Total)
	assert.Equal(t, 1, entries[0].Stats.Today)
	assert.Equal(t, "2 tasks, 1 today, 0 completed, 1 tags", entries[0].summary())

	entries, err = LoadBackupEntries(ctx, db, "other")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Empty)
}
