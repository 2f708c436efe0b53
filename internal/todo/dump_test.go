package todo

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() Payload {
	return Payload{
		Todos: []Task{
			{ID: "1", Text: "write report", Today: true, TagID: "9"},
			{ID: "2", Text: "stretch", Done: true, IsRoutine: true},
			{ID: "3", Text: "line one\nline two"},
		},
		CompletedTodos: []CompletedRecord{
			{ID: "5", Text: "pay rent", CompletedAt: "2024/3/9 14:05:07", TagID: "9"},
		},
		Tags:   []Tag{{ID: "9", Name: "work"}},
		NextID: 10,
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, samplePayload()))
	out := buf.String()

	assert.Contains(t, out, "# Today (1)")
	assert.Contains(t, out, "- [ ] [work] write report\n")
	assert.Contains(t, out, "# All tasks (3)")
	assert.Contains(t, out, "- [x] stretch ↻\n")
	assert.Contains(t, out, "- [ ] line one line two\n")
	assert.Contains(t, out, "<details><summary>line one line two</summary>")
	assert.Contains(t, out, "# Completed (1)")
	assert.Contains(t, out, "- [work] pay rent — 2024/3/9 14:05:07")
}

func TestWriteMarkdownEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, Decode("")))
	out := buf.String()
	assert.Contains(t, out, "_nothing planned_")
	assert.Contains(t, out, "_no tasks_")
	assert.Contains(t, out, "_no history_")
}

func TestDumpMarkdownFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "todos.md")
	require.NoError(t, DumpMarkdown(samplePayload(), p))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "# Today"))
}

func TestCleanOneLine(t *testing.T) {
	s, changed, truncated := CleanOneLine("a\n  b ```code``` c", 0)
	assert.Equal(t, "a b c", s)
	assert.True(t, changed)
	assert.False(t, truncated)

	s, _, truncated = CleanOneLine("abcdef", 3)
	assert.Equal(t, "abc…", s)
	assert.True(t, truncated)

	s, changed, _ = CleanOneLine("plain", 10)
	assert.Equal(t, "plain", s)
	assert.False(t, changed)

	assert.Equal(t, "keep", OneLine("keep ```unclosed"))
}

func TestStatsFrom(t *testing.T) {
	st := StatsFrom(samplePayload())
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Today)
	assert.Equal(t, 1, st.Done)
	assert.Equal(t, 1, st.Routine)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 2, st.Untagged)
	assert.Equal(t, map[string]int{"9": 1}, st.ByTag)
}
