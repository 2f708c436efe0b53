package todo

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const maxDumpLine = 120

// DumpMarkdown writes the snapshot as markdown to filename.
func DumpMarkdown(p Payload, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteMarkdown(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteMarkdown renders the today set, all tasks and the completed history.
// Each entry is one line; long or multi-line text is repeated in full inside
// a details block.
func WriteMarkdown(w io.Writer, p Payload) error {
	ew := &errWriter{w: w}
	st := StatsFrom(p)

	ew.printf("# Today (%d)\n\n", st.Today)
	n := 0
	for _, t := range p.Todos {
		if t.Today {
			writeTask(ew, p, t)
			n++
		}
	}
	if n == 0 {
		ew.printf("_nothing planned_\n")
	}

	ew.printf("\n# All tasks (%d)\n\n", st.Total)
	for _, t := range p.Todos {
		writeTask(ew, p, t)
	}
	if st.Total == 0 {
		ew.printf("_no tasks_\n")
	}

	ew.printf("\n# Completed (%d)\n\n", st.Completed)
	for _, c := range p.CompletedTodos {
		text, _, truncated := CleanOneLine(c.Text, maxDumpLine)
		ew.printf("- %s%s — %s\n", tagPrefix(p, c.TagID), text, c.CompletedAt)
		if truncated || multiline(c.Text) {
			writeDetails(ew, text, c.Text)
		}
	}
	if st.Completed == 0 {
		ew.printf("_no history_\n")
	}
	return ew.err
}

func writeTask(ew *errWriter, p Payload, t Task) {
	box := "[ ]"
	if t.Done {
		box = "[x]"
	}
	routine := ""
	if t.IsRoutine {
		routine = " ↻"
	}
	text, _, truncated := CleanOneLine(t.Text, maxDumpLine)
	ew.printf("- %s %s%s%s\n", box, tagPrefix(p, t.TagID), text, routine)
	if truncated || multiline(t.Text) {
		writeDetails(ew, text, t.Text)
	}
}

func multiline(s string) bool {
	return strings.Contains(strings.TrimSpace(s), "\n") || strings.Contains(s, "```")
}

func writeDetails(ew *errWriter, summary, full string) {
	ew.printf("\n  <details><summary>%s</summary>\n\n", escapeHTML(summary))
	ew.printf("  ```\n  %s\n  ```\n\n  </details>\n\n", strings.ReplaceAll(strings.TrimSpace(full), "\n", "\n  "))
}

// tagPrefix renders "[name] " for a tagged entry whose tag still exists.
func tagPrefix(p Payload, tagID string) string {
	if name := p.TagName(tagID); name != "" {
		return "[" + name + "] "
	}
	return ""
}

// Minimal HTML escaping for <summary> text
func escapeHTML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return r.Replace(s)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
