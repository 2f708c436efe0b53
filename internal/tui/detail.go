package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"today-todo/internal/hooks"
	"today-todo/internal/todo"
)

var (
	activeTab   = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	inactiveTab = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	doneStyle   = lipgloss.NewStyle().Strikethrough(true).Faint(true)
)

func tabBar(cur tab, p todo.Payload) string {
	st := todo.StatsFrom(p)
	counts := []int{st.Total, st.Today, st.Completed}
	parts := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%s (%d)", name, counts[i])
		if tab(i) == cur {
			parts[i] = activeTab.Render(label)
		} else {
			parts[i] = inactiveTab.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// todoItem renders a row, letting renderTodoItem override title and desc.
func (m *model) todoItem(t todo.Task) item {
	text, _, _ := todo.CleanOneLine(t.Text, 120)
	title := text
	if name := m.snap.TagName(t.TagID); name != "" {
		title = "[" + name + "] " + title
	}
	if t.IsRoutine {
		title += " ↻"
	}
	if t.Done {
		title = doneStyle.Render(title)
	}
	var flags []string
	flags = append(flags, "#"+t.ID)
	if t.Today && m.tab == tabAll {
		flags = append(flags, "today")
	}
	if t.IsRoutine {
		flags = append(flags, "routine")
	}
	if t.Done {
		flags = append(flags, "done")
	}
	it := item{t: t, title: title, desc: strings.Join(flags, " · ")}

	if m.hooks == nil {
		return it
	}
	out, ok := m.hooks.CallExported(hooks.RenderTodoItem, taskToMap(t, m.snap))
	if !ok {
		return it
	}
	if mm, ok := out.(map[string]any); ok {
		if s, ok := mm["title"].(string); ok && s != "" {
			it.title = s
		}
		if s, ok := mm["desc"].(string); ok && s != "" {
			it.desc = s
		}
	}
	return it
}

// completedMarkdown builds the Done tab body, newest first.
func completedMarkdown(p todo.Payload, env *hooks.HookEnv) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "# Completed (%d)\n\n", len(p.CompletedTodos))
	if len(p.CompletedTodos) == 0 {
		b.WriteString("_No completed tasks yet._\n")
		return b.String()
	}
	for _, c := range p.CompletedTodos {
		if env != nil {
			if s, ok := env.CallString(hooks.RenderCompletedItem, completedToMap(c, p)); ok && s != "" {
				fmt.Fprintf(b, "- %s\n", todo.OneLine(s))
				continue
			}
		}
		text, _, _ := todo.CleanOneLine(c.Text, 200)
		if name := p.TagName(c.TagID); name != "" {
			fmt.Fprintf(b, "- `%s` **%s** _%s_\n", name, text, c.CompletedAt)
		} else {
			fmt.Fprintf(b, "- **%s** _%s_\n", text, c.CompletedAt)
		}
	}
	return b.String()
}

func renderMarkdown(md string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func taskToMap(t todo.Task, p todo.Payload) map[string]any {
	return map[string]any{
		"id":        t.ID,
		"text":      t.Text,
		"done":      t.Done,
		"today":     t.Today,
		"isRoutine": t.IsRoutine,
		"tagId":     t.TagID,
		"tag":       p.TagName(t.TagID),
	}
}

func completedToMap(c todo.CompletedRecord, p todo.Payload) map[string]any {
	return map[string]any{
		"id":          c.ID,
		"text":        c.Text,
		"completedAt": c.CompletedAt,
		"tagId":       c.TagID,
		"tag":         p.TagName(c.TagID),
	}
}
