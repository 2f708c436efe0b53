package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"today-todo/internal/archive"
	"today-todo/internal/config"
	"today-todo/internal/hooks"
	"today-todo/internal/todo"
)

type tab int

const (
	tabAll tab = iota
	tabToday
	tabDone
)

var tabNames = []string{"All", "Today", "Done"}

type inputMode int

const (
	inputNone inputMode = iota
	inputAdd
	inputRoutine
	inputEdit
	inputTag
)

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmDeleteTodo
	confirmDeleteTag
)

type model struct {
	cfg   config.Config
	mgr   *todo.Manager
	log   *zap.Logger
	hooks *hooks.HookEnv

	list  list.Model
	help  help.Model
	vp    viewport.Model
	spin  spinner.Model
	input textinput.Model

	width     int
	height    int
	statusMsg string
	showHelp  bool

	loading bool
	seeded  bool
	tab     tab
	snap    todo.Payload

	mode        inputMode
	editingID   string
	selectedTag string // tag applied to the next add/edit
	filterTag   string // All tab filter, "" shows everything
	confirm     confirmKind
	confirmID   string
}

type item struct {
	t     todo.Task
	title string
	desc  string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.t.Text + " " + i.desc }

type keymap struct {
	add      key.Binding
	routine  key.Binding
	edit     key.Binding
	toggle   key.Binding
	today    key.Binding
	unmark   key.Binding
	complete key.Binding
	del      key.Binding
	newTag   key.Binding
	pickTag  key.Binding
	filter   key.Binding
	delTag   key.Binding
	nextTab  key.Binding
	export   key.Binding
	dump     key.Binding
	reload   key.Binding
	quit     key.Binding
}

func newKeymap() keymap {
	return keymap{
		add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		routine:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "add routine")),
		edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "done")),
		today:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		unmark:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "not today")),
		complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		del:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		newTag:   key.NewBinding(key.WithKeys("#"), key.WithHelp("#", "new tag")),
		pickTag:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "pick tag")),
		filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter tag")),
		delTag:   key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "delete tag")),
		nextTab:  key.NewBinding(key.WithKeys("tab", "1", "2", "3"), key.WithHelp("tab/1-3", "switch tab")),
		export:   key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "export zip")),
		dump:     key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "dump markdown")),
		reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

var keys = newKeymap()

// tabKeys lists the bindings that act on the given tab, for help rendering.
func tabKeys(t tab) []key.Binding {
	switch t {
	case tabToday:
		return []key.Binding{keys.complete, keys.unmark, keys.toggle, keys.nextTab, keys.export, keys.dump, keys.quit}
	case tabDone:
		return []key.Binding{keys.nextTab, keys.export, keys.dump, keys.quit}
	default:
		return []key.Binding{keys.add, keys.routine, keys.edit, keys.toggle, keys.today, keys.del, keys.newTag, keys.pickTag, keys.filter, keys.delTag, keys.nextTab, keys.export, keys.dump, keys.reload, keys.quit}
	}
}

// New builds the UI around mgr. The manager is hydrated by Init; callers
// close it after the program exits.
func New(cfg config.Config, mgr *todo.Manager, log *zap.Logger) tea.Model {
	if log == nil {
		log = zap.NewNop()
	}
	lm := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	lm.SetShowStatusBar(false)
	lm.SetShowTitle(false)
	lm.SetFilteringEnabled(true)
	lm.SetShowHelp(false)
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	ti := textinput.New()
	ti.CharLimit = 200
	return &model{
		cfg: cfg, mgr: mgr, log: log.Named("tui"),
		list: lm, help: help.New(), spin: sp, input: ti,
		loading: true,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(loadHooksCmd(m.cfg, m.log), hydrateCmd(m.mgr), m.spin.Tick)
}

type hydratedMsg struct{}
type hooksLoadedMsg struct{ env *hooks.HookEnv }
type exportedMsg struct {
	path string
	man  archive.Manifest
	err  error
}
type dumpedMsg struct {
	path string
	err  error
}

func hydrateCmd(mgr *todo.Manager) tea.Cmd {
	return func() tea.Msg {
		mgr.Hydrate(context.Background())
		return hydratedMsg{}
	}
}

func reloadCmd(mgr *todo.Manager) tea.Cmd {
	return func() tea.Msg {
		mgr.Flush()
		mgr.Hydrate(context.Background())
		return hydratedMsg{}
	}
}

func loadHooksCmd(cfg config.Config, log *zap.Logger) tea.Cmd {
	return func() tea.Msg {
		env, _ := hooks.LoadDir(cfg.HooksDir, log)
		return hooksLoadedMsg{env}
	}
}

func exportCmd(payload, zipPath string) tea.Cmd {
	return func() tea.Msg {
		man, err := archive.Export(payload, zipPath)
		return exportedMsg{path: zipPath, man: man, err: err}
	}
}

func dumpCmd(p todo.Payload, path string) tea.Cmd {
	return func() tea.Msg {
		return dumpedMsg{path: path, err: todo.DumpMarkdown(p, path)}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(m.width, max(3, m.height-5))
		m.vp = viewport.New(m.width, max(3, m.height-5))
		m.refresh()
		return m, nil
	case hydratedMsg:
		m.loading = false
		m.maybeSeed()
		m.refresh()
		m.statusMsg = fmt.Sprintf("%d tasks, %d today, %d completed", len(m.snap.Todos), todo.StatsFrom(m.snap).Today, len(m.snap.CompletedTodos))
		return m, nil
	case hooksLoadedMsg:
		m.hooks = msg.env
		m.maybeSeed()
		if !m.loading {
			m.refresh()
		}
		return m, nil
	case exportedMsg:
		if msg.err != nil {
			m.statusMsg = "export failed: " + msg.err.Error()
			m.log.Warn("export failed", zap.String("path", msg.path), zap.Error(msg.err))
		} else {
			if ap, _ := filepath.Abs(msg.path); ap != "" {
				msg.path = ap
			}
			m.statusMsg = fmt.Sprintf("exported %d tasks to %s", msg.man.Todos, msg.path)
		}
		return m, nil
	case dumpedMsg:
		if msg.err != nil {
			m.statusMsg = "dump failed: " + msg.err.Error()
		} else {
			m.statusMsg = "wrote " + msg.path
		}
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if m.loading {
			// mutations must wait for hydration
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}
		if m.mode != inputNone {
			return m.updateInput(msg)
		}
		if m.confirm != confirmNone {
			return m.updateConfirm(msg)
		}
		if m.tab != tabDone && m.list.FilterState() == list.Filtering {
			break
		}
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
		if m.tab == tabDone {
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	}

	// Delegate other events to list
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	s := msg.String()
	switch {
	case key.Matches(msg, keys.quit):
		return m, tea.Quit, true
	case s == "?":
		m.showHelp = !m.showHelp
		return m, nil, true
	case key.Matches(msg, keys.nextTab), s == "shift+tab":
		m.switchTab(s)
		return m, nil, true
	case key.Matches(msg, keys.export):
		base := m.cfg.ExportDir
		if base == "" {
			base = "."
		}
		payload, err := m.mgr.Payload()
		if err != nil {
			m.statusMsg = "export failed: " + err.Error()
			return m, nil, true
		}
		m.statusMsg = "exporting..."
		return m, exportCmd(payload, filepath.Join(base, archive.DefaultName(time.Now()))), true
	case key.Matches(msg, keys.dump):
		base := m.cfg.ExportDir
		if base == "" {
			base = "."
		}
		name := fmt.Sprintf("today-todo-%s.md", time.Now().Format("20060102-150405"))
		return m, dumpCmd(m.mgr.Snapshot(), filepath.Join(base, name)), true
	}
	if m.tab == tabDone {
		return m, nil, false
	}

	sel, hasSel := m.list.SelectedItem().(item)
	switch {
	case key.Matches(msg, keys.toggle):
		if hasSel {
			m.mgr.ToggleTodo(sel.t.ID)
			m.refresh()
		}
		return m, nil, true
	case key.Matches(msg, keys.unmark):
		if hasSel {
			m.mgr.UnmarkToday(sel.t.ID)
			m.statusMsg = "removed from today: " + todo.OneLine(sel.t.Text)
			m.refresh()
		}
		return m, nil, true
	}

	if m.tab == tabToday {
		if key.Matches(msg, keys.complete) && hasSel {
			m.mgr.CompleteTodo(sel.t.ID)
			m.log.Debug("completed", zap.String("id", sel.t.ID), zap.Bool("routine", sel.t.IsRoutine))
			m.statusMsg = "completed: " + todo.OneLine(sel.t.Text)
			m.refresh()
			return m, nil, true
		}
		return m, nil, false
	}

	switch {
	case key.Matches(msg, keys.add):
		return m, m.startInput(inputAdd, "new task", ""), true
	case key.Matches(msg, keys.routine):
		return m, m.startInput(inputRoutine, "new routine", ""), true
	case key.Matches(msg, keys.newTag):
		return m, m.startInput(inputTag, "tag name", ""), true
	case key.Matches(msg, keys.edit):
		if !hasSel {
			return m, nil, true
		}
		m.editingID = sel.t.ID
		m.selectedTag = sel.t.TagID
		return m, m.startInput(inputEdit, "task text", sel.t.Text), true
	case key.Matches(msg, keys.today):
		if hasSel {
			m.mgr.MarkToday(sel.t.ID)
			m.statusMsg = "planned for today: " + todo.OneLine(sel.t.Text)
			m.refresh()
		}
		return m, nil, true
	case key.Matches(msg, keys.del):
		if hasSel {
			m.confirm, m.confirmID = confirmDeleteTodo, sel.t.ID
			m.statusMsg = "Delete selected task? y/N"
		}
		return m, nil, true
	case key.Matches(msg, keys.pickTag):
		m.selectedTag = m.cycleTag(m.selectedTag)
		m.statusMsg = "tag for next task: " + m.tagLabel(m.selectedTag)
		return m, nil, true
	case key.Matches(msg, keys.filter):
		m.filterTag = m.cycleTag(m.filterTag)
		m.refresh()
		m.statusMsg = "filter: " + m.tagLabel(m.filterTag)
		return m, nil, true
	case key.Matches(msg, keys.delTag):
		id := m.filterTag
		if id == "" {
			id = m.selectedTag
		}
		if id == "" {
			m.statusMsg = "pick a tag with f or s first"
			return m, nil, true
		}
		m.confirm, m.confirmID = confirmDeleteTag, id
		m.statusMsg = fmt.Sprintf("Delete tag %q? y/N", m.mgr.TagName(id))
		return m, nil, true
	case key.Matches(msg, keys.reload):
		m.loading = true
		return m, tea.Batch(reloadCmd(m.mgr), m.spin.Tick), true
	}
	return m, nil, false
}

func (m *model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	kind, id := m.confirm, m.confirmID
	m.confirm, m.confirmID = confirmNone, ""
	if msg.String() != "y" {
		m.statusMsg = "canceled"
		return m, nil
	}
	switch kind {
	case confirmDeleteTodo:
		m.mgr.DeleteTodo(id)
		m.statusMsg = "deleted: " + id
	case confirmDeleteTag:
		name := m.mgr.TagName(id)
		m.mgr.DeleteTag(id)
		if m.filterTag == id {
			m.filterTag = ""
		}
		if m.selectedTag == id {
			m.selectedTag = ""
		}
		m.statusMsg = "deleted tag: " + name
	}
	m.refresh()
	return m, nil
}

func (m *model) startInput(mode inputMode, placeholder, value string) tea.Cmd {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.endInput()
		m.statusMsg = "canceled"
		return m, nil
	case "ctrl+t":
		if m.mode != inputTag {
			m.selectedTag = m.cycleTag(m.selectedTag)
		}
		return m, nil
	case "enter":
		m.submitInput(m.input.Value())
		m.endInput()
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitInput validates the text before calling into the manager.
func (m *model) submitInput(value string) {
	if strings.TrimSpace(value) == "" {
		m.statusMsg = "empty text ignored"
		return
	}
	switch m.mode {
	case inputAdd, inputRoutine:
		id := m.mgr.AddTodo(value, m.mode == inputRoutine, m.selectedTag)
		m.statusMsg = "added #" + id
		m.selectedTag = ""
	case inputEdit:
		m.mgr.UpdateTodo(m.editingID, value, m.selectedTag)
		m.statusMsg = "updated #" + m.editingID
		m.selectedTag = ""
	case inputTag:
		if id := m.mgr.AddTag(value); id != "" {
			m.selectedTag = id
			m.statusMsg = "tag for next task: " + m.tagLabel(id)
		}
	}
}

func (m *model) endInput() {
	m.mode = inputNone
	m.editingID = ""
	m.input.Blur()
	m.input.SetValue("")
}

// cycleTag steps through "" and every tag id in order.
func (m *model) cycleTag(cur string) string {
	tags := m.mgr.Tags()
	if len(tags) == 0 {
		return ""
	}
	if cur == "" {
		return tags[0].ID
	}
	for i, t := range tags {
		if t.ID == cur {
			if i+1 < len(tags) {
				return tags[i+1].ID
			}
			return ""
		}
	}
	return ""
}

func (m *model) tagLabel(id string) string {
	if name := m.mgr.TagName(id); name != "" {
		return name
	}
	return "none"
}

func (m *model) switchTab(s string) {
	switch s {
	case "1":
		m.tab = tabAll
	case "2":
		m.tab = tabToday
	case "3":
		m.tab = tabDone
	case "shift+tab":
		m.tab = (m.tab + tab(len(tabNames)) - 1) % tab(len(tabNames))
	default:
		m.tab = (m.tab + 1) % tab(len(tabNames))
	}
	m.list.ResetFilter()
	m.list.Select(0)
	m.refresh()
}

// maybeSeed feeds seedTags() names through AddTag once both hooks and
// state are loaded. Existing names fold into their tags.
func (m *model) maybeSeed() {
	if m.seeded || m.loading || m.hooks == nil {
		return
	}
	m.seeded = true
	names, ok := m.hooks.CallStringSlice(hooks.SeedTags, nil)
	if !ok {
		return
	}
	for _, n := range names {
		m.mgr.AddTag(n)
	}
	m.log.Debug("seeded tags", zap.Int("count", len(names)))
}

// refresh re-reads the manager and rebuilds the active tab.
func (m *model) refresh() {
	if m.loading {
		return
	}
	m.snap = m.mgr.Snapshot()
	if m.filterTag != "" && m.snap.TagName(m.filterTag) == "" {
		m.filterTag = ""
	}
	if m.selectedTag != "" && m.snap.TagName(m.selectedTag) == "" {
		m.selectedTag = ""
	}
	switch m.tab {
	case tabDone:
		m.vp.SetContent(renderMarkdown(completedMarkdown(m.snap, m.hooks), m.width))
	case tabToday:
		m.setItems(func(t todo.Task) bool { return t.Today })
	default:
		m.setItems(func(t todo.Task) bool { return m.filterTag == "" || t.TagID == m.filterTag })
	}
}

func (m *model) setItems(keep func(todo.Task) bool) {
	idx := m.list.Index()
	items := make([]list.Item, 0, len(m.snap.Todos))
	for _, t := range m.snap.Todos {
		if keep(t) {
			items = append(items, m.todoItem(t))
		}
	}
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
}

func (m *model) View() string {
	if m.loading {
		return fmt.Sprintf("%s Loading tasks...", m.spin.View())
	}
	var b strings.Builder
	b.WriteString(tabBar(m.tab, m.snap))
	b.WriteString("\n")
	if m.tab == tabAll {
		b.WriteString(faintStyle.Render(fmt.Sprintf("filter: %s   next tag: %s", m.tagLabel(m.filterTag), m.tagLabel(m.selectedTag))))
		b.WriteString("\n")
	}
	if m.tab == tabDone {
		b.WriteString(m.vp.View())
	} else if len(m.list.Items()) == 0 {
		b.WriteString(faintStyle.Render(emptyText(m.tab)))
		b.WriteString("\n")
	} else {
		b.WriteString(m.list.View())
	}
	if m.mode != inputNone {
		b.WriteString("\n" + inputLabel(m.mode) + m.input.View())
		if m.mode != inputTag {
			b.WriteString(faintStyle.Render("  [tag: " + m.tagLabel(m.selectedTag) + ", ctrl+t to change]"))
		}
	}
	b.WriteString(footer(m.statusMsg))
	if m.showHelp {
		b.WriteString(m.help.ShortHelpView(tabKeys(m.tab)))
	} else {
		b.WriteString(faintStyle.Render("? help"))
	}
	return b.String()
}

func emptyText(t tab) string {
	if t == tabToday {
		return "Nothing planned for today. Press 1 and t on a task."
	}
	return "No tasks yet. Press a to add one."
}

func inputLabel(mode inputMode) string {
	switch mode {
	case inputRoutine:
		return "routine: "
	case inputEdit:
		return "edit: "
	case inputTag:
		return "tag: "
	default:
		return "task: "
	}
}

func footer(msg string) string {
	if msg == "" {
		return "\n"
	}
	return "\n" + msg + "\n"
}
