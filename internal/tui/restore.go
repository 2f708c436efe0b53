package tui

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"today-todo/internal/storage"
	"today-todo/internal/todo"
)

// BackupEntry is one database backup plus a summary of the state it holds.
type BackupEntry struct {
	Info  storage.BackupInfo
	Stats todo.Stats
	Empty bool  // nothing saved under the key
	Err   error // backup could not be read
}

// LoadBackupEntries lists the backups of db, newest first, summarizing the
// state each one holds under key.
func LoadBackupEntries(ctx context.Context, db *storage.SQLite, key string) ([]BackupEntry, error) {
	infos, _, err := db.ListBackups()
	if err != nil {
		return nil, err
	}
	out := make([]BackupEntry, 0, len(infos))
	for _, info := range infos {
		e := BackupEntry{Info: info}
		raw, ok, err := db.ReadBackup(ctx, info.Suffix, key)
		switch {
		case err != nil:
			e.Err = err
		case !ok:
			e.Empty = true
		default:
			e.Stats = todo.StatsFrom(todo.Decode(raw))
		}
		out = append(out, e)
	}
	return out, nil
}

func (e BackupEntry) summary() string {
	switch {
	case e.Err != nil:
		return "unreadable"
	case e.Empty:
		return "no saved tasks"
	}
	return fmt.Sprintf("%d tasks, %d today, %d completed, %d tags",
		e.Stats.Total, e.Stats.Today, e.Stats.Completed, len(e.Stats.ByTag))
}

type backupItem struct{ e BackupEntry }

func (i backupItem) Title() string {
	return i.e.Info.ModTime.Format("2006-01-02 15:04:05") + "  " + i.e.Info.Suffix
}
func (i backupItem) Description() string {
	return i.e.summary() + " · " + humanize.Bytes(uint64(max(i.e.Info.Size, 0)))
}
func (i backupItem) FilterValue() string { return i.e.Info.Suffix }

// RestoreModel lets the user pick one of the database backups.
type RestoreModel struct {
	list           list.Model
	db             string
	quitting       bool
	selectedSuffix string
	msg            string
}

func NewRestore(entries []BackupEntry, db string) RestoreModel {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = backupItem{e}
	}
	l := list.New(items, list.NewDefaultDelegate(), 80, 20)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return RestoreModel{list: l, db: db}
}

func (m RestoreModel) Init() tea.Cmd { return nil }

func (m RestoreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, max(3, msg.Height-6))
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			it, ok := m.list.SelectedItem().(backupItem)
			if !ok {
				return m, tea.Quit
			}
			if it.e.Err != nil {
				m.msg = fmt.Sprintf("cannot restore %s: %v", it.e.Info.Suffix, it.e.Err)
				return m, nil
			}
			m.selectedSuffix = it.e.Info.Suffix
			return m, tea.Quit
		case "o":
			dir := filepath.Dir(m.db)
			openDir(dir)
			m.msg = fmt.Sprintf("opened: %s", dir)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m RestoreModel) View() string {
	if m.quitting {
		return ""
	}
	header := lipgloss.NewStyle().Bold(true).Render("Restore task database from backup") + "\n"
	header += fmt.Sprintf("Database: %s\n", m.db)
	header += "Quit any other today-todo instance before restoring!\n"
	header += faintStyle.Render("↑/↓ or j/k to navigate, Enter to restore, o to open folder, q to quit.") + "\n\n"
	body := ""
	if len(m.list.Items()) == 0 {
		body = "No backups found. Create one with --backup.\n"
	} else {
		body = m.list.View() + "\n"
	}
	if m.msg != "" {
		body += "\n" + m.msg + "\n"
	}
	return header + body
}

// Selected returns the chosen backup suffix, "" when the user quit.
func (m RestoreModel) Selected() string { return m.selectedSuffix }

func openDir(dir string) {
	switch runtime.GOOS {
	case "darwin":
		_ = exec.Command("open", dir).Start()
	case "windows":
		_ = exec.Command("explorer", dir).Start()
	default:
		_ = exec.Command("xdg-open", dir).Start()
	}
}
