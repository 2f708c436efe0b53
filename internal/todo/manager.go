package todo

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store is the persistence boundary. storage.Store satisfies it.
type Store interface {
	Load(ctx context.Context, key string) (payload string, ok bool, err error)
	Save(ctx context.Context, key, payload string) error
}

// Manager owns the tasks, tags and completed history. Mutations are expected
// from one logical caller at a time; the mutex only keeps background saves
// and readers consistent.
//
// Nothing is persisted until Hydrate (or HydrateFrom) has run. After that
// every state change schedules a background save.
type Manager struct {
	mu        sync.Mutex
	todos     []Task
	completed []CompletedRecord
	tags      []Tag
	ids       idGen
	hydrated  bool

	store  Store
	key    string
	log    *zap.Logger
	now    func() time.Time
	layout string

	gen      uint64 // snapshot generation, guarded by mu
	saveMu   sync.Mutex
	written  uint64 // last generation stored, guarded by saveMu
	inflight sync.WaitGroup
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock replaces time.Now for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTimeFormat sets the layout CompletedAt is formatted with. An empty
// layout keeps DefaultTimeLayout.
func WithTimeFormat(layout string) Option {
	return func(m *Manager) {
		if layout != "" {
			m.layout = layout
		}
	}
}

// New returns an empty, unhydrated manager that saves to store under key.
// A nil store disables persistence.
func New(store Store, key string, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		key:    key,
		log:    zap.NewNop(),
		now:    time.Now,
		layout: DefaultTimeLayout,
		ids:    idGen{n: 1},
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.Named("todo")
	return m
}

// AddTag returns the id of the tag named name (trimmed, case-insensitive),
// creating it if needed. A blank name is a no-op and returns "".
func (m *Manager) AddTag(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if strings.EqualFold(t.Name, trimmed) {
			return t.ID
		}
	}
	id := m.ids.next()
	m.tags = append(m.tags, Tag{ID: id, Name: trimmed})
	m.persistLocked()
	return id
}

// DeleteTag removes the tag and clears every task and completed record
// that pointed at it.
func (m *Manager) DeleteTag(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := false
	kept := m.tags[:0:0]
	for _, t := range m.tags {
		if t.ID == id {
			changed = true
			continue
		}
		kept = append(kept, t)
	}
	m.tags = kept
	for i := range m.todos {
		if id != "" && m.todos[i].TagID == id {
			m.todos[i].TagID = ""
			changed = true
		}
	}
	for i := range m.completed {
		if id != "" && m.completed[i].TagID == id {
			m.completed[i].TagID = ""
			changed = true
		}
	}
	if changed {
		m.persistLocked()
	}
}

// AddTodo appends a new task and returns its id. Blank text is a no-op
// and returns "".
func (m *Manager) AddTodo(text string, isRoutine bool, tagID string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.ids.next()
	m.todos = append(m.todos, Task{ID: id, Text: text, IsRoutine: isRoutine, TagID: tagID})
	m.persistLocked()
	return id
}

// UpdateTodo replaces text and tag of a task. Done, Today and IsRoutine are
// left alone.
func (m *Manager) UpdateTodo(id, text, tagID string) {
	m.modify(id, func(t *Task) {
		t.Text = text
		t.TagID = tagID
	})
}

func (m *Manager) DeleteTodo(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		m.todos = append(m.todos[:i:i], m.todos[i+1:]...)
		m.persistLocked()
	}
}

func (m *Manager) ToggleTodo(id string) {
	m.modify(id, func(t *Task) { t.Done = !t.Done })
}

func (m *Manager) MarkToday(id string) {
	m.modify(id, func(t *Task) { t.Today = true })
}

func (m *Manager) UnmarkToday(id string) {
	m.modify(id, func(t *Task) { t.Today = false })
}

// CompleteTodo records the task in the completed history. Routine tasks
// only leave the today set; others are removed.
func (m *Manager) CompleteTodo(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return
	}
	t := m.todos[i]
	rec := CompletedRecord{
		ID:          m.ids.next(),
		Text:        t.Text,
		CompletedAt: m.now().Local().Format(m.layout),
		TagID:       t.TagID,
	}
	n := len(m.completed) + 1
	if n > HistoryLimit {
		n = HistoryLimit
	}
	history := make([]CompletedRecord, 0, n)
	history = append(history, rec)
	history = append(history, m.completed[:n-1]...)
	m.completed = history

	if t.IsRoutine {
		m.todos[i].Today = false
	} else {
		m.todos = append(m.todos[:i:i], m.todos[i+1:]...)
	}
	m.persistLocked()
}

func (m *Manager) modify(id string, fn func(*Task)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return
	}
	before := m.todos[i]
	fn(&m.todos[i])
	if m.todos[i] != before {
		m.persistLocked()
	}
}

func (m *Manager) indexLocked(id string) int {
	for i := range m.todos {
		if m.todos[i].ID == id {
			return i
		}
	}
	return -1
}

// Todos returns a copy of all tasks in insertion order.
func (m *Manager) Todos() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Task{}, m.todos...)
}

// TodayTodos returns the tasks in the today set.
func (m *Manager) TodayTodos() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Task{}
	for _, t := range m.todos {
		if t.Today {
			out = append(out, t)
		}
	}
	return out
}

// TodosByTag returns tasks carrying tagID; an empty tagID returns all.
func (m *Manager) TodosByTag(tagID string) []Task {
	if tagID == "" {
		return m.Todos()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Task{}
	for _, t := range m.todos {
		if t.TagID == tagID {
			out = append(out, t)
		}
	}
	return out
}

// CompletedTodos returns the history, newest first.
func (m *Manager) CompletedTodos() []CompletedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletedRecord{}, m.completed...)
}

func (m *Manager) Tags() []Tag {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Tag{}, m.tags...)
}

// TagName returns the name for id, or "" when the tag does not exist.
func (m *Manager) TagName(id string) string {
	if id == "" {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.ID == id {
			return t.Name
		}
	}
	return ""
}

// NextID is the value the next issued id will carry.
func (m *Manager) NextID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids.n
}

func (m *Manager) Hydrated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hydrated
}

// Snapshot returns a consistent copy of the whole state.
func (m *Manager) Snapshot() Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payloadLocked()
}

func (m *Manager) payloadLocked() Payload {
	return Payload{
		Todos:          append([]Task{}, m.todos...),
		CompletedTodos: append([]CompletedRecord{}, m.completed...),
		Tags:           append([]Tag{}, m.tags...),
		NextID:         m.ids.n,
	}
}
