package todo

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Hydrate loads the saved state, replacing whatever is in memory. Load or
// decode failures start from an empty state. It must complete before any
// mutation is made.
func (m *Manager) Hydrate(ctx context.Context) {
	raw := ""
	if m.store != nil {
		s, ok, err := m.store.Load(ctx, m.key)
		switch {
		case err != nil:
			m.log.Warn("load failed, starting empty", zap.String("key", m.key), zap.Error(err))
		case ok:
			raw = s
		}
	}
	m.install(decode(raw, m.log))
}

// HydrateFrom replaces the state with an already serialized payload, as
// produced by Payload or an archive import.
func (m *Manager) HydrateFrom(raw string) {
	m.install(decode(raw, m.log))
}

func (m *Manager) install(p Payload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.todos = p.Todos
	m.completed = p.CompletedTodos
	m.tags = p.Tags
	m.ids.n = p.NextID
	m.hydrated = true
	m.log.Debug("hydrated",
		zap.Int("todos", len(m.todos)),
		zap.Int("completed", len(m.completed)),
		zap.Int("tags", len(m.tags)),
		zap.Int64("nextId", m.ids.n))
	m.persistLocked()
}

// Decode parses a saved payload leniently: a missing or wrong-typed
// collection becomes empty, and a missing, non-positive or oversized nextId
// is recovered from the largest numeric id. Elements are decoded one by one
// so a single odd element never drops its siblings.
func Decode(raw string) Payload {
	return decode(raw, zap.NewNop())
}

func decode(raw string, log *zap.Logger) Payload {
	p := Payload{Todos: []Task{}, CompletedTodos: []CompletedRecord{}, Tags: []Tag{}}
	var doc map[string]json.RawMessage
	if strings.TrimSpace(raw) == "" || json.Unmarshal([]byte(raw), &doc) != nil {
		p.NextID = 1
		return p
	}
	decodeList(doc["todos"], &p.Todos, log.With(zap.String("collection", "todos")))
	decodeList(doc["completedTodos"], &p.CompletedTodos, log.With(zap.String("collection", "completedTodos")))
	decodeList(doc["tags"], &p.Tags, log.With(zap.String("collection", "tags")))

	var next float64
	if v, ok := doc["nextId"]; ok && json.Unmarshal(v, &next) == nil && next > 0 && next <= maxID {
		p.NextID = int64(math.Ceil(next))
		return p
	}
	p.NextID = recoverNextID(p)
	return p
}

func decodeList[T any](raw json.RawMessage, out *[]T, log *zap.Logger) {
	if len(raw) == 0 {
		return
	}
	var elems []json.RawMessage
	if json.Unmarshal(raw, &elems) != nil || elems == nil {
		if string(raw) != "null" {
			log.Warn("collection is not an array, starting empty")
		}
		return
	}
	items := make([]T, 0, len(elems))
	for i, e := range elems {
		if strings.TrimSpace(string(e)) == "null" {
			log.Warn("skipping null element", zap.Int("index", i))
			continue
		}
		v, exact, ok := decodeElem[T](e)
		if !ok {
			log.Warn("skipping undecodable element", zap.Int("index", i))
			continue
		}
		if !exact {
			log.Warn("coerced mistyped fields", zap.Int("index", i))
		}
		items = append(items, v)
	}
	*out = items
}

// decodeElem decodes one object. When the whole object does not fit T it
// is decoded field by field, coercing mistyped values where it can and
// leaving the rest zero. Non-objects are rejected.
func decodeElem[T any](raw json.RawMessage) (v T, exact, ok bool) {
	if json.Unmarshal(raw, &v) == nil {
		return v, true, true
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil || fields == nil {
		return v, false, false
	}
	v = *new(T)
	for name, f := range fields {
		if setField(&v, name, f) {
			continue
		}
		for _, c := range coercions(f) {
			if setField(&v, name, c) {
				break
			}
		}
	}
	return v, false, true
}

func setField[T any](v *T, name string, val json.RawMessage) bool {
	b, err := json.Marshal(map[string]json.RawMessage{name: val})
	if err != nil {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

// coercions lists replacement encodings for a mistyped value: numbers and
// booleans as strings, and any value as its truthiness.
func coercions(f json.RawMessage) []json.RawMessage {
	var out []json.RawMessage
	var val interface{}
	if json.Unmarshal(f, &val) != nil {
		return nil
	}
	truthy := false
	switch x := val.(type) {
	case float64:
		s := strings.TrimSpace(string(f))
		q, _ := json.Marshal(s)
		out = append(out, q)
		truthy = x != 0
	case bool:
		q, _ := json.Marshal(strconv.FormatBool(x))
		out = append(out, q)
		truthy = x
	case string:
		truthy = x != ""
	case nil:
	default:
		truthy = true
	}
	return append(out, json.RawMessage(strconv.FormatBool(truthy)))
}

// Payload serializes the current state.
func (m *Manager) Payload() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := json.Marshal(m.payloadLocked())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// persistLocked serializes the state and saves it in the background.
// Callers hold mu; the snapshot is taken before returning.
func (m *Manager) persistLocked() {
	if !m.hydrated || m.store == nil {
		return
	}
	b, err := json.Marshal(m.payloadLocked())
	if err != nil {
		m.log.Warn("encode state", zap.Error(err))
		return
	}
	m.gen++
	gen := m.gen
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		_ = m.write(context.Background(), gen, string(b))
	}()
}

// write stores one snapshot. A snapshot older than the last one written is
// dropped so overlapping saves always end on the newest state.
func (m *Manager) write(ctx context.Context, gen uint64, payload string) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	if gen <= m.written {
		m.log.Debug("stale snapshot skipped", zap.Uint64("gen", gen), zap.Uint64("written", m.written))
		return nil
	}
	if err := m.store.Save(ctx, m.key, payload); err != nil {
		m.log.Warn("save failed", zap.String("key", m.key), zap.Uint64("gen", gen), zap.Error(err))
		return err
	}
	m.written = gen
	return nil
}

// Flush waits for background saves started so far.
func (m *Manager) Flush() {
	m.inflight.Wait()
}

// Close writes the current state synchronously and waits for pending
// saves. It is a no-op before hydration.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.hydrated || m.store == nil {
		m.mu.Unlock()
		m.Flush()
		return nil
	}
	b, err := json.Marshal(m.payloadLocked())
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	err = m.write(ctx, gen, string(b))
	m.Flush()
	return err
}
