package todo

// Stats represents aggregate counts over a state snapshot.
type Stats struct {
	Total     int
	Today     int
	Done      int
	Routine   int
	Completed int
	Untagged  int
	ByTag     map[string]int // tag id -> open task count
}

// StatsFrom counts tasks and history in p. Every existing tag appears in
// ByTag, with 0 when unused.
func StatsFrom(p Payload) Stats {
	st := Stats{Total: len(p.Todos), Completed: len(p.CompletedTodos), ByTag: map[string]int{}}
	for _, t := range p.Tags {
		st.ByTag[t.ID] = 0
	}
	for _, t := range p.Todos {
		if t.Today {
			st.Today++
		}
		if t.Done {
			st.Done++
		}
		if t.IsRoutine {
			st.Routine++
		}
		if t.TagID == "" {
			st.Untagged++
			continue
		}
		st.ByTag[t.TagID]++
	}
	return st
}

// Stats counts the manager's current state.
func (m *Manager) Stats() Stats { return StatsFrom(m.Snapshot()) }
