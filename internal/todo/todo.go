// Package todo holds the task/tag state: the entities, the operations that
// mutate them, and the load/save lifecycle of the serialized state blob.
package todo

// HistoryLimit is the number of completed records retained, newest first.
const HistoryLimit = 30

// DefaultTimeLayout formats CompletedRecord.CompletedAt in local time.
const DefaultTimeLayout = "2006/1/2 15:04:05"

type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`
	Today     bool   `json:"today"`
	IsRoutine bool   `json:"isRoutine,omitempty"`
	TagID     string `json:"tagId,omitempty"` // empty means untagged
}

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CompletedRecord is a by-value copy of a task taken when it was completed.
type CompletedRecord struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	CompletedAt string `json:"completedAt"`
	TagID       string `json:"tagId,omitempty"`
}

// Payload is the serialized form of the whole state. All four fields are
// always written.
type Payload struct {
	Todos          []Task            `json:"todos"`
	CompletedTodos []CompletedRecord `json:"completedTodos"`
	Tags           []Tag             `json:"tags"`
	NextID         int64             `json:"nextId"`
}

// TagName returns the name of the tag with id, or "" if none.
func (p Payload) TagName(id string) string {
	if id == "" {
		return ""
	}
	for _, t := range p.Tags {
		if t.ID == id {
			return t.Name
		}
	}
	return ""
}
