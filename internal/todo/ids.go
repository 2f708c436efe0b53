package todo

import (
	"math"
	"strconv"
	"strings"
)

// idGen hands out decimal string ids from one counter shared by tasks, tags
// and completed records.
type idGen struct{ n int64 }

// maxID is the largest id the counter accepts from saved state. Larger
// values are not exact in the float64 the payload carries them in, and
// are treated like non-numeric ids.
const maxID = 1<<53 - 1

func (g *idGen) next() string {
	id := strconv.FormatInt(g.n, 10)
	g.n++
	return id
}

// numericID is the value an id contributes when recovering the counter.
// Non-numeric, negative, oversized or missing ids count as 0.
func numericID(id string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(id), 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > maxID {
		return 0
	}
	return f
}

// recoverNextID computes 1 + the largest numeric id in p.
func recoverNextID(p Payload) int64 {
	top := 0.0
	for _, t := range p.Todos {
		top = math.Max(top, numericID(t.ID))
	}
	for _, c := range p.CompletedTodos {
		top = math.Max(top, numericID(c.ID))
	}
	for _, t := range p.Tags {
		top = math.Max(top, numericID(t.ID))
	}
	return int64(math.Floor(top)) + 1
}
