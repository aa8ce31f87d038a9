package spatial

// NoCell marks a history entry that did not come from a grid cell.
const NoCell = -1

const (
	minHistory = 1
	maxHistory = 32
)

// Entry is one remembered spawn in normalized playfield coordinates.
type Entry struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Cell int     `json:"cell"`
}

// History is a bounded FIFO of recent spawns. The oldest entry is evicted on
// overflow.
type History struct {
	capacity int
	items    []Entry
}

// NewHistory creates a history holding at most capacity entries, clamped to [1,32].
func NewHistory(capacity int) *History {
	if capacity < minHistory {
		capacity = minHistory
	} else if capacity > maxHistory {
		capacity = maxHistory
	}
	return &History{capacity: capacity, items: make([]Entry, 0, capacity)}
}

// Push appends e, evicting the oldest entry when full.
func (h *History) Push(e Entry) {
	if len(h.items) == h.capacity {
		copy(h.items, h.items[1:])
		h.items = h.items[:len(h.items)-1]
	}
	h.items = append(h.items, e)
}

// Last returns the most recent entry.
func (h *History) Last() (Entry, bool) {
	if len(h.items) == 0 {
		return Entry{}, false
	}
	return h.items[len(h.items)-1], true
}

// HasCell reports whether any remembered entry used the grid cell.
func (h *History) HasCell(cell int) bool {
	if cell == NoCell {
		return false
	}
	for _, e := range h.items {
		if e.Cell == cell {
			return true
		}
	}
	return false
}

// Entries returns a copy, oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.items))
	copy(out, h.items)
	return out
}

func (h *History) Len() int      { return len(h.items) }
func (h *History) Capacity() int { return h.capacity }
func (h *History) Clear()        { h.items = h.items[:0] }
