package gesture

// DefaultHistorySize is the number of wrist samples kept per hand slot.
const DefaultHistorySize = 15

// Sample is one normalized wrist position.
type Sample struct {
	X float64
	Y float64
}

// ring is a bounded FIFO of samples; the oldest is evicted on overflow.
type ring struct {
	buf   []Sample
	start int
	n     int
}

func newRing(size int) *ring {
	return &ring{buf: make([]Sample, size)}
}

func (r *ring) push(s Sample) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = s
		r.n++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

// samples returns the buffered samples oldest first.
func (r *ring) samples() []Sample {
	out := make([]Sample, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// History holds one bounded wrist trajectory per hand slot.
// It is owned by the frame loop and is not safe for concurrent use.
type History struct {
	size  int
	slots map[int]*ring
}

// NewHistory creates a History keeping up to size samples per slot.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size:  size,
		slots: make(map[int]*ring),
	}
}

// Add appends a wrist sample for the given slot.
func (h *History) Add(slot int, s Sample) {
	r, ok := h.slots[slot]
	if !ok {
		r = newRing(h.size)
		h.slots[slot] = r
	}
	r.push(s)
}

// Samples returns the trajectory for a slot, oldest first.
func (h *History) Samples(slot int) []Sample {
	r, ok := h.slots[slot]
	if !ok {
		return nil
	}
	return r.samples()
}

// Len returns the number of samples buffered for a slot.
func (h *History) Len(slot int) int {
	if r, ok := h.slots[slot]; ok {
		return r.n
	}
	return 0
}

// Clear drops the trajectory of one slot.
func (h *History) Clear(slot int) {
	delete(h.slots, slot)
}

// Reset drops every trajectory.
func (h *History) Reset() {
	clear(h.slots)
}

// Retain drops the trajectories of all slots not in keep.
func (h *History) Retain(keep map[int]bool) {
	for slot := range h.slots {
		if !keep[slot] {
			delete(h.slots, slot)
		}
	}
}

// Slots returns the number of slots with a trajectory.
func (h *History) Slots() int {
	return len(h.slots)
}
