package face

import (
	"math"
	"sync"
)

// DefaultThreshold is the cosine distance under which a face is a match.
const DefaultThreshold = 0.4

// Match is the best enrolled candidate for an embedding.
type Match struct {
	Identity   string
	Similarity float64
}

type enrolled struct {
	identity  string
	embedding []float32
}

// Recognizer matches embeddings against enrolled identities. An identity
// may have several embeddings; the best one counts. Safe for concurrent use.
type Recognizer struct {
	threshold float64

	mu      sync.RWMutex
	entries []enrolled
}

// NewRecognizer creates a Recognizer. A face matches when its cosine
// similarity to the best entry is at least 1 - threshold.
func NewRecognizer(threshold float64) *Recognizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Recognizer{threshold: threshold}
}

// Add enrolls an embedding for identity.
func (r *Recognizer) Add(identity string, embedding []float32) {
	if identity == "" || len(embedding) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, enrolled{identity: identity, embedding: append([]float32(nil), embedding...)})
}

// Len returns the number of enrolled embeddings.
func (r *Recognizer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Best returns the closest enrolled identity regardless of threshold.
func (r *Recognizer) Best(embedding []float32) (Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := Match{Similarity: math.Inf(-1)}
	found := false
	for _, e := range r.entries {
		if len(e.embedding) != len(embedding) {
			continue
		}
		sim := CosineSimilarity(e.embedding, embedding)
		if sim > best.Similarity {
			best = Match{Identity: e.identity, Similarity: sim}
			found = true
		}
	}
	return best, found
}

// Recognize returns the identity of embedding, or "" if no enrolled face is
// close enough.
func (r *Recognizer) Recognize(embedding []float32) string {
	m, ok := r.Best(embedding)
	if !ok || m.Similarity < 1-r.threshold {
		return ""
	}
	return m.Identity
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either is a zero vector. a and b must have equal length.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
