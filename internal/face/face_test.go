package face

import (
	"errors"
	"image"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	plog "github.com/ayusman/pryvit/internal/log"
	"github.com/ayusman/pryvit/internal/store"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRecognizer(t *testing.T) {
	r := NewRecognizer(0)
	assert.Equal(t, "", r.Recognize([]float32{1, 0, 0}), "empty recognizer knows nobody")

	r.Add("Olena", []float32{1, 0, 0})
	r.Add("Andrii", []float32{0, 1, 0})
	r.Add("", []float32{0, 0, 1})
	assert.Equal(t, 2, r.Len())

	// cos = 0.8, distance 0.2 < 0.4
	assert.Equal(t, "Olena", r.Recognize([]float32{0.8, 0.6, 0}))

	// cos(45°) ≈ 0.707 for both, still above 0.6; first best wins
	m, ok := r.Best([]float32{1, 1, 0})
	require.True(t, ok)
	assert.InDelta(t, 1/math.Sqrt2, m.Similarity, 1e-9)

	// cos = 0.5, distance 0.5 > 0.4
	assert.Equal(t, "", r.Recognize([]float32{0.5, 0, float32(math.Sqrt(0.75))}))

	// Mismatched dimensions never match
	assert.Equal(t, "", r.Recognize([]float32{1, 0}))
}

func TestRecognizer_MultipleEmbeddingsPerIdentity(t *testing.T) {
	r := NewRecognizer(DefaultThreshold)
	r.Add("Olena", []float32{1, 0})
	r.Add("Olena", []float32{0, 1})

	assert.Equal(t, "Olena", r.Recognize([]float32{0.1, 1}))
	assert.Equal(t, "Olena", r.Recognize([]float32{1, 0.1}))
}

func TestResolver(t *testing.T) {
	r := NewRecognizer(DefaultThreshold)
	r.Add("Olena", []float32{1, 0, 0})

	emb := NewMockEmbedder()
	emb.SetFaces([]Detected{
		{BBox: image.Rect(10, 10, 60, 60), Embedding: []float32{0.9, 0.1, 0}},
		{BBox: image.Rect(200, 10, 260, 70), Embedding: []float32{0, 0, 1}},
	})

	res := NewResolver(emb, r)
	frame := gocv.NewMat()
	defer frame.Close()

	faces, err := res.Resolve(&frame)
	require.NoError(t, err)
	require.Len(t, faces, 2)
	assert.Equal(t, "Olena", faces[0].Identity)
	assert.Equal(t, image.Rect(10, 10, 60, 60), faces[0].BBox)
	assert.False(t, faces[1].Known())

	emb.SetError(errors.New("helper crashed"))
	_, err = res.Resolve(&frame)
	assert.Error(t, err)
}

func TestJSONFace(t *testing.T) {
	d := jsonFace{BBox: [4]int{10, 20, 110, 140}, Embedding: []float32{1, 2}}.toDetected()
	assert.Equal(t, image.Rect(10, 20, 110, 140), d.BBox)
	assert.Equal(t, []float32{1, 2}, d.Embedding)
}

func newTestEnroller(t *testing.T, emb Embedder) (*Enroller, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "faces.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e := NewEnroller(emb, s)
	e.log = plog.Nop()
	e.load = func(path string) (gocv.Mat, error) {
		if filepath.Base(path) == "missing.jpg" {
			return gocv.Mat{}, errors.New("cannot read image")
		}
		return gocv.NewMat(), nil
	}
	return e, s
}

func TestEnroller(t *testing.T) {
	emb := NewMockEmbedder()
	emb.SetFaces([]Detected{{BBox: image.Rect(0, 0, 10, 10), Embedding: []float32{1, 0, 0}}})
	e, s := newTestEnroller(t, emb)

	users := map[string][]string{
		"Olena":  {"data/olena/1.jpg", "data/olena/missing.jpg"},
		"Andrii": {"data/andrii/1.jpg"},
	}

	res, err := e.Enroll(users)
	require.NoError(t, err)
	assert.Equal(t, Result{Added: 2, Failed: 1}, res)

	// Second run reuses stored embeddings
	res, err = e.Enroll(users)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 2, Failed: 1}, res)

	r := NewRecognizer(DefaultThreshold)
	n, err := Seed(r, s)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, r.Len())
}

func TestEnroller_NoFace(t *testing.T) {
	e, s := newTestEnroller(t, NewMockEmbedder())

	res, err := e.Enroll(map[string][]string{"Olena": {"data/olena/1.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	all, err := s.Embeddings().All()
	require.NoError(t, err)
	assert.Empty(t, all)
}
