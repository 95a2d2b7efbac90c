package face

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	plog "github.com/ayusman/pryvit/internal/log"
	"github.com/ayusman/pryvit/internal/store"
)

// ErrNoFace is returned when an enrollment image contains no face.
var ErrNoFace = errors.New("no face found")

// Enroller computes embeddings for configured users and persists them.
type Enroller struct {
	embedder Embedder
	store    *store.Store
	load     func(path string) (gocv.Mat, error)
	log      zerolog.Logger
}

// NewEnroller creates an Enroller that reads images from disk.
func NewEnroller(embedder Embedder, s *store.Store) *Enroller {
	return &Enroller{
		embedder: embedder,
		store:    s,
		load:     readImage,
		log:      plog.With("enroll"),
	}
}

func readImage(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("cannot read image %s", path)
	}
	return img, nil
}

// Result summarizes an enrollment run.
type Result struct {
	Added   int
	Skipped int
	Failed  int
}

// Enroll embeds the first face of every image of every user. Images already
// stored for a user are skipped. Per-image failures are logged and counted;
// only store errors abort the run.
func (e *Enroller) Enroll(users map[string][]string) (Result, error) {
	var res Result

	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		u, err := e.store.Users().GetOrCreate(name)
		if err != nil {
			return res, fmt.Errorf("user %s: %w", name, err)
		}

		for _, path := range users[name] {
			has, err := e.store.Embeddings().Has(u.ID, path)
			if err != nil {
				return res, fmt.Errorf("user %s: %w", name, err)
			}
			if has {
				res.Skipped++
				continue
			}

			vec, err := e.embedImage(path)
			if err != nil {
				e.log.Warn().Err(err).Str("user", name).Str("image", path).Msg("enrollment image skipped")
				res.Failed++
				continue
			}

			if err := e.store.Embeddings().Save(&store.Embedding{UserID: u.ID, Source: path, Vector: vec}); err != nil {
				return res, fmt.Errorf("save embedding for %s: %w", name, err)
			}
			res.Added++
			e.log.Info().Str("user", name).Str("image", path).Msg("enrolled")
		}
	}
	return res, nil
}

func (e *Enroller) embedImage(path string) ([]float32, error) {
	img, err := e.load(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	faces, err := e.embedder.Embed(&img)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFace, path)
	}
	return faces[0].Embedding, nil
}

// Seed loads every stored embedding into r and returns how many it added.
func Seed(r *Recognizer, s *store.Store) (int, error) {
	all, err := s.Embeddings().All()
	if err != nil {
		return 0, fmt.Errorf("load embeddings: %w", err)
	}
	for _, e := range all {
		r.Add(e.UserName, e.Vector)
	}
	return len(all), nil
}
