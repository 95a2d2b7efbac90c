package store

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Embedding is one face embedding of a user. Source names where it came
// from, typically the enrollment image path.
type Embedding struct {
	ID        string
	UserID    string
	UserName  string
	Source    string
	Vector    []float32
	CreatedAt time.Time
}

// EmbeddingRepository provides operations on face embeddings.
type EmbeddingRepository struct {
	db *sql.DB
}

// Embeddings returns the embedding repository for this store.
func (s *Store) Embeddings() *EmbeddingRepository {
	return &EmbeddingRepository{db: s.db}
}

// Save stores e, replacing any embedding with the same user and source.
func (r *EmbeddingRepository) Save(e *Embedding) error {
	if len(e.Vector) == 0 {
		return errors.New("empty embedding")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO user_embeddings (id, user_id, source, dim, vector, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, source) DO UPDATE SET
			dim = excluded.dim, vector = excluded.vector, created_at = excluded.created_at`,
		e.ID, e.UserID, e.Source, len(e.Vector), encodeVector(e.Vector), e.CreatedAt,
	)
	return err
}

// Has reports whether the user already has an embedding from source.
func (r *EmbeddingRepository) Has(userID, source string) (bool, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM user_embeddings WHERE user_id = ? AND source = ?`,
		userID, source,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByUser retrieves all embeddings of one user.
func (r *EmbeddingRepository) ListByUser(userID string) ([]*Embedding, error) {
	return r.query(
		`SELECT e.id, e.user_id, u.name, e.source, e.dim, e.vector, e.created_at
		 FROM user_embeddings e JOIN users u ON u.id = e.user_id
		 WHERE e.user_id = ? ORDER BY e.created_at`,
		userID,
	)
}

// All retrieves every embedding with its user name.
func (r *EmbeddingRepository) All() ([]*Embedding, error) {
	return r.query(
		`SELECT e.id, e.user_id, u.name, e.source, e.dim, e.vector, e.created_at
		 FROM user_embeddings e JOIN users u ON u.id = e.user_id
		 ORDER BY u.name, e.created_at`,
	)
}

// DeleteByUser removes all embeddings of a user.
func (r *EmbeddingRepository) DeleteByUser(userID string) error {
	_, err := r.db.Exec(`DELETE FROM user_embeddings WHERE user_id = ?`, userID)
	return err
}

func (r *EmbeddingRepository) query(query string, args ...any) ([]*Embedding, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Embedding
	for rows.Next() {
		e := &Embedding{}
		var dim int
		var blob []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.Source, &dim, &blob, &e.CreatedAt); err != nil {
			return nil, err
		}

		e.Vector, err = decodeVector(blob, dim)
		if err != nil {
			return nil, fmt.Errorf("embedding %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte, dim int) ([]float32, error) {
	if len(buf) != 4*dim {
		return nil, fmt.Errorf("vector is %d bytes, want %d", len(buf), 4*dim)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
