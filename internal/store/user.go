package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// User is an enrolled person.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRepository provides CRUD operations for users.
type UserRepository struct {
	db *sql.DB
}

// Users returns the user repository for this store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{db: s.db}
}

// Create inserts a new user. An empty ID is filled with a new UUID.
func (r *UserRepository) Create(u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)`,
		u.ID, u.Name, u.CreatedAt,
	)
	return err
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id string) (*User, error) {
	return r.scanOne(`SELECT id, name, created_at FROM users WHERE id = ?`, id)
}

// GetByName retrieves a user by name.
func (r *UserRepository) GetByName(name string) (*User, error) {
	return r.scanOne(`SELECT id, name, created_at FROM users WHERE name = ?`, name)
}

// GetOrCreate returns the user with name, creating it if needed.
func (r *UserRepository) GetOrCreate(name string) (*User, error) {
	u, err := r.GetByName(name)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	u = &User{Name: name}
	if err := r.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) scanOne(query string, arg any) (*User, error) {
	u := &User{}
	err := r.db.QueryRow(query, arg).Scan(&u.ID, &u.Name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// List retrieves all users ordered by name.
func (r *UserRepository) List() ([]*User, error) {
	rows, err := r.db.Query(`SELECT id, name, created_at FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Delete removes a user and, by cascade, their embeddings.
func (r *UserRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
