package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

const (
	RoleCreator  = "creator"
	RoleCustomer = "customer"
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created"`
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `
		SELECT id, username, roles, created_at FROM users WHERE username=$1`, username,
	).Scan(&u.ID, &u.Username, &u.Roles, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) Create(ctx context.Context, u *User) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO users(id, username, roles, created_at) VALUES ($1,$2,$3,$4)`,
		u.ID, u.Username, u.Roles, u.CreatedAt,
	)
	return err
}

// Seed inserts the demo users that are not present yet.
func (r *Repo) Seed(ctx context.Context) error {
	seeds := []User{
		{Username: "king", Roles: []string{RoleCreator, RoleCustomer}},
		{Username: "queen", Roles: []string{RoleCreator}},
		{Username: "james", Roles: []string{RoleCustomer}},
	}
	for _, u := range seeds {
		_, err := r.GetByUsername(ctx, u.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		u.ID = uuid.NewString()
		u.CreatedAt = time.Now().UTC()
		if err := r.Create(ctx, &u); err != nil {
			return err
		}
	}
	return nil
}
