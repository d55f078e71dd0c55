package store

import (
	"context"

	"booking-api/internal/model"
)

const userCols = `id, username, email, password_hash, first_name, last_name,
	phone_number, is_client, is_staff, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.PhoneNumber, u.IsClient, u.IsStaff, u.CreatedAt, u.UpdatedAt,
	)
	return wrap(err)
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.userWhere(ctx, `id = $1`, id)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.userWhere(ctx, `lower(email) = lower($1)`, email)
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.userWhere(ctx, `username = $1`, username)
}

func (s *Store) userWhere(ctx context.Context, cond string, arg any) (*model.User, error) {
	u := &model.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE `+cond, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.PhoneNumber, &u.IsClient, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, wrap(err)
	}
	return u, nil
}

// UpdateProfile writes the user-editable fields. Username, email and the
// role flags are not touched.
func (s *Store) UpdateProfile(ctx context.Context, u *model.User) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET first_name=$1, last_name=$2, phone_number=$3, updated_at=$4
		 WHERE id=$5`,
		u.FirstName, u.LastName, u.PhoneNumber, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
