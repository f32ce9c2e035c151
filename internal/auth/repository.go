package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Repository is the PostgreSQL UserStore.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	var user User
	var avatar sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, confirmed, avatar, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.Confirmed, &avatar, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("query user by email: %w", err)
	}
	if avatar.Valid {
		user.Avatar = &avatar.String
	}

	return user, nil
}

func (r *Repository) Insert(ctx context.Context, user User) (User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, password_hash, confirmed, avatar, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`, user.Email, user.Username, user.PasswordHash, user.Confirmed, nullString(user.Avatar), now).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

func (r *Repository) Update(ctx context.Context, user User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET username = $2,
			password_hash = $3,
			confirmed = users.confirmed OR $4,
			avatar = $5,
			updated_at = $6
		WHERE id = $1
	`, user.ID, user.Username, user.PasswordHash, user.Confirmed, nullString(user.Avatar), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
