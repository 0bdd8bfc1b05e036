package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
)

// UsersRepository persists user accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

// UserCreateParams captures a new account. PasswordHash must already be hashed.
type UserCreateParams struct {
	Username     string
	Email        string
	PasswordHash string
}

// UserUpdateParams holds optional profile fields; nil leaves a column as is.
type UserUpdateParams struct {
	Username       *string
	Email          *string
	Bio            *string
	ProfilePicture *string
}

const userColumns = `id, username, email, password_hash, bio, profile_picture, created_at, updated_at`

// Create inserts a user. Duplicate usernames or emails fail with ErrConflict.
func (r *UsersRepository) Create(ctx context.Context, params UserCreateParams) (domain.User, error) {
	query := fmt.Sprintf(`
        INSERT INTO users (id, username, email, password_hash)
        VALUES ($1,$2,$3,$4)
        RETURNING %s
    `, userColumns)
	user, err := scanUser(r.pool.QueryRow(ctx, query, uuid.NewString(), params.Username, params.Email, params.PasswordHash))
	if err != nil {
		return domain.User{}, translate(err, "user")
	}
	return user, nil
}

// GetByID fetches a user by identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByUsername fetches a user by username.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, `username = $1`, username)
}

// GetByEmail fetches a user by (lowercase) email.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, `email = $1`, email)
}

func (r *UsersRepository) getOne(ctx context.Context, where string, arg interface{}) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s`, userColumns, where)
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return domain.User{}, translate(err, "user")
	}
	return user, nil
}

// UpdateProfile applies a partial profile update.
func (r *UsersRepository) UpdateProfile(ctx context.Context, id string, params UserUpdateParams) (domain.User, error) {
	query := fmt.Sprintf(`
        UPDATE users
        SET username = COALESCE($2::text, username),
            email = COALESCE($3::text, email),
            bio = COALESCE($4::text, bio),
            profile_picture = COALESCE($5::text, profile_picture),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, userColumns)
	user, err := scanUser(r.pool.QueryRow(ctx, query, id, params.Username, params.Email, params.Bio, params.ProfilePicture))
	if err != nil {
		return domain.User{}, translate(err, "user")
	}
	return user, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Bio,
		&user.ProfilePicture,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}
