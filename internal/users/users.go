// Package users handles accounts: registration, credential checks, profile
// management and the admin role tooling. Tokens are minted by the auth
// package; every other domain package trusts the identity the middleware
// injects.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/auth"
	"storefront/pkg/apperr"

	"golang.org/x/crypto/bcrypt"
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

// Insert registers a user with a bcrypt hashed password and the default role.
func (c *Conf) Insert(ctx context.Context, nu NewUser) (User, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
		nu.Username, nu.Email).Scan(&exists)
	if err != nil {
		return User{}, fmt.Errorf("checking existing user: %w", err)
	}
	if exists {
		return User{}, apperr.Conflict("USER_EXISTS", "Username or email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	u := User{Username: nu.Username, Email: nu.Email, FullName: nu.FullName, Role: auth.RoleUser}
	err = c.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING user_id, created_at, updated_at
	`, nu.Username, nu.Email, string(hash), nu.FullName, auth.RoleUser).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

// Authenticate verifies a username/password pair. Both an unknown user and a
// wrong password surface as the same auth error.
func (c *Conf) Authenticate(ctx context.Context, username, password string) (User, error) {
	var u User
	var hash string
	err := c.db.QueryRowContext(ctx, `
		SELECT user_id, username, email, password_hash, full_name, role, created_at, updated_at
		FROM users
		WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.Email, &hash, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.Auth("INVALID_CREDENTIALS", "Invalid username or password")
		}
		return User{}, fmt.Errorf("querying user %q: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, apperr.Auth("INVALID_CREDENTIALS", "Invalid username or password")
	}
	return u, nil
}

// GetByID loads one user's profile.
func (c *Conf) GetByID(ctx context.Context, userID int64) (User, error) {
	var u User
	err := c.db.QueryRowContext(ctx, `
		SELECT user_id, username, email, full_name, role, created_at, updated_at
		FROM users WHERE user_id = $1
	`, userID).Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.NotFound("USER_NOT_FOUND", "User not found")
		}
		return User{}, fmt.Errorf("querying user %d: %w", userID, err)
	}
	return u, nil
}

// UpdateProfile changes email and full name. Empty fields keep their value.
func (c *Conf) UpdateProfile(ctx context.Context, userID int64, p ProfileUpdate) (User, error) {
	_, err := c.db.ExecContext(ctx, `
		UPDATE users
		SET email = COALESCE(NULLIF($1, ''), email),
		    full_name = COALESCE(NULLIF($2, ''), full_name),
		    updated_at = now()
		WHERE user_id = $3
	`, p.Email, p.FullName, userID)
	if err != nil {
		return User{}, fmt.Errorf("updating profile %d: %w", userID, err)
	}
	return c.GetByID(ctx, userID)
}

// ChangePassword verifies the current password before storing a new hash.
func (c *Conf) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	var hash string
	err := c.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE user_id = $1`, userID).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("USER_NOT_FOUND", "User not found")
		}
		return fmt.Errorf("querying user %d: %w", userID, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)); err != nil {
		return apperr.Auth("INVALID_CREDENTIALS", "Current password is incorrect")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, updated_at = now() WHERE user_id = $2
	`, string(newHash), userID)
	if err != nil {
		return fmt.Errorf("updating password for user %d: %w", userID, err)
	}
	return nil
}

// ListAll pages through every account for the admin screen.
func (c *Conf) ListAll(ctx context.Context, page, limit int) ([]User, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT user_id, username, email, full_name, role, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning user: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating users: %w", err)
	}
	return list, total, nil
}

// UpdateRole promotes or demotes an account.
func (c *Conf) UpdateRole(ctx context.Context, userID int64, role string) error {
	if role != auth.RoleUser && role != auth.RoleAdmin {
		return apperr.Validation("INVALID_ROLE", "Role must be user or admin")
	}

	res, err := c.db.ExecContext(ctx, `
		UPDATE users SET role = $1, updated_at = now() WHERE user_id = $2
	`, role, userID)
	if err != nil {
		return fmt.Errorf("updating role for user %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("USER_NOT_FOUND", "User not found")
	}
	return nil
}
