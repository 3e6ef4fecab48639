package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/classtape/authcore"
)

var _ authcore.UserStore = (*UserStore)(nil)

// UserStore persists users in the users table. Identifier lookup matches
// either the email (stored lower-case) or the exact username.
type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore { return &UserStore{db: db} }

const (
	userColumns = `id, email, username, password_hash, verification_hash,
verification_issued_at, registration, tier, sso_provider, created_at, updated_at`

	qUserInsert = `
INSERT INTO users (email, username, password_hash, verification_hash,
                   verification_issued_at, registration, tier, sso_provider,
                   created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id;`

	qUserUpdate = `
UPDATE users
SET email                  = $2,
    username               = $3,
    password_hash          = $4,
    verification_hash      = $5,
    verification_issued_at = $6,
    registration           = $7,
    tier                   = $8,
    sso_provider           = $9,
    updated_at             = $10
WHERE id = $1;`

	qUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1;`

	qUserByIdentifier = `
SELECT ` + userColumns + `
FROM users
WHERE email = lower($1) OR username = $1
LIMIT 1;`
)

func (s *UserStore) FindUserByID(ctx context.Context, id int64) (*authcore.User, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	var u authcore.User
	if err := scanUser(s.db.Pool.QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) FindUserByIdentifier(ctx context.Context, identifier string) (*authcore.User, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	var u authcore.User
	if err := scanUser(s.db.Pool.QueryRow(ctx, qUserByIdentifier, identifier), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) SaveUser(ctx context.Context, u *authcore.User) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	if u.ID == 0 {
		err := s.db.Pool.QueryRow(ctx, qUserInsert,
			u.Email, u.Username, u.PasswordHash, u.VerificationHash,
			u.VerificationIssuedAt, u.Registration, u.Tier, u.SSOProvider,
			u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return authcore.ErrDuplicateIdentifier
			}
			return fmt.Errorf("user insert: %w", err)
		}
		return nil
	}

	tag, err := s.db.Pool.Exec(ctx, qUserUpdate,
		u.ID, u.Email, u.Username, u.PasswordHash, u.VerificationHash,
		u.VerificationIssuedAt, u.Registration, u.Tier, u.SSOProvider,
		u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return authcore.ErrDuplicateIdentifier
		}
		return fmt.Errorf("user update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row, out *authcore.User) error {
	err := row.Scan(&out.ID, &out.Email, &out.Username, &out.PasswordHash,
		&out.VerificationHash, &out.VerificationIssuedAt, &out.Registration,
		&out.Tier, &out.SSOProvider, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authcore.ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
