package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/blogapi/backend/internal/auth"
	"github.com/blogapi/backend/internal/db"
	"github.com/blogapi/backend/internal/models"
)

const tokenColumns = `token_id, access_token, access_expiration, refresh_token, refresh_expiration, user_id`

// PostgresTokenStore persists token pairs to PostgreSQL.
type PostgresTokenStore struct {
	pool db.Pool
}

// NewPostgresTokenStore constructs a token store backed by PostgreSQL.
func NewPostgresTokenStore(pool db.Pool) *PostgresTokenStore {
	return &PostgresTokenStore{pool: pool}
}

func scanToken(row scanner) (models.Token, error) {
	var token models.Token
	if err := row.Scan(&token.ID, &token.AccessToken, &token.AccessExpiration, &token.RefreshToken, &token.RefreshExpiration, &token.UserID); err != nil {
		return models.Token{}, err
	}
	token.AccessExpiration = token.AccessExpiration.UTC()
	token.RefreshExpiration = token.RefreshExpiration.UTC()
	return token, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertToken(ctx context.Context, q queryRower, token models.Token) (models.Token, error) {
	row := q.QueryRow(ctx, `
        INSERT INTO tokens (access_token, access_expiration, refresh_token, refresh_expiration, user_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+tokenColumns,
		token.AccessToken, token.AccessExpiration.UTC(), token.RefreshToken, token.RefreshExpiration.UTC(), token.UserID)

	created, err := scanToken(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return models.Token{}, ErrNotFound
		}
		return models.Token{}, fmt.Errorf("insert token: %w", err)
	}
	return created, nil
}

// Create stores a new token pair.
func (s *PostgresTokenStore) Create(ctx context.Context, token models.Token) (models.Token, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.Token{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return insertToken(ctx, conn, token)
}

// FindByAccessToken loads the most recent row carrying accessToken.
func (s *PostgresTokenStore) FindByAccessToken(ctx context.Context, accessToken string) (models.Token, error) {
	return s.findOne(ctx, "access_token", accessToken)
}

// FindByRefreshToken loads the most recent row carrying refreshToken.
func (s *PostgresTokenStore) FindByRefreshToken(ctx context.Context, refreshToken string) (models.Token, error) {
	return s.findOne(ctx, "refresh_token", refreshToken)
}

func (s *PostgresTokenStore) findOne(ctx context.Context, column, value string) (models.Token, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.Token{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+tokenColumns+`
        FROM tokens
        WHERE `+column+` = $1
        ORDER BY token_id DESC
        LIMIT 1
    `, value)

	token, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Token{}, auth.ErrTokenNotFound
		}
		return models.Token{}, fmt.Errorf("select token: %w", err)
	}
	return token, nil
}

// Expire sets both expirations of a token row to at.
func (s *PostgresTokenStore) Expire(ctx context.Context, tokenID int64, at time.Time) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE tokens
        SET access_expiration = $2, refresh_expiration = $2
        WHERE token_id = $1
    `, tokenID, at.UTC())
	if err != nil {
		return fmt.Errorf("expire token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrTokenNotFound
	}
	return nil
}

// Rotate expires the row oldID and inserts next inside one transaction. Only a
// row whose refresh token is still live at at can be rotated, so two concurrent
// refreshes with the same token mint at most one new pair.
func (s *PostgresTokenStore) Rotate(ctx context.Context, oldID int64, at time.Time, next models.Token) (models.Token, error) {
	var rotated models.Token
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE tokens
            SET access_expiration = $2, refresh_expiration = $2
            WHERE token_id = $1 AND refresh_expiration > $2
        `, oldID, at.UTC())
		if err != nil {
			return fmt.Errorf("expire token: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return auth.ErrTokenNotFound
		}

		rotated, err = insertToken(ctx, tx, next)
		return err
	})
	if err != nil {
		return models.Token{}, err
	}
	return rotated, nil
}

// DeleteRefreshExpiredBefore removes rows whose refresh expiration is before cutoff.
func (s *PostgresTokenStore) DeleteRefreshExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM tokens WHERE refresh_expiration < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ auth.TokenStore = (*PostgresTokenStore)(nil)
