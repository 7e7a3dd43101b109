package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/blogapi/backend/internal/db"
	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/pagination"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

const userColumns = `u.user_id, u.username, u.email, u.password_hash, u.about_me, u.avatar_url, u.last_seen, u.member_since`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.AboutMe, &user.AvatarURL, &user.LastSeen, &user.MemberSince)
	if err != nil {
		return models.User{}, err
	}
	user.LastSeen = user.LastSeen.UTC()
	user.MemberSince = user.MemberSince.UTC()
	return user, nil
}

func collectUsers(rows pgx.Rows) ([]models.User, error) {
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record and returns it with its assigned identifier.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	now := time.Now().UTC()
	if user.MemberSince.IsZero() {
		user.MemberSince = now
	}
	if user.LastSeen.IsZero() {
		user.LastSeen = now
	}

	row := conn.QueryRow(ctx, `
        INSERT INTO users AS u (username, email, password_hash, about_me, avatar_url, last_seen, member_since)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+userColumns,
		user.Username, user.Email, user.PasswordHash, user.AboutMe, user.AvatarURL, user.LastSeen, user.MemberSince)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	return created, nil
}

// FindByID fetches a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id int64) (models.User, error) {
	return r.findOne(ctx, "u.user_id = $1", id)
}

// FindByUsername fetches a user by their unique username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, "u.username = $1", username)
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "u.email = $1", email)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, where string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE `+where, arg)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// List returns a window of all users ordered by identifier.
func (r *PostgresUserRepository) List(ctx context.Context, page pagination.Params) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+userColumns+`
        FROM users u
        ORDER BY u.user_id
        LIMIT $1 OFFSET $2
    `, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	return collectUsers(rows)
}

// Update modifies an existing user record.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET username = $2, email = $3, password_hash = $4, about_me = $5, avatar_url = $6
        WHERE user_id = $1
    `, user.ID, user.Username, user.Email, user.PasswordHash, user.AboutMe, user.AvatarURL)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a user; tokens, posts and follow edges cascade.
func (r *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Touch sets last_seen and returns the updated user.
func (r *PostgresUserRepository) Touch(ctx context.Context, id int64, at time.Time) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE users AS u SET last_seen = $2
        WHERE u.user_id = $1
        RETURNING `+userColumns, id, at.UTC())

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("touch user: %w", err)
	}
	return user, nil
}

// PostgresPostRepository provides PostgreSQL-backed persistence for posts.
type PostgresPostRepository struct {
	pool db.Pool
}

// NewPostgresPostRepository constructs a post repository backed by PostgreSQL.
func NewPostgresPostRepository(pool db.Pool) *PostgresPostRepository {
	return &PostgresPostRepository{pool: pool}
}

const postSelect = `
        SELECT p.post_id, p.title, p.content, p.created_at, p.author_id, ` + userColumns + `
        FROM posts p
        JOIN users u ON u.user_id = p.author_id`

func scanPost(row scanner) (models.Post, error) {
	var (
		post   models.Post
		author models.User
	)
	err := row.Scan(&post.ID, &post.Title, &post.Content, &post.CreatedAt, &post.AuthorID,
		&author.ID, &author.Username, &author.Email, &author.PasswordHash, &author.AboutMe, &author.AvatarURL, &author.LastSeen, &author.MemberSince)
	if err != nil {
		return models.Post{}, err
	}
	post.CreatedAt = post.CreatedAt.UTC()
	author.LastSeen = author.LastSeen.UTC()
	author.MemberSince = author.MemberSince.UTC()
	post.Author = author
	return post, nil
}

// Create stores a new post and returns it with its author.
func (r *PostgresPostRepository) Create(ctx context.Context, post models.Post) (models.Post, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Post{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	var id int64
	err = conn.QueryRow(ctx, `
        INSERT INTO posts (title, content, created_at, author_id)
        VALUES ($1, $2, $3, $4)
        RETURNING post_id
    `, post.Title, post.Content, post.CreatedAt, post.AuthorID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return models.Post{}, ErrNotFound
		}
		return models.Post{}, fmt.Errorf("insert post: %w", err)
	}

	created, err := scanPost(conn.QueryRow(ctx, postSelect+` WHERE p.post_id = $1`, id))
	if err != nil {
		return models.Post{}, fmt.Errorf("reload post: %w", err)
	}
	return created, nil
}

// FindByID fetches a single post with its author.
func (r *PostgresPostRepository) FindByID(ctx context.Context, id int64) (models.Post, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Post{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	post, err := scanPost(conn.QueryRow(ctx, postSelect+` WHERE p.post_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Post{}, ErrNotFound
		}
		return models.Post{}, fmt.Errorf("select post: %w", err)
	}
	return post, nil
}

// List returns a window of all posts ordered by identifier.
func (r *PostgresPostRepository) List(ctx context.Context, page pagination.Params) ([]models.Post, error) {
	return r.list(ctx, postSelect+` ORDER BY p.post_id LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
}

// ListByAuthor returns a window of one author's posts ordered by identifier.
func (r *PostgresPostRepository) ListByAuthor(ctx context.Context, authorID int64, page pagination.Params) ([]models.Post, error) {
	return r.list(ctx, postSelect+` WHERE p.author_id = $1 ORDER BY p.post_id LIMIT $2 OFFSET $3`, authorID, page.Limit, page.Offset)
}

func (r *PostgresPostRepository) list(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// Update persists the editable fields of a post.
func (r *PostgresPostRepository) Update(ctx context.Context, post models.Post) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE posts
        SET title = $2, content = $3
        WHERE post_id = $1
    `, post.ID, post.Title, post.Content)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a post.
func (r *PostgresPostRepository) Delete(ctx context.Context, id int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM posts WHERE post_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresFollowRepository provides PostgreSQL-backed persistence for follow edges.
type PostgresFollowRepository struct {
	pool db.Pool
}

// NewPostgresFollowRepository constructs a follow repository backed by PostgreSQL.
func NewPostgresFollowRepository(pool db.Pool) *PostgresFollowRepository {
	return &PostgresFollowRepository{pool: pool}
}

// Exists reports whether followerID follows followedID.
func (r *PostgresFollowRepository) Exists(ctx context.Context, followerID, followedID int64) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM followers WHERE follower_id = $1 AND followed_id = $2
        )
    `, followerID, followedID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select follow edge: %w", err)
	}
	return exists, nil
}

// Insert creates the edge followerID -> followedID.
func (r *PostgresFollowRepository) Insert(ctx context.Context, followerID, followedID int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO followers (follower_id, followed_id)
        VALUES ($1, $2)
    `, followerID, followedID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation, pgCheckViolation:
				return ErrConflict
			case pgForeignKeyViolation:
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert follow edge: %w", err)
	}
	return nil
}

// Delete removes the edge followerID -> followedID.
func (r *PostgresFollowRepository) Delete(ctx context.Context, followerID, followedID int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM followers
        WHERE follower_id = $1 AND followed_id = $2
    `, followerID, followedID)
	if err != nil {
		return fmt.Errorf("delete follow edge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFollowing returns a window of the users userID follows.
func (r *PostgresFollowRepository) ListFollowing(ctx context.Context, userID int64, page pagination.Params) ([]models.User, error) {
	return r.list(ctx, `
        SELECT `+userColumns+`
        FROM followers f
        JOIN users u ON u.user_id = f.followed_id
        WHERE f.follower_id = $1
        ORDER BY u.user_id
        LIMIT $2 OFFSET $3
    `, userID, page)
}

// ListFollowers returns a window of the users following userID.
func (r *PostgresFollowRepository) ListFollowers(ctx context.Context, userID int64, page pagination.Params) ([]models.User, error) {
	return r.list(ctx, `
        SELECT `+userColumns+`
        FROM followers f
        JOIN users u ON u.user_id = f.follower_id
        WHERE f.followed_id = $1
        ORDER BY u.user_id
        LIMIT $2 OFFSET $3
    `, userID, page)
}

func (r *PostgresFollowRepository) list(ctx context.Context, query string, userID int64, page pagination.Params) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("query follow edges: %w", err)
	}
	return collectUsers(rows)
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ PostRepository = (*PostgresPostRepository)(nil)
var _ FollowRepository = (*PostgresFollowRepository)(nil)
