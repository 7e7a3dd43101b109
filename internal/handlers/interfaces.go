package handlers

import (
	"context"
	"io"

	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/pagination"
)

// UserStore captures the persistence operations required by the user and token handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	List(ctx context.Context, page pagination.Params) ([]models.User, error)
	Update(ctx context.Context, user models.User) error
	Delete(ctx context.Context, id int64) error
}

// PostStore captures persistence for blog posts.
type PostStore interface {
	Create(ctx context.Context, post models.Post) (models.Post, error)
	FindByID(ctx context.Context, id int64) (models.Post, error)
	List(ctx context.Context, page pagination.Params) ([]models.Post, error)
	ListByAuthor(ctx context.Context, authorID int64, page pagination.Params) ([]models.Post, error)
	Update(ctx context.Context, post models.Post) error
	Delete(ctx context.Context, id int64) error
}

// TokenManager issues, verifies, rotates and revokes access/refresh token pairs.
type TokenManager interface {
	Issue(ctx context.Context, user models.User) (models.Token, error)
	VerifyAccess(ctx context.Context, accessToken string) (models.User, error)
	VerifyRefresh(ctx context.Context, refreshToken, accessToken string) (models.Token, error)
	Rotate(ctx context.Context, token models.Token) (models.Token, error)
	RevokeAccess(ctx context.Context, accessToken string) error
	Sweep(ctx context.Context) (int64, error)
}

// FollowGraph answers and mutates follow relationships.
type FollowGraph interface {
	IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error)
	Follow(ctx context.Context, followerID, followedID int64) error
	Unfollow(ctx context.Context, followerID, followedID int64) error
	SelectFollowing(ctx context.Context, userID int64, page pagination.Params) (pagination.Page[models.User], error)
	SelectFollowers(ctx context.Context, userID int64, page pagination.Params) (pagination.Page[models.User], error)
}

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	SetPassword(user *models.User, plaintext string) error
	VerifyPassword(user models.User, plaintext string) bool
}

// AvatarStorage persists uploaded avatar images and returns their public URL.
type AvatarStorage interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}
