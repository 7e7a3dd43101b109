package repositories

import (
	"context"
	"time"

	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/pagination"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, page pagination.Params) ([]models.User, error)
	Update(ctx context.Context, user models.User) error
	Delete(ctx context.Context, id int64) error
	Touch(ctx context.Context, id int64, at time.Time) (models.User, error)
}

// PostRepository defines the data access contract for posts. Returned posts
// carry their author.
type PostRepository interface {
	Create(ctx context.Context, post models.Post) (models.Post, error)
	FindByID(ctx context.Context, id int64) (models.Post, error)
	List(ctx context.Context, page pagination.Params) ([]models.Post, error)
	ListByAuthor(ctx context.Context, authorID int64, page pagination.Params) ([]models.Post, error)
	Update(ctx context.Context, post models.Post) error
	Delete(ctx context.Context, id int64) error
}

// FollowRepository defines data access for the directed follower relation.
type FollowRepository interface {
	Exists(ctx context.Context, followerID, followedID int64) (bool, error)
	Insert(ctx context.Context, followerID, followedID int64) error
	Delete(ctx context.Context, followerID, followedID int64) error
	ListFollowing(ctx context.Context, userID int64, page pagination.Params) ([]models.User, error)
	ListFollowers(ctx context.Context, userID int64, page pagination.Params) ([]models.User, error)
}
