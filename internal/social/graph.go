// Package social implements the directed follow relation between users.
package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/pagination"
	"github.com/blogapi/backend/internal/repositories"
)

var (
	// ErrAlreadyFollowing indicates the follower already follows the target.
	ErrAlreadyFollowing = errors.New("already following user")
	// ErrNotFollowing indicates there is no edge to remove.
	ErrNotFollowing = errors.New("not following user")
	// ErrSelfFollow indicates a user tried to follow themselves.
	ErrSelfFollow = errors.New("users cannot follow themselves")
)

// Store persists follow edges. Insert must report repositories.ErrConflict for an
// existing edge and Delete must report repositories.ErrNotFound for a missing one.
type Store interface {
	Exists(ctx context.Context, followerID, followedID int64) (bool, error)
	Insert(ctx context.Context, followerID, followedID int64) error
	Delete(ctx context.Context, followerID, followedID int64) error
	ListFollowing(ctx context.Context, userID int64, page pagination.Params) ([]models.User, error)
	ListFollowers(ctx context.Context, userID int64, page pagination.Params) ([]models.User, error)
}

// Graph answers and mutates follow relationships. The acting user is always
// passed explicitly as followerID.
type Graph struct {
	store Store
}

// NewGraph constructs a Graph over store.
func NewGraph(store Store) *Graph {
	if store == nil {
		panic("social: store must not be nil")
	}
	return &Graph{store: store}
}

// IsFollowing reports whether followerID follows followedID.
func (g *Graph) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	ok, err := g.store.Exists(ctx, followerID, followedID)
	if err != nil {
		return false, fmt.Errorf("check follow %d->%d: %w", followerID, followedID, err)
	}
	return ok, nil
}

// IsFollowedBy reports whether userID is followed by followerID.
func (g *Graph) IsFollowedBy(ctx context.Context, userID, followerID int64) (bool, error) {
	return g.IsFollowing(ctx, followerID, userID)
}

// Follow adds the edge followerID -> followedID.
func (g *Graph) Follow(ctx context.Context, followerID, followedID int64) error {
	if followerID == followedID {
		return ErrSelfFollow
	}

	following, err := g.IsFollowing(ctx, followerID, followedID)
	if err != nil {
		return err
	}
	if following {
		return ErrAlreadyFollowing
	}

	if err := g.store.Insert(ctx, followerID, followedID); err != nil {
		// A concurrent follow can slip between the check and the insert; the
		// primary key on the edge table turns it into a conflict.
		if errors.Is(err, repositories.ErrConflict) {
			return ErrAlreadyFollowing
		}
		return fmt.Errorf("insert follow %d->%d: %w", followerID, followedID, err)
	}
	return nil
}

// Unfollow removes the edge followerID -> followedID.
func (g *Graph) Unfollow(ctx context.Context, followerID, followedID int64) error {
	following, err := g.IsFollowing(ctx, followerID, followedID)
	if err != nil {
		return err
	}
	if !following {
		return ErrNotFollowing
	}

	if err := g.store.Delete(ctx, followerID, followedID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFollowing
		}
		return fmt.Errorf("delete follow %d->%d: %w", followerID, followedID, err)
	}
	return nil
}

// SelectFollowing returns a window of the users userID follows.
func (g *Graph) SelectFollowing(ctx context.Context, userID int64, page pagination.Params) (pagination.Page[models.User], error) {
	users, err := g.store.ListFollowing(ctx, userID, page)
	if err != nil {
		return pagination.Page[models.User]{}, fmt.Errorf("list following of %d: %w", userID, err)
	}
	return pagination.NewPage(users, page), nil
}

// SelectFollowers returns a window of the users following userID.
func (g *Graph) SelectFollowers(ctx context.Context, userID int64, page pagination.Params) (pagination.Page[models.User], error) {
	users, err := g.store.ListFollowers(ctx, userID, page)
	if err != nil {
		return pagination.Page[models.User]{}, fmt.Errorf("list followers of %d: %w", userID, err)
	}
	return pagination.NewPage(users, page), nil
}
