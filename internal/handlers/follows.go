package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/blogapi/backend/internal/logging"
	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/pagination"
)

// FollowHandler implements the follower graph endpoints.
type FollowHandler struct {
	Users        UserStore
	Follows      FollowGraph
	MaxPageLimit int
}

// MyFollowing handles GET /me/following.
func (h FollowHandler) MyFollowing(w http.ResponseWriter, r *http.Request, caller models.User) {
	h.list(w, r, caller.ID, h.Follows.SelectFollowing)
}

// MyFollowers handles GET /me/followers.
func (h FollowHandler) MyFollowers(w http.ResponseWriter, r *http.Request, caller models.User) {
	h.list(w, r, caller.ID, h.Follows.SelectFollowers)
}

// Following handles GET /users/{id}/following.
func (h FollowHandler) Following(w http.ResponseWriter, r *http.Request) {
	h.listOf(w, r, h.Follows.SelectFollowing)
}

// Followers handles GET /users/{id}/followers.
func (h FollowHandler) Followers(w http.ResponseWriter, r *http.Request) {
	h.listOf(w, r, h.Follows.SelectFollowers)
}

// IsFollowing handles GET /me/following/{id}: 204 when the caller follows the
// user, 404 otherwise.
func (h FollowHandler) IsFollowing(w http.ResponseWriter, r *http.Request, caller models.User) {
	ctx := r.Context()

	target, err := h.target(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	following, err := h.Follows.IsFollowing(ctx, caller.ID, target.ID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if !following {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "not following user"})
		return
	}
	respondNoContent(w)
}

// Follow handles POST /me/following/{id}.
func (h FollowHandler) Follow(w http.ResponseWriter, r *http.Request, caller models.User) {
	ctx := r.Context()

	target, err := h.target(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Follows.Follow(ctx, caller.ID, target.ID); err != nil {
		respondError(ctx, w, err)
		return
	}

	logging.FromContext(ctx).Info("user followed", "followerId", caller.ID, "followedId", target.ID)
	respondNoContent(w)
}

// Unfollow handles DELETE /me/following/{id}.
func (h FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request, caller models.User) {
	ctx := r.Context()

	target, err := h.target(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Follows.Unfollow(ctx, caller.ID, target.ID); err != nil {
		respondError(ctx, w, err)
		return
	}

	logging.FromContext(ctx).Info("user unfollowed", "followerId", caller.ID, "followedId", target.ID)
	respondNoContent(w)
}

type selectFunc func(ctx context.Context, userID int64, page pagination.Params) (pagination.Page[models.User], error)

func (h FollowHandler) listOf(w http.ResponseWriter, r *http.Request, sel selectFunc) {
	user, err := h.target(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	h.list(w, r, user.ID, sel)
}

func (h FollowHandler) list(w http.ResponseWriter, r *http.Request, userID int64, sel selectFunc) {
	ctx := r.Context()

	page, err := pagination.FromQuery(r.URL.Query(), h.MaxPageLimit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	result, err := sel(ctx, userID, page)
	if err != nil {
		respondError(ctx, w, fmt.Errorf("list follow edges of %d: %w", userID, err))
		return
	}
	respondJSON(ctx, w, http.StatusOK, newUserPage(result))
}

func (h FollowHandler) target(r *http.Request) (models.User, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return models.User{}, err
	}
	return findUser(r.Context(), h.Users, id)
}
