package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/blogapi/backend/internal/logging"
	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/pagination"
	"github.com/blogapi/backend/internal/repositories"
)

// PostHandler implements blog post endpoints.
type PostHandler struct {
	Posts        PostStore
	Users        UserStore
	MaxPageLimit int
}

type postRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// Create handles POST /posts.
func (h PostHandler) Create(w http.ResponseWriter, r *http.Request, caller models.User) {
	ctx := r.Context()

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	if req.Title == nil {
		respondError(ctx, w, invalid("title", "missing data for required field"))
		return
	}
	if req.Content == nil {
		respondError(ctx, w, invalid("content", "missing data for required field"))
		return
	}
	if err := validateTitle(*req.Title); err != nil {
		respondError(ctx, w, err)
		return
	}

	post, err := h.Posts.Create(ctx, models.Post{Title: *req.Title, Content: *req.Content, AuthorID: caller.ID})
	if err != nil {
		respondError(ctx, w, fmt.Errorf("create post: %w", err))
		return
	}

	logging.FromContext(ctx).Info("post created", "postId", post.ID)
	respondJSON(ctx, w, http.StatusCreated, newPostResponse(post))
}

// List handles GET /posts.
func (h PostHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := pagination.FromQuery(r.URL.Query(), h.MaxPageLimit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	posts, err := h.Posts.List(ctx, page)
	if err != nil {
		respondError(ctx, w, fmt.Errorf("list posts: %w", err))
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPostPage(pagination.NewPage(posts, page)))
}

// ListByAuthor handles GET /users/{id}/posts.
func (h PostHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	page, err := pagination.FromQuery(r.URL.Query(), h.MaxPageLimit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if _, err := findUser(ctx, h.Users, id); err != nil {
		respondError(ctx, w, err)
		return
	}

	posts, err := h.Posts.ListByAuthor(ctx, id, page)
	if err != nil {
		respondError(ctx, w, fmt.Errorf("list posts of %d: %w", id, err))
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPostPage(pagination.NewPage(posts, page)))
}

// Get handles GET /posts/{id}.
func (h PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	post, err := h.load(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, newPostResponse(post))
}

// Update handles PUT /posts/{id}. Only the author may edit a post.
func (h PostHandler) Update(w http.ResponseWriter, r *http.Request, caller models.User) {
	ctx := r.Context()

	post, err := h.load(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if post.AuthorID != caller.ID {
		respondError(ctx, w, errNotYourPost)
		return
	}

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			respondError(ctx, w, err)
			return
		}
	}

	if (models.PostPatch{Title: req.Title, Content: req.Content}).Apply(&post) {
		if err := h.Posts.Update(ctx, post); err != nil {
			respondError(ctx, w, fmt.Errorf("update post %d: %w", post.ID, err))
			return
		}
	}

	respondJSON(ctx, w, http.StatusOK, newPostResponse(post))
}

// Delete handles DELETE /posts/{id}. Only the author may delete a post.
func (h PostHandler) Delete(w http.ResponseWriter, r *http.Request, caller models.User) {
	ctx := r.Context()

	post, err := h.load(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if post.AuthorID != caller.ID {
		respondError(ctx, w, errNotYourPost)
		return
	}

	if err := h.Posts.Delete(ctx, post.ID); err != nil {
		respondError(ctx, w, fmt.Errorf("delete post %d: %w", post.ID, err))
		return
	}
	respondNoContent(w)
}

func (h PostHandler) load(r *http.Request) (models.Post, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return models.Post{}, err
	}

	post, err := h.Posts.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Post{}, errPostNotFound
		}
		return models.Post{}, fmt.Errorf("find post %d: %w", id, err)
	}
	return post, nil
}
