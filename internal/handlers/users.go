package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/blogapi/backend/internal/logging"
	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/pagination"
	"github.com/blogapi/backend/internal/repositories"
	"github.com/blogapi/backend/internal/storage"
)

// UserHandler implements account endpoints.
type UserHandler struct {
	Users        UserStore
	Passwords    PasswordHasher
	Avatars      AvatarStorage
	Limiter      RateLimiter
	MaxPageLimit int
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	AboutMe  string `json:"about_me"`
}

type updateUserRequest struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	AboutMe     *string `json:"about_me"`
	Password    *string `json:"password"`
	OldPassword *string `json:"old_password"`
}

// Create handles POST /users.
func (h UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "signup") {
		logger.Warn("signup rate limited", "ip", clientIP(r))
		respondError(ctx, w, errRateLimited)
		return
	}

	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := errors.Join(
		validateUsername(req.Username),
		validateEmail(req.Email),
		validateAboutMe(req.AboutMe),
	); err != nil {
		respondError(ctx, w, firstValidationError(err))
		return
	}

	user := models.User{Username: req.Username, Email: req.Email, AboutMe: req.AboutMe}
	if err := h.Passwords.SetPassword(&user, req.Password); err != nil {
		respondError(ctx, w, err)
		return
	}

	created, err := h.Users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			err = errAlreadyInUse
		}
		respondError(ctx, w, err)
		return
	}

	logger.Info("user created", "userId", created.ID)
	respondJSON(ctx, w, http.StatusCreated, newUserResponse(created))
}

// List handles GET /users.
func (h UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := pagination.FromQuery(r.URL.Query(), h.MaxPageLimit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	users, err := h.Users.List(ctx, page)
	if err != nil {
		respondError(ctx, w, fmt.Errorf("list users: %w", err))
		return
	}

	respondJSON(ctx, w, http.StatusOK, newUserPage(pagination.NewPage(users, page)))
}

// Get handles GET /users/{id}.
func (h UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := findUser(ctx, h.Users, id)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, newUserResponse(user))
}

// GetByUsername handles GET /users/{username}.
func (h UserHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.Users.FindByUsername(ctx, mux.Vars(r)["username"])
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			err = errUserNotFound
		}
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, newUserResponse(user))
}

// Me handles GET /me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request, caller models.User) {
	respondJSON(r.Context(), w, http.StatusOK, newUserResponse(caller))
}

// UpdateMe handles PUT /me. Changing the password requires the current one.
func (h UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request, caller models.User) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		req.Username = &trimmed
	}
	if req.Email != nil {
		normalized := strings.TrimSpace(strings.ToLower(*req.Email))
		req.Email = &normalized
	}

	var errs []error
	if req.Username != nil {
		errs = append(errs, validateUsername(*req.Username))
	}
	if req.Email != nil {
		errs = append(errs, validateEmail(*req.Email))
	}
	if req.AboutMe != nil {
		errs = append(errs, validateAboutMe(*req.AboutMe))
	}
	if err := errors.Join(errs...); err != nil {
		respondError(ctx, w, firstValidationError(err))
		return
	}

	if req.Password != nil {
		if req.OldPassword == nil || !h.Passwords.VerifyPassword(caller, *req.OldPassword) {
			logger.Warn("password change rejected", "userId", caller.ID)
			respondError(ctx, w, errWrongPassword)
			return
		}
	}

	updated := caller
	models.UserPatch{Username: req.Username, Email: req.Email, AboutMe: req.AboutMe}.Apply(&updated)
	if req.Password != nil {
		if err := h.Passwords.SetPassword(&updated, *req.Password); err != nil {
			respondError(ctx, w, err)
			return
		}
	}

	if err := h.Users.Update(ctx, updated); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			err = errAlreadyInUse
		}
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newUserResponse(updated))
}

// DeleteMe handles DELETE /me. Tokens, posts and follow edges go with the account.
func (h UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request, caller models.User) {
	ctx := r.Context()

	if err := h.Users.Delete(ctx, caller.ID); err != nil {
		respondError(ctx, w, fmt.Errorf("delete user %d: %w", caller.ID, err))
		return
	}

	logging.FromContext(ctx).Info("user deleted", "userId", caller.ID)
	respondNoContent(w)
}

// UploadAvatar handles PUT /me/avatar. The request body is the raw image.
func (h UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request, caller models.User) {
	ctx := r.Context()

	if h.Avatars == nil {
		respondError(ctx, w, errAvatarDisabled)
		return
	}

	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		contentType = ""
	}
	if _, ok := storage.AllowedAvatarTypes[contentType]; !ok {
		respondError(ctx, w, invalid("Content-Type", "must be one of image/png, image/jpeg, image/gif, image/webp"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, storage.MaxAvatarBytes()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondJSON(ctx, w, http.StatusRequestEntityTooLarge, map[string]string{"error": "avatar is too large"})
			return
		}
		respondError(ctx, w, invalid("body", "unreadable image"))
		return
	}
	if len(body) == 0 {
		respondError(ctx, w, invalid("body", "image is empty"))
		return
	}

	url, err := h.Avatars.Save(ctx, storage.AvatarKey(caller.ID, contentType), contentType, bytes.NewReader(body))
	if err != nil {
		respondError(ctx, w, fmt.Errorf("store avatar: %w", err))
		return
	}

	updated := caller
	updated.AvatarURL = url
	if err := h.Users.Update(ctx, updated); err != nil {
		respondError(ctx, w, fmt.Errorf("save avatar url: %w", err))
		return
	}

	respondJSON(ctx, w, http.StatusOK, newUserResponse(updated))
}

// firstValidationError unwraps a joined error down to the first field failure.
func firstValidationError(err error) error {
	var ve *validationError
	if errors.As(err, &ve) {
		return ve
	}
	return err
}

// findUser loads a user, translating a miss into a user-facing not found error.
func findUser(ctx context.Context, users UserStore, id int64) (models.User, error) {
	user, err := users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, errUserNotFound
		}
		return models.User{}, fmt.Errorf("find user %d: %w", id, err)
	}
	return user, nil
}
