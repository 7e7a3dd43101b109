package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/blogapi/backend/internal/auth"
	"github.com/blogapi/backend/internal/logging"
	"github.com/blogapi/backend/internal/pagination"
	"github.com/blogapi/backend/internal/repositories"
	"github.com/blogapi/backend/internal/social"
)

var (
	errUnauthorized   = errors.New("authentication required")
	errForbidden      = errors.New("forbidden")
	errRateLimited    = errors.New("too many requests, please try again later")
	errAvatarDisabled = errors.New("avatar uploads are not configured")
	errUserNotFound   = fmt.Errorf("user not found: %w", repositories.ErrNotFound)
	errPostNotFound   = fmt.Errorf("post not found: %w", repositories.ErrNotFound)
	errNotYourPost    = fmt.Errorf("this is not your post: %w", errForbidden)
	errWrongPassword  = fmt.Errorf("old_password does not match: %w", errForbidden)
	errAlreadyInUse   = fmt.Errorf("username or email already in use: %w", repositories.ErrConflict)
)

// statusFor maps domain outcomes onto HTTP statuses. Anything unrecognised is a
// server-side failure.
func statusFor(err error) int {
	var (
		invalid *validationError
		weak    *auth.WeakPasswordError
	)
	switch {
	case errors.As(err, &invalid),
		errors.As(err, &weak),
		errors.Is(err, auth.ErrEmptyPassword),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, pagination.ErrInvalidParams),
		errors.Is(err, social.ErrSelfFollow),
		errors.Is(err, repositories.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, errUnauthorized),
		errors.Is(err, auth.ErrTokenNotFound),
		errors.Is(err, auth.ErrAccessTokenExpired),
		errors.Is(err, auth.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, social.ErrAlreadyFollowing),
		errors.Is(err, social.ErrNotFollowing):
		return http.StatusConflict
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errAvatarDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Messages of server-side failures
// are replaced so internal details never reach clients.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		logging.FromContext(ctx).Error("request failed", "error", err)
		message = "internal server error"
	case status == http.StatusUnauthorized:
		message = "unauthorized"
	}
	respondJSON(ctx, w, status, map[string]string{"error": message})
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		logging.FromContext(ctx).Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON reads a JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &validationError{Field: "body", Message: "invalid request body"}
	}
	return nil
}

// pathID parses a numeric route variable. Routes constrain the variable to digits,
// so a failure here only happens on overflow.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &validationError{Field: name, Message: "must be an integer"}
	}
	return id, nil
}
