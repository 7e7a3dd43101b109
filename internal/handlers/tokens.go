package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/blogapi/backend/internal/logging"
	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/repositories"
)

const refreshCookieName = "refresh_token"

// TokenDelivery controls where a freshly issued refresh token is returned.
type TokenDelivery struct {
	InBody   bool
	InCookie bool
	// CORS relaxes the cookie SameSite policy so cross-origin clients can refresh.
	CORS  bool
	Debug bool
}

// TokenHandler implements the token issue, refresh and revoke endpoints.
type TokenHandler struct {
	Users     UserStore
	Tokens    TokenManager
	Passwords PasswordHasher
	Limiter   RateLimiter
	Delivery  TokenDelivery
}

type tokenRequest struct {
	AccessToken  *string `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
}

func (req tokenRequest) validate() error {
	if req.AccessToken == nil {
		return invalid("access_token", "missing data for required field")
	}
	return errors.Join(
		validateToken("access_token", *req.AccessToken),
		validateToken("refresh_token", req.RefreshToken),
	)
}

// Create handles POST /tokens with HTTP basic credentials. Stale token rows are
// swept before the new pair is issued.
func (h TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "tokens") {
		logger.Warn("token issue rate limited", "ip", clientIP(r))
		respondError(ctx, w, errRateLimited)
		return
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		h.basicChallenge(w, r)
		return
	}

	user, err := h.Users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, fmt.Errorf("find user: %w", err))
			return
		}
		logger.Warn("token issue for unknown user")
		h.basicChallenge(w, r)
		return
	}
	if !h.Passwords.VerifyPassword(user, password) {
		logger.Warn("token issue password mismatch", "userId", user.ID)
		h.basicChallenge(w, r)
		return
	}

	if _, err := h.Tokens.Sweep(ctx); err != nil {
		logger.Warn("token sweep failed", "error", err)
	}

	token, err := h.Tokens.Issue(ctx, user)
	if err != nil {
		respondError(ctx, w, fmt.Errorf("issue token: %w", err))
		return
	}

	h.respondToken(w, r, token)
}

// Refresh handles PUT /tokens. The refresh token comes from the body or, failing
// that, the refresh cookie.
func (h TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(ctx, w, firstValidationError(err))
		return
	}

	refresh := strings.TrimSpace(req.RefreshToken)
	if refresh == "" {
		if cookie, err := r.Cookie(refreshCookieName); err == nil {
			refresh = cookie.Value
		}
	}
	if refresh == "" {
		respondError(ctx, w, invalid("refresh_token", "missing refresh token"))
		return
	}

	current, err := h.Tokens.VerifyRefresh(ctx, refresh, *req.AccessToken)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	next, err := h.Tokens.Rotate(ctx, current)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.respondToken(w, r, next)
}

// Revoke handles DELETE /tokens.
func (h TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(ctx, w, firstValidationError(err))
		return
	}

	if err := h.Tokens.RevokeAccess(ctx, *req.AccessToken); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondNoContent(w)
}

func (h TokenHandler) respondToken(w http.ResponseWriter, r *http.Request, token models.Token) {
	if h.Delivery.InCookie {
		http.SetCookie(w, h.refreshCookie(token.RefreshToken))
	}

	resp := tokenResponse{AccessToken: token.AccessToken}
	if h.Delivery.InBody {
		refresh := token.RefreshToken
		resp.RefreshToken = &refresh
	}
	respondJSON(r.Context(), w, http.StatusCreated, resp)
}

func (h TokenHandler) refreshCookie(value string) *http.Cookie {
	sameSite := http.SameSiteStrictMode
	if h.Delivery.CORS {
		sameSite = http.SameSiteNoneMode
		if h.Delivery.Debug {
			sameSite = http.SameSiteLaxMode
		}
	}
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/tokens",
		HttpOnly: true,
		Secure:   !h.Delivery.Debug,
		SameSite: sameSite,
	}
}

func (h TokenHandler) basicChallenge(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Basic realm="Authentication Required"`)
	respondError(r.Context(), w, errUnauthorized)
}
