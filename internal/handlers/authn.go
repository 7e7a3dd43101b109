package handlers

import (
	"net/http"
	"strings"

	"github.com/blogapi/backend/internal/logging"
	"github.com/blogapi/backend/internal/models"
)

// CallerHandlerFunc is an HTTP handler that receives the authenticated caller
// explicitly instead of reading it from request-global state.
type CallerHandlerFunc func(w http.ResponseWriter, r *http.Request, caller models.User)

// Authenticator resolves bearer access tokens to users.
type Authenticator struct {
	Tokens TokenManager
}

// Require rejects requests without a live bearer token and passes the resolved
// caller to next.
func (a Authenticator) Require(next CallerHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="Authentication Required"`)
			respondError(ctx, w, errUnauthorized)
			return
		}

		caller, err := a.Tokens.VerifyAccess(ctx, token)
		if err != nil {
			if statusFor(err) == http.StatusUnauthorized {
				w.Header().Set("WWW-Authenticate", `Bearer realm="Authentication Required"`)
			}
			respondError(ctx, w, err)
			return
		}

		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", caller.ID))
		next(w, r.WithContext(ctx), caller)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
