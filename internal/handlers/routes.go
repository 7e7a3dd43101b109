package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users        UserStore
	Posts        PostStore
	Tokens       TokenManager
	Follows      FollowGraph
	Passwords    PasswordHasher
	Avatars      AvatarStorage
	Limiter      RateLimiter
	Health       func(ctx context.Context) error
	Delivery     TokenDelivery
	MaxPageLimit int
}

// NewRouter wires every endpoint into a gorilla/mux router. Numeric route
// variables are matched before the username route so /users/1 is an id lookup.
func NewRouter(deps Dependencies) *mux.Router {
	authn := Authenticator{Tokens: deps.Tokens}
	health := HealthHandler{Check: deps.Health}
	users := UserHandler{
		Users:        deps.Users,
		Passwords:    deps.Passwords,
		Avatars:      deps.Avatars,
		Limiter:      deps.Limiter,
		MaxPageLimit: deps.MaxPageLimit,
	}
	tokens := TokenHandler{
		Users:     deps.Users,
		Tokens:    deps.Tokens,
		Passwords: deps.Passwords,
		Limiter:   deps.Limiter,
		Delivery:  deps.Delivery,
	}
	posts := PostHandler{Posts: deps.Posts, Users: deps.Users, MaxPageLimit: deps.MaxPageLimit}
	follows := FollowHandler{Users: deps.Users, Follows: deps.Follows, MaxPageLimit: deps.MaxPageLimit}

	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	r.NotFoundHandler = http.HandlerFunc(notFound)

	r.HandleFunc("/healthz", health.Handle).Methods(http.MethodGet)

	r.HandleFunc("/tokens", tokens.Create).Methods(http.MethodPost)
	r.HandleFunc("/tokens", tokens.Refresh).Methods(http.MethodPut)
	r.HandleFunc("/tokens", tokens.Revoke).Methods(http.MethodDelete)

	r.HandleFunc("/users", users.Create).Methods(http.MethodPost)
	r.HandleFunc("/users", users.List).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}", users.Get).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}/posts", posts.ListByAuthor).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}/following", follows.Following).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}/followers", follows.Followers).Methods(http.MethodGet)
	r.HandleFunc("/users/{username}", users.GetByUsername).Methods(http.MethodGet)

	r.HandleFunc("/me", authn.Require(users.Me)).Methods(http.MethodGet)
	r.HandleFunc("/me", authn.Require(users.UpdateMe)).Methods(http.MethodPut)
	r.HandleFunc("/me", authn.Require(users.DeleteMe)).Methods(http.MethodDelete)
	r.HandleFunc("/me/avatar", authn.Require(users.UploadAvatar)).Methods(http.MethodPut)
	r.HandleFunc("/me/following", authn.Require(follows.MyFollowing)).Methods(http.MethodGet)
	r.HandleFunc("/me/followers", authn.Require(follows.MyFollowers)).Methods(http.MethodGet)
	r.HandleFunc("/me/following/{id:[0-9]+}", authn.Require(follows.IsFollowing)).Methods(http.MethodGet)
	r.HandleFunc("/me/following/{id:[0-9]+}", authn.Require(follows.Follow)).Methods(http.MethodPost)
	r.HandleFunc("/me/following/{id:[0-9]+}", authn.Require(follows.Unfollow)).Methods(http.MethodDelete)

	r.HandleFunc("/posts", authn.Require(posts.Create)).Methods(http.MethodPost)
	r.HandleFunc("/posts", posts.List).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id:[0-9]+}", posts.Get).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id:[0-9]+}", authn.Require(posts.Update)).Methods(http.MethodPut)
	r.HandleFunc("/posts/{id:[0-9]+}", authn.Require(posts.Delete)).Methods(http.MethodDelete)

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusNotFound, map[string]string{"error": "not found"})
}
