package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/blogapi/backend/internal/auth"
	"github.com/blogapi/backend/internal/config"
	"github.com/blogapi/backend/internal/db"
	"github.com/blogapi/backend/internal/handlers"
	"github.com/blogapi/backend/internal/middleware"
	"github.com/blogapi/backend/internal/repositories"
	"github.com/blogapi/backend/internal/social"
	"github.com/blogapi/backend/internal/storage"
)

// stores groups the persistence layer chosen by configuration.
type stores struct {
	users   repositories.UserRepository
	posts   repositories.PostRepository
	follows repositories.FollowRepository
	tokens  auth.TokenStore
	health  func(ctx context.Context) error
	close   func()
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.UsesMemoryStore() {
		database := repositories.NewMemoryDatabase()
		return stores{
			users:   database.Users(),
			posts:   database.Posts(),
			follows: database.Follows(),
			tokens:  database.Tokens(),
			health:  func(context.Context) error { return nil },
			close:   func() {},
		}, nil
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, err
	}
	return stores{
		users:   repositories.NewPostgresUserRepository(pool),
		posts:   repositories.NewPostgresPostRepository(pool),
		follows: repositories.NewPostgresFollowRepository(pool),
		tokens:  repositories.NewPostgresTokenStore(pool),
		health:  pool.Ping,
		close:   pool.Close,
	}, nil
}

func credentials(cfg config.Config) auth.Credentials {
	return auth.Credentials{MinEntropy: cfg.MinPasswordEntropy}
}

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, s stores, cfg config.Config) (handlers.Dependencies, error) {
	deps := handlers.Dependencies{
		Users:     s.users,
		Posts:     s.posts,
		Tokens:    auth.NewManager(cfg.AccessTokenTTL, cfg.RefreshTokenTTL, s.tokens, s.users),
		Follows:   social.NewGraph(s.follows),
		Passwords: credentials(cfg),
		Limiter:   middleware.NewKeyedRateLimiter(cfg.RateLimit),
		Health:    s.health,
		Delivery: handlers.TokenDelivery{
			InBody:   cfg.RefreshTokenInBody,
			InCookie: cfg.RefreshTokenInCookie,
			CORS:     cfg.UseCORS,
			Debug:    cfg.Debug,
		},
		MaxPageLimit: cfg.PaginationMaxLimit,
	}

	if cfg.ObjectStore.Enabled() {
		avatars, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, err
		}
		deps.Avatars = avatars
	}

	return deps, nil
}

// newHandler applies the middleware chain around the router. CORS sits inside
// the request logger so rejected preflights are still logged.
func newHandler(deps handlers.Dependencies, cfg config.Config, logger *slog.Logger) http.Handler {
	var h http.Handler = handlers.NewRouter(deps)
	if cfg.UseCORS {
		h = middleware.CORS(cfg.CORSOrigins, cfg.Debug)(h)
	}
	return middleware.RequestLogger(logger)(h)
}
