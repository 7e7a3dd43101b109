package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blogapi/backend/internal/auth"
	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/pagination"
)

func TestMemoryUserRepository_UniqueAndOrdered(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryDatabase().Users()

	for _, name := range []string{"carol", "alice", "bob"} {
		if _, err := users.Create(ctx, models.User{Username: name, Email: name + "@example.com"}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	if _, err := users.Create(ctx, models.User{Username: "alice", Email: "x@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}
	if _, err := users.Create(ctx, models.User{Username: "x", Email: "bob@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	listed, err := users.List(ctx, pagination.Params{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(listed) != 2 || listed[0].Username != "alice" || listed[1].Username != "bob" {
		t.Fatalf("unexpected window: %+v", listed)
	}
}

func TestMemoryUserRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	database := NewMemoryDatabase()
	users := database.Users()

	alice, _ := users.Create(ctx, models.User{Username: "alice", Email: "alice@example.com"})
	bob, _ := users.Create(ctx, models.User{Username: "bob", Email: "bob@example.com"})

	post, err := database.Posts().Create(ctx, models.Post{Title: "t", Content: "c", AuthorID: alice.ID})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	token, err := database.Tokens().Create(ctx, models.Token{AccessToken: "a", RefreshToken: "r", UserID: alice.ID})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if err := database.Follows().Insert(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("insert edge: %v", err)
	}

	if err := users.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	if _, err := database.Posts().FindByID(ctx, post.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected post to cascade, got %v", err)
	}
	if _, err := database.Tokens().FindByAccessToken(ctx, token.AccessToken); !errors.Is(err, auth.ErrTokenNotFound) {
		t.Fatalf("expected token to cascade, got %v", err)
	}
	following, _ := database.Follows().ListFollowing(ctx, bob.ID, pagination.Default())
	if len(following) != 0 {
		t.Fatalf("expected edge to cascade, got %+v", following)
	}
}

func TestMemoryTokenStore_FindReturnsNewestRow(t *testing.T) {
	ctx := context.Background()
	database := NewMemoryDatabase()
	user, _ := database.Users().Create(ctx, models.User{Username: "u", Email: "u@example.com"})
	store := database.Tokens()

	now := time.Now().UTC()
	first, _ := store.Create(ctx, models.Token{AccessToken: "same", RefreshToken: "r1", AccessExpiration: now, UserID: user.ID})
	second, _ := store.Create(ctx, models.Token{AccessToken: "same", RefreshToken: "r2", AccessExpiration: now.Add(time.Hour), UserID: user.ID})

	found, err := store.FindByAccessToken(ctx, "same")
	if err != nil {
		t.Fatalf("find token: %v", err)
	}
	if found.ID != second.ID || found.ID == first.ID {
		t.Fatalf("expected newest row %d, got %d", second.ID, found.ID)
	}

	if _, err := store.Rotate(ctx, 9999, now, models.Token{UserID: user.ID}); !errors.Is(err, auth.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound rotating unknown row, got %v", err)
	}
}

func TestMemoryTokenStore_RotateOnlyOnce(t *testing.T) {
	ctx := context.Background()
	database := NewMemoryDatabase()
	user, _ := database.Users().Create(ctx, models.User{Username: "u", Email: "u@example.com"})
	store := database.Tokens()

	now := time.Now().UTC()
	current, err := store.Create(ctx, models.Token{
		AccessToken:       "a1",
		AccessExpiration:  now.Add(time.Minute),
		RefreshToken:      "r1",
		RefreshExpiration: now.Add(time.Hour),
		UserID:            user.ID,
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	next := models.Token{AccessToken: "a2", RefreshToken: "r2", RefreshExpiration: now.Add(time.Hour), UserID: user.ID}
	if _, err := store.Rotate(ctx, current.ID, now, next); err != nil {
		t.Fatalf("rotate token: %v", err)
	}

	again := models.Token{AccessToken: "a3", RefreshToken: "r3", RefreshExpiration: now.Add(time.Hour), UserID: user.ID}
	if _, err := store.Rotate(ctx, current.ID, now, again); !errors.Is(err, auth.ErrTokenNotFound) {
		t.Fatalf("expected second rotation of the same row to fail, got %v", err)
	}
	if _, err := store.FindByRefreshToken(ctx, "r3"); !errors.Is(err, auth.ErrTokenNotFound) {
		t.Fatalf("expected no token from the rejected rotation, got %v", err)
	}
}

func TestMemoryFollowRepository_Edges(t *testing.T) {
	ctx := context.Background()
	database := NewMemoryDatabase()
	alice, _ := database.Users().Create(ctx, models.User{Username: "alice", Email: "alice@example.com"})
	follows := database.Follows()

	if err := follows.Insert(ctx, alice.ID, alice.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for self edge, got %v", err)
	}
	if err := follows.Insert(ctx, alice.ID, alice.ID+1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
	if err := follows.Delete(ctx, alice.ID, alice.ID+1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting missing edge, got %v", err)
	}
}
