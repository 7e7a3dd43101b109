package social_test

import (
	"context"
	"errors"
	"testing"

	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/pagination"
	"github.com/blogapi/backend/internal/repositories"
	"github.com/blogapi/backend/internal/social"
)

func seedUsers(t *testing.T, database *repositories.MemoryDatabase, names ...string) []models.User {
	t.Helper()
	users := make([]models.User, 0, len(names))
	for _, name := range names {
		u, err := database.Users().Create(context.Background(), models.User{Username: name, Email: name + "@example.com"})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		users = append(users, u)
	}
	return users
}

func TestGraphFollowAndUnfollow(t *testing.T) {
	ctx := context.Background()
	database := repositories.NewMemoryDatabase()
	users := seedUsers(t, database, "alice", "bob")
	alice, bob := users[0], users[1]
	graph := social.NewGraph(database.Follows())

	if err := graph.Follow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("Follow returned error: %v", err)
	}

	following, err := graph.IsFollowing(ctx, alice.ID, bob.ID)
	if err != nil || !following {
		t.Fatalf("expected alice to follow bob, got %v (%v)", following, err)
	}
	followedBy, err := graph.IsFollowedBy(ctx, bob.ID, alice.ID)
	if err != nil || !followedBy {
		t.Fatalf("expected bob to be followed by alice, got %v (%v)", followedBy, err)
	}
	reverse, _ := graph.IsFollowing(ctx, bob.ID, alice.ID)
	if reverse {
		t.Fatal("expected the relation to be directed")
	}

	if err := graph.Follow(ctx, alice.ID, bob.ID); !errors.Is(err, social.ErrAlreadyFollowing) {
		t.Fatalf("expected ErrAlreadyFollowing, got %v", err)
	}

	if err := graph.Unfollow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("Unfollow returned error: %v", err)
	}
	if err := graph.Unfollow(ctx, alice.ID, bob.ID); !errors.Is(err, social.ErrNotFollowing) {
		t.Fatalf("expected ErrNotFollowing, got %v", err)
	}
}

func TestGraphRejectsSelfFollow(t *testing.T) {
	database := repositories.NewMemoryDatabase()
	alice := seedUsers(t, database, "alice")[0]
	graph := social.NewGraph(database.Follows())

	if err := graph.Follow(context.Background(), alice.ID, alice.ID); !errors.Is(err, social.ErrSelfFollow) {
		t.Fatalf("expected ErrSelfFollow, got %v", err)
	}
}

type racingStore struct {
	social.Store
}

// Exists always answers false so the insert path sees the duplicate.
func (racingStore) Exists(context.Context, int64, int64) (bool, error) { return false, nil }

func TestGraphFollowMapsInsertConflict(t *testing.T) {
	ctx := context.Background()
	database := repositories.NewMemoryDatabase()
	users := seedUsers(t, database, "alice", "bob")
	if err := database.Follows().Insert(ctx, users[0].ID, users[1].ID); err != nil {
		t.Fatalf("insert edge: %v", err)
	}

	graph := social.NewGraph(racingStore{Store: database.Follows()})
	if err := graph.Follow(ctx, users[0].ID, users[1].ID); !errors.Is(err, social.ErrAlreadyFollowing) {
		t.Fatalf("expected ErrAlreadyFollowing, got %v", err)
	}
}

func TestGraphSelectFollowersPaginates(t *testing.T) {
	ctx := context.Background()
	database := repositories.NewMemoryDatabase()
	users := seedUsers(t, database, "target", "a", "b", "c")
	graph := social.NewGraph(database.Follows())

	for _, u := range users[1:] {
		if err := graph.Follow(ctx, u.ID, users[0].ID); err != nil {
			t.Fatalf("Follow returned error: %v", err)
		}
	}

	page, err := graph.SelectFollowers(ctx, users[0].ID, pagination.Params{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("SelectFollowers returned error: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].Username != "b" || page.Items[1].Username != "c" {
		t.Fatalf("unexpected followers page: %+v", page.Items)
	}
	if page.Pagination != (pagination.Params{Limit: 2, Offset: 1}) {
		t.Fatalf("unexpected pagination echo: %+v", page.Pagination)
	}

	empty, err := graph.SelectFollowing(ctx, users[0].ID, pagination.Default())
	if err != nil {
		t.Fatalf("SelectFollowing returned error: %v", err)
	}
	if empty.Items == nil || len(empty.Items) != 0 {
		t.Fatalf("expected empty non-nil page, got %#v", empty.Items)
	}
}
