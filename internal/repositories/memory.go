package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/blogapi/backend/internal/auth"
	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/pagination"
)

type followEdge struct {
	follower int64
	followed int64
}

// MemoryDatabase keeps users, posts, tokens and follow edges in process memory.
// It mirrors the relational constraints of the SQL schema, including cascading
// deletes, and backs local development and tests.
type MemoryDatabase struct {
	mu sync.RWMutex

	nextUserID  int64
	nextPostID  int64
	nextTokenID int64

	users   map[int64]models.User
	posts   map[int64]models.Post
	tokens  map[int64]models.Token
	follows map[followEdge]struct{}
}

// NewMemoryDatabase returns an empty in-memory database.
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		users:   make(map[int64]models.User),
		posts:   make(map[int64]models.Post),
		tokens:  make(map[int64]models.Token),
		follows: make(map[followEdge]struct{}),
	}
}

// Users returns the user repository view of the database.
func (m *MemoryDatabase) Users() *MemoryUserRepository { return &MemoryUserRepository{db: m} }

// Posts returns the post repository view of the database.
func (m *MemoryDatabase) Posts() *MemoryPostRepository { return &MemoryPostRepository{db: m} }

// Tokens returns the token store view of the database.
func (m *MemoryDatabase) Tokens() *MemoryTokenStore { return &MemoryTokenStore{db: m} }

// Follows returns the follow repository view of the database.
func (m *MemoryDatabase) Follows() *MemoryFollowRepository { return &MemoryFollowRepository{db: m} }

func (m *MemoryDatabase) usernameTaken(username, email string, except int64) bool {
	for id, u := range m.users {
		if id == except {
			continue
		}
		if u.Username == username || u.Email == email {
			return true
		}
	}
	return false
}

func sortedUsers(users map[int64]models.User, keep func(models.User) bool) []models.User {
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if keep == nil || keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MemoryUserRepository implements UserRepository over a MemoryDatabase.
type MemoryUserRepository struct {
	db *MemoryDatabase
}

// Create inserts user, enforcing unique usernames and emails.
func (r *MemoryUserRepository) Create(_ context.Context, user models.User) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.db.usernameTaken(user.Username, user.Email, 0) {
		return models.User{}, ErrConflict
	}

	now := time.Now().UTC()
	if user.MemberSince.IsZero() {
		user.MemberSince = now
	}
	if user.LastSeen.IsZero() {
		user.LastSeen = now
	}
	r.db.nextUserID++
	user.ID = r.db.nextUserID
	r.db.users[user.ID] = user
	return user, nil
}

// FindByID returns the user with id.
func (r *MemoryUserRepository) FindByID(_ context.Context, id int64) (models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	user, ok := r.db.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

// FindByUsername returns the user with username.
func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username })
}

// FindByEmail returns the user with email.
func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) find(match func(models.User) bool) (models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

// List returns a window of users ordered by id.
func (r *MemoryUserRepository) List(_ context.Context, page pagination.Params) ([]models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return pagination.Window(sortedUsers(r.db.users, nil), page), nil
}

// Update overwrites the stored user.
func (r *MemoryUserRepository) Update(_ context.Context, user models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if r.db.usernameTaken(user.Username, user.Email, user.ID) {
		return ErrConflict
	}
	user.LastSeen = existing.LastSeen
	user.MemberSince = existing.MemberSince
	r.db.users[user.ID] = user
	return nil
}

// Delete removes a user together with its posts, tokens and follow edges.
func (r *MemoryUserRepository) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.db.users, id)
	for pid, p := range r.db.posts {
		if p.AuthorID == id {
			delete(r.db.posts, pid)
		}
	}
	for tid, t := range r.db.tokens {
		if t.UserID == id {
			delete(r.db.tokens, tid)
		}
	}
	for edge := range r.db.follows {
		if edge.follower == id || edge.followed == id {
			delete(r.db.follows, edge)
		}
	}
	return nil
}

// Touch sets last_seen and returns the updated user.
func (r *MemoryUserRepository) Touch(_ context.Context, id int64, at time.Time) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	user.LastSeen = at.UTC()
	r.db.users[id] = user
	return user, nil
}

// MemoryPostRepository implements PostRepository over a MemoryDatabase.
type MemoryPostRepository struct {
	db *MemoryDatabase
}

func (r *MemoryPostRepository) withAuthor(post models.Post) models.Post {
	post.Author = r.db.users[post.AuthorID]
	return post
}

// Create inserts post for an existing author.
func (r *MemoryPostRepository) Create(_ context.Context, post models.Post) (models.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[post.AuthorID]; !ok {
		return models.Post{}, ErrNotFound
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	r.db.nextPostID++
	post.ID = r.db.nextPostID
	post.Author = models.User{}
	r.db.posts[post.ID] = post
	return r.withAuthor(post), nil
}

// FindByID returns the post with id and its author.
func (r *MemoryPostRepository) FindByID(_ context.Context, id int64) (models.Post, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	post, ok := r.db.posts[id]
	if !ok {
		return models.Post{}, ErrNotFound
	}
	return r.withAuthor(post), nil
}

// List returns a window of posts ordered by id.
func (r *MemoryPostRepository) List(_ context.Context, page pagination.Params) ([]models.Post, error) {
	return r.list(page, func(models.Post) bool { return true }), nil
}

// ListByAuthor returns a window of the posts written by authorID.
func (r *MemoryPostRepository) ListByAuthor(_ context.Context, authorID int64, page pagination.Params) ([]models.Post, error) {
	return r.list(page, func(p models.Post) bool { return p.AuthorID == authorID }), nil
}

func (r *MemoryPostRepository) list(page pagination.Params, keep func(models.Post) bool) []models.Post {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	posts := make([]models.Post, 0, len(r.db.posts))
	for _, p := range r.db.posts {
		if keep(p) {
			posts = append(posts, r.withAuthor(p))
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return pagination.Window(posts, page)
}

// Update overwrites the title and content of a post.
func (r *MemoryPostRepository) Update(_ context.Context, post models.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.posts[post.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = post.Title
	existing.Content = post.Content
	r.db.posts[post.ID] = existing
	return nil
}

// Delete removes a post.
func (r *MemoryPostRepository) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.posts[id]; !ok {
		return ErrNotFound
	}
	delete(r.db.posts, id)
	return nil
}

// MemoryTokenStore implements auth.TokenStore over a MemoryDatabase.
type MemoryTokenStore struct {
	db *MemoryDatabase
}

func (s *MemoryTokenStore) insert(token models.Token) (models.Token, error) {
	if _, ok := s.db.users[token.UserID]; !ok {
		return models.Token{}, ErrNotFound
	}
	s.db.nextTokenID++
	token.ID = s.db.nextTokenID
	s.db.tokens[token.ID] = token
	return token, nil
}

// Create persists a new token pair.
func (s *MemoryTokenStore) Create(_ context.Context, token models.Token) (models.Token, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	return s.insert(token)
}

// FindByAccessToken returns the newest row carrying accessToken.
func (s *MemoryTokenStore) FindByAccessToken(_ context.Context, accessToken string) (models.Token, error) {
	return s.latest(func(t models.Token) bool { return t.AccessToken == accessToken })
}

// FindByRefreshToken returns the newest row carrying refreshToken.
func (s *MemoryTokenStore) FindByRefreshToken(_ context.Context, refreshToken string) (models.Token, error) {
	return s.latest(func(t models.Token) bool { return t.RefreshToken == refreshToken })
}

func (s *MemoryTokenStore) latest(match func(models.Token) bool) (models.Token, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var (
		found models.Token
		ok    bool
	)
	for _, t := range s.db.tokens {
		if match(t) && t.ID > found.ID {
			found, ok = t, true
		}
	}
	if !ok {
		return models.Token{}, auth.ErrTokenNotFound
	}
	return found, nil
}

// Expire sets both expirations of a token row to at.
func (s *MemoryTokenStore) Expire(_ context.Context, tokenID int64, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	return s.expire(tokenID, at)
}

func (s *MemoryTokenStore) expire(tokenID int64, at time.Time) error {
	token, ok := s.db.tokens[tokenID]
	if !ok {
		return auth.ErrTokenNotFound
	}
	token.Expire(at)
	s.db.tokens[tokenID] = token
	return nil
}

// Rotate expires the live row oldID and inserts next atomically.
func (s *MemoryTokenStore) Rotate(_ context.Context, oldID int64, at time.Time, next models.Token) (models.Token, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if old, ok := s.db.tokens[oldID]; !ok || !old.RefreshLive(at) {
		return models.Token{}, auth.ErrTokenNotFound
	}
	if _, ok := s.db.users[next.UserID]; !ok {
		return models.Token{}, ErrNotFound
	}
	if err := s.expire(oldID, at); err != nil {
		return models.Token{}, err
	}
	return s.insert(next)
}

// DeleteRefreshExpiredBefore removes rows whose refresh expiration is before cutoff.
func (s *MemoryTokenStore) DeleteRefreshExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var removed int64
	for id, t := range s.db.tokens {
		if t.RefreshExpiration.Before(cutoff) {
			delete(s.db.tokens, id)
			removed++
		}
	}
	return removed, nil
}

// MemoryFollowRepository implements FollowRepository over a MemoryDatabase.
type MemoryFollowRepository struct {
	db *MemoryDatabase
}

// Exists reports whether followerID follows followedID.
func (r *MemoryFollowRepository) Exists(_ context.Context, followerID, followedID int64) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	_, ok := r.db.follows[followEdge{follower: followerID, followed: followedID}]
	return ok, nil
}

// Insert adds a follow edge.
func (r *MemoryFollowRepository) Insert(_ context.Context, followerID, followedID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if followerID == followedID {
		return ErrConflict
	}
	_, okFollower := r.db.users[followerID]
	_, okFollowed := r.db.users[followedID]
	if !okFollower || !okFollowed {
		return ErrNotFound
	}
	edge := followEdge{follower: followerID, followed: followedID}
	if _, ok := r.db.follows[edge]; ok {
		return ErrConflict
	}
	r.db.follows[edge] = struct{}{}
	return nil
}

// Delete removes a follow edge.
func (r *MemoryFollowRepository) Delete(_ context.Context, followerID, followedID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	edge := followEdge{follower: followerID, followed: followedID}
	if _, ok := r.db.follows[edge]; !ok {
		return ErrNotFound
	}
	delete(r.db.follows, edge)
	return nil
}

// ListFollowing returns a window of the users userID follows.
func (r *MemoryFollowRepository) ListFollowing(_ context.Context, userID int64, page pagination.Params) ([]models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	users := sortedUsers(r.db.users, func(u models.User) bool {
		_, ok := r.db.follows[followEdge{follower: userID, followed: u.ID}]
		return ok
	})
	return pagination.Window(users, page), nil
}

// ListFollowers returns a window of the users following userID.
func (r *MemoryFollowRepository) ListFollowers(_ context.Context, userID int64, page pagination.Params) ([]models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	users := sortedUsers(r.db.users, func(u models.User) bool {
		_, ok := r.db.follows[followEdge{follower: u.ID, followed: userID}]
		return ok
	})
	return pagination.Window(users, page), nil
}

var (
	_ UserRepository   = (*MemoryUserRepository)(nil)
	_ PostRepository   = (*MemoryPostRepository)(nil)
	_ FollowRepository = (*MemoryFollowRepository)(nil)
	_ auth.TokenStore  = (*MemoryTokenStore)(nil)
)
