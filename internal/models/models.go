package models

import (
	"errors"
	"time"
)

// ErrPasswordWriteOnly is returned when code attempts to read a user's plaintext password.
// Only the salted hash is ever stored.
var ErrPasswordWriteOnly = errors.New("password is write-only")

// User represents an account within the blog.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	AboutMe      string
	AvatarURL    string
	LastSeen     time.Time
	MemberSince  time.Time
}

// Password always fails: the plaintext is never retained after hashing.
func (User) Password() (string, error) {
	return "", ErrPasswordWriteOnly
}

// Token is an access/refresh credential pair bound to a single user.
type Token struct {
	ID                int64
	AccessToken       string
	AccessExpiration  time.Time
	RefreshToken      string
	RefreshExpiration time.Time
	UserID            int64
}

// AccessLive reports whether the access credential is usable at now.
func (t Token) AccessLive(now time.Time) bool {
	return now.Before(t.AccessExpiration)
}

// RefreshLive reports whether the refresh credential is usable at now.
func (t Token) RefreshLive(now time.Time) bool {
	return now.Before(t.RefreshExpiration)
}

// Expire ends both credentials at the provided instant without deleting the row.
func (t *Token) Expire(at time.Time) {
	t.AccessExpiration = at
	t.RefreshExpiration = at
}

// Post is a blog entry written by a single author.
type Post struct {
	ID        int64
	Title     string
	Content   string
	CreatedAt time.Time
	AuthorID  int64
	Author    User
}
