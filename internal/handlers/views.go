package handlers

import (
	"time"

	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/pagination"
)

// userResponse is the public representation of a user. Email and password hash
// are never serialized.
type userResponse struct {
	ID          int64     `json:"user_id"`
	Username    string    `json:"username"`
	AboutMe     string    `json:"about_me"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	LastSeen    time.Time `json:"last_seen"`
	MemberSince time.Time `json:"member_since"`
}

type postResponse struct {
	ID        int64        `json:"post_id"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
	Author    userResponse `json:"author"`
}

type userPageResponse struct {
	Users      []userResponse    `json:"users"`
	Pagination pagination.Params `json:"pagination"`
}

type postPageResponse struct {
	Posts      []postResponse    `json:"posts"`
	Pagination pagination.Params `json:"pagination"`
}

type tokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		AboutMe:     u.AboutMe,
		AvatarURL:   u.AvatarURL,
		LastSeen:    u.LastSeen,
		MemberSince: u.MemberSince,
	}
}

func newPostResponse(p models.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		Author:    newUserResponse(p.Author),
	}
}

func newUserPage(page pagination.Page[models.User]) userPageResponse {
	users := make([]userResponse, 0, len(page.Items))
	for _, u := range page.Items {
		users = append(users, newUserResponse(u))
	}
	return userPageResponse{Users: users, Pagination: page.Pagination}
}

func newPostPage(page pagination.Page[models.Post]) postPageResponse {
	posts := make([]postResponse, 0, len(page.Items))
	for _, p := range page.Items {
		posts = append(posts, newPostResponse(p))
	}
	return postPageResponse{Posts: posts, Pagination: page.Pagination}
}
