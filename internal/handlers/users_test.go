package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/blogapi/backend/internal/auth"
)

func TestUserHandlerCreate(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(call{method: http.MethodPost, path: "/users", body: map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "dog",
	}})
	expectStatus(t, rec, http.StatusCreated)

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["username"] != "alice" {
		t.Fatalf("expected alice, got %v", body["username"])
	}
	for _, key := range []string{"user_id", "last_seen", "member_since"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("expected %s in payload", key)
		}
	}
	for _, hidden := range []string{"email", "password"} {
		if _, ok := body[hidden]; ok {
			t.Fatalf("expected %s to be omitted", hidden)
		}
	}

	api.login("alice", "dog")

	cases := []struct {
		name string
		body map[string]string
	}{
		{"duplicate username", map[string]string{"username": "alice", "email": "other@example.com", "password": "x"}},
		{"duplicate email", map[string]string{"username": "alice2", "email": "alice@example.com", "password": "x"}},
		{"malformed email", map[string]string{"username": "carol", "email": "helloworld", "password": "x"}},
		{"short username", map[string]string{"username": "al", "email": "al@example.com", "password": "x"}},
		{"missing password", map[string]string{"username": "dave", "email": "dave@example.com"}},
		{"unknown field", map[string]string{"username": "erin", "email": "erin@example.com", "password": "x", "role": "admin"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectStatus(t, api.do(call{method: http.MethodPost, path: "/users", body: tc.body}), http.StatusBadRequest)
		})
	}
}

func TestUserHandlerLookup(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(call{method: http.MethodGet, path: fmt.Sprintf("/users/%d", api.bob.ID)})
	expectStatus(t, rec, http.StatusOK)
	var byID map[string]any
	decodeBody(t, rec, &byID)
	if byID["username"] != "bob" {
		t.Fatalf("expected bob by id, got %v", byID)
	}

	rec = api.do(call{method: http.MethodGet, path: "/users/bob"})
	expectStatus(t, rec, http.StatusOK)

	expectStatus(t, api.do(call{method: http.MethodGet, path: "/users/555"}), http.StatusNotFound)
	expectStatus(t, api.do(call{method: http.MethodGet, path: "/users/alice"}), http.StatusNotFound)
}

func TestUserHandlerListPagination(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(call{method: http.MethodGet, path: "/users?limit=2"})
	expectStatus(t, rec, http.StatusOK)

	var page userPageResponse
	decodeBody(t, rec, &page)
	if len(page.Users) != 1 || page.Users[0].Username != "bob" {
		t.Fatalf("expected exactly bob, got %+v", page.Users)
	}
	if page.Pagination.Limit != 2 || page.Pagination.Offset != 0 {
		t.Fatalf("expected pagination {2 0}, got %+v", page.Pagination)
	}

	rec = api.do(call{method: http.MethodGet, path: "/users?offset=5"})
	expectStatus(t, rec, http.StatusOK)
	var empty map[string]any
	decodeBody(t, rec, &empty)
	if users, ok := empty["users"].([]any); !ok || len(users) != 0 {
		t.Fatalf("expected empty users array, got %v", empty["users"])
	}

	rec = api.do(call{method: http.MethodGet, path: "/users?limit=100000"})
	expectStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &page)
	if page.Pagination.Limit != 100 {
		t.Fatalf("expected limit clamped to 100, got %d", page.Pagination.Limit)
	}

	expectStatus(t, api.do(call{method: http.MethodGet, path: "/users?limit=abc"}), http.StatusBadRequest)
	expectStatus(t, api.do(call{method: http.MethodGet, path: "/users?offset=-1"}), http.StatusBadRequest)
	expectStatus(t, api.do(call{method: http.MethodGet, path: "/users?limit=0"}), http.StatusBadRequest)
}

func TestUserHandlerUpdateMe(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("bob", "cat").AccessToken

	expectStatus(t, api.do(call{method: http.MethodPut, path: "/me", bearer: token, body: map[string]string{
		"password": "dog",
	}}), http.StatusForbidden)

	expectStatus(t, api.do(call{method: http.MethodPut, path: "/me", bearer: token, body: map[string]string{
		"old_password": "wrong",
		"password":     "dog",
	}}), http.StatusForbidden)

	expectStatus(t, api.do(call{method: http.MethodPut, path: "/me", bearer: token, body: map[string]string{
		"email":        "helloworld",
		"old_password": "cat",
		"password":     "dog",
	}}), http.StatusBadRequest)

	rec := api.do(call{method: http.MethodPut, path: "/me", bearer: token, body: map[string]string{
		"username":     "robert",
		"about_me":     "hello",
		"old_password": "cat",
		"password":     "dog",
	}})
	expectStatus(t, rec, http.StatusOK)

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["username"] != "robert" || body["about_me"] != "hello" {
		t.Fatalf("unexpected update result: %v", body)
	}

	expectStatus(t, api.do(call{method: http.MethodPost, path: "/tokens", user: "robert", pass: "cat"}), http.StatusUnauthorized)
	api.login("robert", "dog")

	api.createUser("alice", "pw")
	expectStatus(t, api.do(call{method: http.MethodPut, path: "/me", bearer: token, body: map[string]string{
		"username": "alice",
	}}), http.StatusBadRequest)
}

func TestUserHandlerDeleteMe(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("bob", "cat").AccessToken

	expectStatus(t, api.do(call{method: http.MethodDelete, path: "/me", bearer: token}), http.StatusNoContent)
	expectStatus(t, api.do(call{method: http.MethodGet, path: "/me", bearer: token}), http.StatusUnauthorized)
	expectStatus(t, api.do(call{method: http.MethodGet, path: "/users/bob"}), http.StatusNotFound)
}

type recordingAvatars struct {
	key         string
	contentType string
	body        string
	err         error
}

func (s *recordingAvatars) Save(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.key, s.contentType, s.body = key, contentType, string(data)
	return "https://cdn.example.com/" + key, nil
}

func TestUserHandlerUploadAvatar(t *testing.T) {
	avatars := &recordingAvatars{}
	api := newTestAPI(t, withAvatars(avatars))
	token := api.login("bob", "cat").AccessToken

	rec := api.do(call{
		method:  http.MethodPut,
		path:    "/me/avatar",
		bearer:  token,
		raw:     []byte("\x89PNG fake"),
		headers: map[string]string{"Content-Type": "image/png"},
	})
	expectStatus(t, rec, http.StatusOK)

	var body map[string]any
	decodeBody(t, rec, &body)
	url, _ := body["avatar_url"].(string)
	if !strings.HasPrefix(url, "https://cdn.example.com/avatars/") || avatars.contentType != "image/png" || avatars.body != "\x89PNG fake" {
		t.Fatalf("unexpected upload: url=%q stored=%+v", url, avatars)
	}

	rec = api.do(call{method: http.MethodGet, path: "/users/bob"})
	decodeBody(t, rec, &body)
	if body["avatar_url"] != url {
		t.Fatalf("expected avatar url to persist, got %v", body["avatar_url"])
	}

	expectStatus(t, api.do(call{
		method:  http.MethodPut,
		path:    "/me/avatar",
		bearer:  token,
		raw:     []byte("text"),
		headers: map[string]string{"Content-Type": "text/plain"},
	}), http.StatusBadRequest)

	avatars.err = errors.New("bucket unavailable")
	expectStatus(t, api.do(call{
		method:  http.MethodPut,
		path:    "/me/avatar",
		bearer:  token,
		raw:     []byte("img"),
		headers: map[string]string{"Content-Type": "image/jpeg"},
	}), http.StatusInternalServerError)
}

func TestUserHandlerUploadAvatarDisabled(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("bob", "cat").AccessToken

	expectStatus(t, api.do(call{
		method:  http.MethodPut,
		path:    "/me/avatar",
		bearer:  token,
		raw:     []byte("img"),
		headers: map[string]string{"Content-Type": "image/png"},
	}), http.StatusServiceUnavailable)
}

func TestStatusForWeakPassword(t *testing.T) {
	err := &auth.WeakPasswordError{Err: errors.New("insecure password")}
	if got := statusFor(err); got != http.StatusBadRequest {
		t.Fatalf("expected 400 for weak password, got %d", got)
	}
}

func TestUserHandlerRejectsOverlongPasswords(t *testing.T) {
	api := newTestAPI(t)
	long := strings.Repeat("p", 80)

	expectStatus(t, api.do(call{method: http.MethodPost, path: "/users", body: map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": long,
	}}), http.StatusBadRequest)

	token := api.login("bob", "cat").AccessToken
	expectStatus(t, api.do(call{method: http.MethodPut, path: "/me", bearer: token, body: map[string]string{
		"old_password": "cat",
		"password":     long,
	}}), http.StatusBadRequest)

	api.login("bob", "cat")
}
