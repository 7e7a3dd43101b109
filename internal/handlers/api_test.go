package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/blogapi/backend/internal/auth"
	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/repositories"
	"github.com/blogapi/backend/internal/social"
)

type testAPI struct {
	t        *testing.T
	router   http.Handler
	database *repositories.MemoryDatabase
	bob      models.User
}

type apiOption func(*Dependencies)

func withDelivery(d TokenDelivery) apiOption {
	return func(deps *Dependencies) { deps.Delivery = d }
}

func withLimiter(l RateLimiter) apiOption {
	return func(deps *Dependencies) { deps.Limiter = l }
}

func withAvatars(s AvatarStorage) apiOption {
	return func(deps *Dependencies) { deps.Avatars = s }
}

func newTestAPI(t *testing.T, opts ...apiOption) *testAPI {
	t.Helper()

	database := repositories.NewMemoryDatabase()
	creds := auth.Credentials{Cost: bcrypt.MinCost}
	manager := auth.NewManager(15*time.Minute, 7*24*time.Hour, database.Tokens(), database.Users())

	deps := Dependencies{
		Users:        database.Users(),
		Posts:        database.Posts(),
		Tokens:       manager,
		Follows:      social.NewGraph(database.Follows()),
		Passwords:    creds,
		Delivery:     TokenDelivery{InCookie: true},
		MaxPageLimit: 100,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	api := &testAPI{t: t, router: NewRouter(deps), database: database}
	api.bob = api.createUser("bob", "cat")
	return api
}

func (a *testAPI) createUser(username, password string) models.User {
	a.t.Helper()
	user := models.User{Username: username, Email: username + "@example.com"}
	if err := (auth.Credentials{Cost: bcrypt.MinCost}).SetPassword(&user, password); err != nil {
		a.t.Fatalf("hash password: %v", err)
	}
	created, err := a.database.Users().Create(context.Background(), user)
	if err != nil {
		a.t.Fatalf("create user %s: %v", username, err)
	}
	return created
}

type call struct {
	method  string
	path    string
	body    any
	bearer  string
	user    string
	pass    string
	cookies []*http.Cookie
	headers map[string]string
	raw     []byte
}

func (a *testAPI) do(c call) *httptest.ResponseRecorder {
	a.t.Helper()

	var body io.Reader
	switch {
	case c.raw != nil:
		body = bytes.NewReader(c.raw)
	case c.body != nil:
		payload, err := json.Marshal(c.body)
		if err != nil {
			a.t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// login issues a token pair for username and returns the decoded response.
func (a *testAPI) login(username, password string) tokenResponse {
	a.t.Helper()
	rec := a.do(call{method: http.MethodPost, path: "/tokens", user: username, pass: password})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("expected 201 issuing token for %s, got %d: %s", username, rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	decodeBody(a.t, rec, &resp)
	return resp
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d got %d: %s", want, rec.Code, strings.TrimSpace(rec.Body.String()))
	}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
