package handlers

import (
	"fmt"
	"net/http"
	"testing"
)

func TestFollowHandlerLifecycle(t *testing.T) {
	api := newTestAPI(t)
	alice := api.createUser("alice", "dog")
	aliceToken := api.login("alice", "dog").AccessToken
	bobToken := api.login("bob", "cat").AccessToken

	followBob := fmt.Sprintf("/me/following/%d", api.bob.ID)

	expectStatus(t, api.do(call{method: http.MethodGet, path: followBob, bearer: aliceToken}), http.StatusNotFound)
	expectStatus(t, api.do(call{method: http.MethodPost, path: followBob, bearer: aliceToken}), http.StatusNoContent)
	expectStatus(t, api.do(call{method: http.MethodPost, path: followBob, bearer: aliceToken}), http.StatusConflict)
	expectStatus(t, api.do(call{method: http.MethodGet, path: followBob, bearer: aliceToken}), http.StatusNoContent)

	rec := api.do(call{method: http.MethodGet, path: "/me/following", bearer: aliceToken})
	expectStatus(t, rec, http.StatusOK)
	var following userPageResponse
	decodeBody(t, rec, &following)
	if len(following.Users) != 1 || following.Users[0].Username != "bob" {
		t.Fatalf("unexpected following: %+v", following.Users)
	}

	rec = api.do(call{method: http.MethodGet, path: "/me/followers", bearer: bobToken})
	expectStatus(t, rec, http.StatusOK)
	var followers userPageResponse
	decodeBody(t, rec, &followers)
	if len(followers.Users) != 1 || followers.Users[0].ID != alice.ID {
		t.Fatalf("unexpected followers: %+v", followers.Users)
	}

	rec = api.do(call{method: http.MethodGet, path: fmt.Sprintf("/users/%d/followers", api.bob.ID)})
	expectStatus(t, rec, http.StatusOK)
	rec = api.do(call{method: http.MethodGet, path: fmt.Sprintf("/users/%d/following", alice.ID)})
	expectStatus(t, rec, http.StatusOK)
	expectStatus(t, api.do(call{method: http.MethodGet, path: "/users/999/followers"}), http.StatusNotFound)

	expectStatus(t, api.do(call{method: http.MethodDelete, path: followBob, bearer: aliceToken}), http.StatusNoContent)
	expectStatus(t, api.do(call{method: http.MethodDelete, path: followBob, bearer: aliceToken}), http.StatusConflict)
	expectStatus(t, api.do(call{method: http.MethodGet, path: followBob, bearer: aliceToken}), http.StatusNotFound)
}

func TestFollowHandlerRejectsBadTargets(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("bob", "cat").AccessToken

	expectStatus(t, api.do(call{method: http.MethodPost, path: fmt.Sprintf("/me/following/%d", api.bob.ID), bearer: token}), http.StatusBadRequest)
	expectStatus(t, api.do(call{method: http.MethodPost, path: "/me/following/999", bearer: token}), http.StatusNotFound)
	expectStatus(t, api.do(call{method: http.MethodDelete, path: "/me/following/999", bearer: token}), http.StatusNotFound)
	expectStatus(t, api.do(call{method: http.MethodGet, path: "/me/following"}), http.StatusUnauthorized)
}
