package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(apiURL, tokenURL string) *Client {
	return NewClient(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8080/callback",
		AuthURL:      "http://accounts.test/authorize",
		TokenURL:     tokenURL,
		BaseURL:      apiURL,
	})
}

func TestClient_AuthCodeURL_CarriesStateAndScopes(t *testing.T) {
	client := newTestClient("http://api.test", "http://accounts.test/token")

	authURL := client.AuthCodeURL("state123")

	if !strings.Contains(authURL, "state=state123") {
		t.Errorf("Expected state parameter, got %s", authURL)
	}
	if !strings.Contains(authURL, "client_id=client-id") {
		t.Errorf("Expected client id, got %s", authURL)
	}
	if !strings.Contains(authURL, "streaming") {
		t.Errorf("Expected streaming scope, got %s", authURL)
	}
}

func TestClient_Exchange(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("Failed to parse token request: %v", err)
		}
		if got := r.FormValue("grant_type"); got != "authorization_code" {
			t.Errorf("Expected authorization_code grant, got %s", got)
		}
		if got := r.FormValue("code"); got != "code123" {
			t.Errorf("Expected code123, got %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`)
	}))
	defer accounts.Close()

	client := newTestClient("http://api.test", accounts.URL)

	bundle, err := client.Exchange(context.Background(), "code123")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if bundle.AccessToken != "at-1" {
		t.Errorf("Expected access token at-1, got %s", bundle.AccessToken)
	}
	if bundle.RefreshToken != "rt-1" {
		t.Errorf("Expected refresh token rt-1, got %s", bundle.RefreshToken)
	}
	if !bundle.ExpiresAt.After(time.Now().Add(50 * time.Minute)) {
		t.Errorf("Expected roughly an hour of validity, got %v", bundle.ExpiresAt)
	}
}

func TestClient_Exchange_InvalidGrant(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	defer accounts.Close()

	client := newTestClient("http://api.test", accounts.URL)

	_, err := client.Exchange(context.Background(), "badcode")
	if err == nil {
		t.Fatal("Expected an error")
	}
}

func TestClient_Refresh_RotatedToken(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("Failed to parse token request: %v", err)
		}
		if got := r.FormValue("grant_type"); got != "refresh_token" {
			t.Errorf("Expected refresh_token grant, got %s", got)
		}
		if got := r.FormValue("refresh_token"); got != "rt-old" {
			t.Errorf("Expected rt-old, got %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-2","refresh_token":"rt-new","token_type":"Bearer","expires_in":3600}`)
	}))
	defer accounts.Close()

	client := newTestClient("http://api.test", accounts.URL)

	bundle, err := client.Refresh(context.Background(), "rt-old")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if bundle.AccessToken != "at-2" {
		t.Errorf("Expected access token at-2, got %s", bundle.AccessToken)
	}
	if bundle.RefreshToken != "rt-new" {
		t.Errorf("Expected rotated refresh token, got %s", bundle.RefreshToken)
	}
}

func TestClient_Refresh_UnrotatedTokenEchoed(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-2","token_type":"Bearer","expires_in":3600}`)
	}))
	defer accounts.Close()

	client := newTestClient("http://api.test", accounts.URL)

	bundle, err := client.Refresh(context.Background(), "rt-old")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// oauth2 carries the old refresh token forward when none is issued.
	if bundle.RefreshToken != "rt-old" {
		t.Errorf("Expected the input refresh token to be echoed, got %s", bundle.RefreshToken)
	}
}

func TestClient_PlaylistMetadata(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("Expected bearer token, got %s", got)
		}
		if !strings.HasPrefix(r.URL.Path, "/playlists/pl1") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pl1","name":"All Out 80s"}`)
	}))
	defer api.Close()

	client := newTestClient(api.URL, "http://accounts.test/token")

	playlist, err := client.PlaylistMetadata(context.Background(), "token-1", "pl1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if playlist.ID != "pl1" || playlist.Name != "All Out 80s" {
		t.Errorf("Unexpected playlist %+v", playlist)
	}
}

func TestClient_PlaylistMetadata_MissingFields(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	}))
	defer api.Close()

	client := newTestClient(api.URL, "http://accounts.test/token")

	_, err := client.PlaylistMetadata(context.Background(), "token-1", "pl1")
	if err == nil {
		t.Fatal("Expected an error for an empty metadata response")
	}
}

func TestClient_PlaylistTracks_FollowsPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Query().Get("offset") {
		case "", "0":
			next := server.URL + "/v1/playlists/pl1/tracks?offset=100&limit=100"
			resp := map[string]any{
				"items": []map[string]any{
					{"track": map[string]any{"id": "t1", "name": "One", "uri": "spotify:track:t1"}},
					{"track": nil},
				},
				"next":  next,
				"total": 102,
			}
			json.NewEncoder(w).Encode(resp)
		case "100":
			resp := map[string]any{
				"items": []map[string]any{
					{"track": map[string]any{"id": "t2", "name": "Two", "uri": "spotify:track:t2"}},
				},
				"next":  nil,
				"total": 102,
			}
			json.NewEncoder(w).Encode(resp)
		default:
			t.Errorf("Unexpected offset %s", r.URL.Query().Get("offset"))
		}
	}))
	defer server.Close()

	// Pagination URLs carry the /v1 prefix; the client strips it.
	client := newTestClient(server.URL, "http://accounts.test/token")

	tracks, err := client.PlaylistTracks(context.Background(), "token-1", "pl1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(tracks) != 2 {
		t.Fatalf("Expected 2 tracks across pages, got %d", len(tracks))
	}
	if tracks[0].ID != "t1" || tracks[1].ID != "t2" {
		t.Errorf("Unexpected track order: %s, %s", tracks[0].ID, tracks[1].ID)
	}
}

func TestClient_PlaylistTracks_NotFound(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer api.Close()

	client := newTestClient(api.URL, "http://accounts.test/token")

	_, err := client.PlaylistTracks(context.Background(), "token-1", "missing")
	if err == nil {
		t.Fatal("Expected an error")
	}

	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("Expected a 404 StatusError, got: %v", err)
	}
}

func TestClient_Devices(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/player/devices" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"devices":[{"id":"d1","name":"Kitchen","type":"Speaker","is_active":true}]}`)
	}))
	defer api.Close()

	client := newTestClient(api.URL, "http://accounts.test/token")

	devices, err := client.Devices(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(devices) != 1 {
		t.Fatalf("Expected 1 device, got %d", len(devices))
	}
	if devices[0].ID != "d1" || !devices[0].IsActive {
		t.Errorf("Unexpected device %+v", devices[0])
	}
}

func TestClient_Play(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("Expected PUT, got %s", r.Method)
		}
		if r.URL.Path != "/me/player/play" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("device_id"); got != "d1" {
			t.Errorf("Expected device_id d1, got %s", got)
		}

		var body struct {
			URIs []string `json:"uris"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if len(body.URIs) != 1 || body.URIs[0] != "spotify:track:t1" {
			t.Errorf("Unexpected uris %v", body.URIs)
		}

		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	client := newTestClient(api.URL, "http://accounts.test/token")

	if err := client.Play(context.Background(), "token-1", "d1", "spotify:track:t1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func TestClient_Play_Unauthorized(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer api.Close()

	client := newTestClient(api.URL, "http://accounts.test/token")

	err := client.Play(context.Background(), "expired", "d1", "spotify:track:t1")
	if !IsUnauthorized(err) {
		t.Fatalf("Expected an unauthorized error, got: %v", err)
	}
}

func TestIsUnauthorized(t *testing.T) {
	if IsUnauthorized(nil) {
		t.Error("nil error should not be unauthorized")
	}
	if IsUnauthorized(&StatusError{Code: 404, Operation: "play"}) {
		t.Error("404 should not be unauthorized")
	}
	if !IsUnauthorized(&StatusError{Code: 401, Operation: "play"}) {
		t.Error("401 should be unauthorized")
	}
	if !IsUnauthorized(fmt.Errorf("wrapped: %w", &StatusError{Code: 401, Operation: "devices"})) {
		t.Error("wrapped 401 should be unauthorized")
	}
}
