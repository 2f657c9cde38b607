package musicbrainz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_FirstReleaseYear_PicksEarliestYear(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recording" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		query := r.URL.Query().Get("query")
		if !strings.Contains(query, "Queen") || !strings.Contains(query, "Bohemian Rhapsody") {
			t.Errorf("Unexpected query %s", query)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("Expected a User-Agent header")
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"recordings":[
			{"title":"Bohemian Rhapsody","score":100,"first-release-date":"1981-11-02"},
			{"title":"Bohemian Rhapsody","score":98,"first-release-date":"1975-10-31"},
			{"title":"Bohemian Rhapsody (live)","score":90,"first-release-date":"1986"}
		]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	year, err := client.FirstReleaseYear(context.Background(), "Queen", "Bohemian Rhapsody")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if year != 1975 {
		t.Errorf("Expected earliest year 1975, got %d", year)
	}
}

func TestClient_FirstReleaseYear_PartialDates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"recordings":[
			{"title":"Song","score":100,"first-release-date":"1992-04"},
			{"title":"Song","score":95,"first-release-date":"1990"}
		]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	year, err := client.FirstReleaseYear(context.Background(), "Artist", "Song")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if year != 1990 {
		t.Errorf("Expected 1990, got %d", year)
	}
}

func TestClient_FirstReleaseYear_NoUsableDates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"recordings":[
			{"title":"Song","score":100,"first-release-date":""},
			{"title":"Song","score":95,"first-release-date":"??"}
		]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.FirstReleaseYear(context.Background(), "Artist", "Song")
	if !errors.Is(err, ErrRecordingNotFound) {
		t.Fatalf("Expected ErrRecordingNotFound, got: %v", err)
	}
}

func TestClient_FirstReleaseYear_NoMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"recordings":[]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.FirstReleaseYear(context.Background(), "Nobody", "Nothing")
	if !errors.Is(err, ErrRecordingNotFound) {
		t.Fatalf("Expected ErrRecordingNotFound, got: %v", err)
	}
}

func TestClient_FirstReleaseYear_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.FirstReleaseYear(context.Background(), "Artist", "Song")
	if err == nil {
		t.Fatal("Expected an error")
	}
}

func TestClient_FirstReleaseYear_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.FirstReleaseYear(context.Background(), "Artist", "Song")
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("Expected ErrInvalidResponse, got: %v", err)
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		date   string
		want   int
		wantOK bool
	}{
		{"1975-10-31", 1975, true},
		{"1992-04", 1992, true},
		{"1990", 1990, true},
		{"", 0, false},
		{"??", 0, false},
		{"0999", 0, false},
		{"abcd-01-01", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseYear(tt.date)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parseYear(%q) = %d, %v; want %d, %v", tt.date, got, ok, tt.want, tt.wantOK)
		}
	}
}
