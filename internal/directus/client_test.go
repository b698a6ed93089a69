package directus_test

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

	"github.com/rs/zerolog"

	"github.com/zizcon/zizcon-api/internal/directus"
	"github.com/zizcon/zizcon-api/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *directus.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return directus.NewClient(server.URL, "static-token", 5*time.Second, zerolog.Nop())
}

func TestUsersByEmail_Found(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer static-token" {
			t.Errorf("Expected static token auth, got %q", got)
		}
		if got := r.URL.Query().Get("filter[email][_eq]"); got != "jana@example.com" {
			t.Errorf("Unexpected email filter: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": [{"id": "cms-user-1", "email": "jana@example.com", "role": "role-1"}]}`)
	})

	user, err := client.UsersByEmail(context.Background(), "jana@example.com")
	if err != nil {
		t.Fatalf("UsersByEmail failed: %v", err)
	}
	if user == nil || user.ID != "cms-user-1" {
		t.Errorf("Unexpected user: %+v", user)
	}
}

func TestUsersByEmail_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": []}`)
	})

	user, err := client.UsersByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("UsersByEmail failed: %v", err)
	}
	if user != nil {
		t.Errorf("Expected nil for no match, got %+v", user)
	}
}

func TestCreateUser_Conflict(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errors": [{"message": "Field \"email\" has to be unique.", "extensions": {"code": "RECORD_NOT_UNIQUE"}}]}`)
	})

	_, err := client.CreateUser(context.Background(), &models.NewDirectusUser{Email: "jana@example.com"})
	if !errors.Is(err, directus.ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got: %v", err)
	}
}

func TestCreateUser_OtherError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"errors": [{"message": "You don't have permission", "extensions": {"code": "FORBIDDEN"}}]}`)
	})

	_, err := client.CreateUser(context.Background(), &models.NewDirectusUser{Email: "jana@example.com"})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if errors.Is(err, directus.ErrUserExists) {
		t.Error("A forbidden response must not map to ErrUserExists")
	}
	if !strings.Contains(err.Error(), "permission") {
		t.Errorf("Expected upstream message in error, got: %v", err)
	}
}

func TestUpdateUserRole(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": {"id": "cms-user-1"}}`)
	})

	if err := client.UpdateUserRole(context.Background(), "cms-user-1", "role-2"); err != nil {
		t.Fatalf("UpdateUserRole failed: %v", err)
	}
	if gotPath != "PATCH /users/cms-user-1" {
		t.Errorf("Unexpected request: %s", gotPath)
	}
	if gotPayload["role"] != "role-2" {
		t.Errorf("Expected role-2 in payload, got %q", gotPayload["role"])
	}
}

func TestItems_FiltersPublished(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/items/blog" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("filter[status][_eq]"); got != "published" {
			t.Errorf("Expected published filter, got %q", got)
		}
		if got := q.Get("sort"); got != "-date_created" {
			t.Errorf("Expected newest-first sort, got %q", got)
		}
		if got := q.Get("fields"); got != "id,title" {
			t.Errorf("Expected joined fields, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": [{"id": "1", "title": "První ročník"}]}`)
	})

	var posts []models.BlogPost
	if err := client.Items(context.Background(), "blog", []string{"id", "title"}, &posts); err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Title != "První ročník" {
		t.Errorf("Unexpected posts: %+v", posts)
	}
}

func TestItems_RetriesServerErrors(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"errors": [{"message": "bad gateway"}]}`)
			return
		}
		fmt.Fprint(w, `{"data": []}`)
	})

	var posts []models.BlogPost
	if err := client.Items(context.Background(), "blog", nil, &posts); err != nil {
		t.Fatalf("Items failed after retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected a retry after the transient failure, got %d attempts", attempts)
	}
}

func TestAssetURL(t *testing.T) {
	client := directus.NewClient("https://cms.zizcon.cz", "token", time.Second, zerolog.Nop())

	plain := client.AssetURL("file-123", nil)
	if plain != "https://cms.zizcon.cz/assets/file-123" {
		t.Errorf("Unexpected plain URL: %s", plain)
	}

	sized := client.AssetURL("file-123", &directus.AssetOptions{Width: 800, Quality: 75, Fit: "cover"})
	for _, want := range []string{"/assets/file-123", "width=800", "quality=75", "fit=cover"} {
		if !strings.Contains(sized, want) {
			t.Errorf("Expected %q in %q", want, sized)
		}
	}

	if got := client.AssetURL("", nil); got != "" {
		t.Errorf("Expected empty URL for empty file id, got %q", got)
	}
}
