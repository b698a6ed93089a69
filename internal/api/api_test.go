package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/zizcon/zizcon-api/internal/api"
	"github.com/zizcon/zizcon-api/internal/auth"
	"github.com/zizcon/zizcon-api/internal/config"
	"github.com/zizcon/zizcon-api/internal/directus"
	"github.com/zizcon/zizcon-api/internal/mocks"
	"github.com/zizcon/zizcon-api/internal/models"
	"github.com/zizcon/zizcon-api/internal/service"
)

const (
	testDomain   = "zizcon.eu.auth0.com"
	testClientID = "test-client-id"
	testSecret   = "test-client-secret"
)

type testEnv struct {
	router  *gin.Engine
	tracker *mocks.MockTracker
	mgmt    *mocks.MockManagementService
	sync    *mocks.MockSyncService
	cms     *httptest.Server
}

// setupTestRouter wires the router against mocks and a fake CMS server. The
// handler passed in answers every CMS request; nil means an empty data set.
func setupTestRouter(t *testing.T, cmsHandler http.HandlerFunc) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if cmsHandler == nil {
		cmsHandler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data": []}`)
		}
	}
	cmsServer := httptest.NewServer(cmsHandler)
	t.Cleanup(cmsServer.Close)

	log := zerolog.Nop()
	cms := directus.NewClient(cmsServer.URL, "static-token", 5*time.Second, log)

	mockTracker := mocks.NewMockTracker()
	mockMgmt := mocks.NewMockManagementService()
	mockSync := &mocks.MockSyncService{}

	services := &service.Services{
		Tracker:    mockTracker,
		Management: mockMgmt,
		Cache:      mocks.NewMockSyncCache(),
		Sync:       mockSync,
	}

	sessions := auth.NewSessionAccessor(testDomain, testClientID, testSecret)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080"},
		App:    config.AppConfig{BaseURL: "https://zizcon.cz"},
	}

	router := api.NewRouter(services, sessions, cms, cfg, log)

	return &testEnv{
		router:  router,
		tracker: mockTracker,
		mgmt:    mockMgmt,
		sync:    mockSync,
		cms:     cmsServer,
	}
}

// mintToken signs a session token the way the Auth0 tenant would
func mintToken(t *testing.T, subject, email string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":         fmt.Sprintf("https://%s/", testDomain),
		"aud":         testClientID,
		"sub":         subject,
		"email":       email,
		"given_name":  "Jana",
		"family_name": "Nováková",
		"exp":         time.Now().Add(time.Hour).Unix(),
		"iat":         time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected status healthy, got %v", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestRouter(t, nil)

	env.tracker.Track(context.Background(), models.APISourceWeb)
	env.tracker.Track(context.Background(), models.APISourceWeb)
	env.tracker.Track(context.Background(), models.APISourceDirectus)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body struct {
		APICalls map[string]int `json:"api_calls"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body.APICalls["web"] != 2 {
		t.Errorf("Expected 2 web calls, got %d", body.APICalls["web"])
	}
	if body.APICalls["directus"] != 1 {
		t.Errorf("Expected 1 directus call, got %d", body.APICalls["directus"])
	}
	if body.APICalls["stripe"] != 0 {
		t.Errorf("Expected 0 stripe calls, got %d", body.APICalls["stripe"])
	}
}

func TestSyncEndpoint_NoSession(t *testing.T) {
	env := setupTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/api/auth/sync", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
	if len(env.tracker.Calls) != 0 {
		t.Errorf("Unauthenticated request must not be tracked, got %d calls", len(env.tracker.Calls))
	}
}

func TestSyncEndpoint_InvalidToken(t *testing.T) {
	env := setupTestRouter(t, nil)

	// Signed with the wrong secret
	claims := jwt.MapClaims{
		"iss":   fmt.Sprintf("https://%s/", testDomain),
		"aud":   testClientID,
		"sub":   "auth0|123",
		"email": "jana@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/auth/sync", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestSyncEndpoint_Success(t *testing.T) {
	env := setupTestRouter(t, nil)

	var gotSession *auth.Session
	env.sync.SyncFunc = func(ctx context.Context, session *auth.Session) (*models.SyncResult, error) {
		gotSession = session
		return &models.SyncResult{
			UserID:         "directus-user-1",
			IsNew:          true,
			Auth0Roles:     []models.Auth0Role{},
			DirectusRoleID: models.DirectusRoleIDs[models.RoleRegular],
		}, nil
	}

	req := httptest.NewRequest("GET", "/api/auth/sync", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "auth0|abc123", "jana@example.com"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotSession == nil {
		t.Fatal("Sync was not invoked")
	}
	if gotSession.Subject != "auth0|abc123" {
		t.Errorf("Expected subject auth0|abc123, got %s", gotSession.Subject)
	}
	if gotSession.Email != "jana@example.com" {
		t.Errorf("Expected email jana@example.com, got %s", gotSession.Email)
	}

	var result models.SyncResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if result.UserID != "directus-user-1" {
		t.Errorf("Expected user directus-user-1, got %s", result.UserID)
	}
	if !result.IsNew {
		t.Error("Expected isNew true")
	}

	if env.tracker.CountOf(models.APISourceWeb) != 1 {
		t.Errorf("Expected 1 tracked web call, got %d", env.tracker.CountOf(models.APISourceWeb))
	}
}

func TestSyncEndpoint_CookieSession(t *testing.T) {
	env := setupTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/api/auth/sync", nil)
	req.AddCookie(&http.Cookie{
		Name:  auth.SessionCookieName,
		Value: mintToken(t, "auth0|cookie", "cookie@example.com"),
	})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSyncEndpoint_SyncFailure(t *testing.T) {
	env := setupTestRouter(t, nil)

	env.sync.SyncFunc = func(ctx context.Context, session *auth.Session) (*models.SyncResult, error) {
		return nil, fmt.Errorf("upstream exploded")
	}

	req := httptest.NewRequest("GET", "/api/auth/sync", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "auth0|abc123", "jana@example.com"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body["error"] != "An error occurred while syncing user" {
		t.Errorf("Unexpected error message: %s", body["error"])
	}
}

func TestManagementEndpoint_Success(t *testing.T) {
	env := setupTestRouter(t, nil)

	env.mgmt.Users["jana@example.com"] = &models.Auth0User{
		UserID: "auth0|abc123",
		Email:  "jana@example.com",
	}
	env.mgmt.Roles["auth0|abc123"] = []models.Auth0Role{
		{ID: models.Auth0RoleIDs[models.RoleCustomerPaid], Name: "Customer-Paid"},
	}

	req := httptest.NewRequest("GET", "/api/auth/mgmt", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "auth0|abc123", "jana@example.com"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		User           *models.Auth0User  `json:"user"`
		Roles          []models.Auth0Role `json:"roles"`
		DirectusRoleID string             `json:"directusRoleId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body.User == nil || body.User.UserID != "auth0|abc123" {
		t.Errorf("Unexpected user in response: %+v", body.User)
	}
	if len(body.Roles) != 1 {
		t.Errorf("Expected 1 role, got %d", len(body.Roles))
	}
	if body.DirectusRoleID != models.DirectusRoleIDs[models.RoleCustomerPaid] {
		t.Errorf("Expected paid-customer CMS role, got %s", body.DirectusRoleID)
	}
}

func TestManagementEndpoint_NoSession(t *testing.T) {
	env := setupTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/api/auth/mgmt", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestBlogEndpoint(t *testing.T) {
	env := setupTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer static-token" {
			t.Errorf("Expected static token auth, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": [{"id": 1, "title": "První ročník", "content": "<p>Ahoj</p>"}]}`)
	})

	req := httptest.NewRequest("GET", "/api/content/blog", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Posts []models.BlogPost `json:"posts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(body.Posts) != 1 {
		t.Fatalf("Expected 1 post, got %d", len(body.Posts))
	}
	if body.Posts[0].Title != "První ročník" {
		t.Errorf("Unexpected title: %s", body.Posts[0].Title)
	}
}

func TestBlogEndpoint_EmptyResult(t *testing.T) {
	env := setupTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/api/content/blog", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	// An empty collection must serialize as [], not null
	var body map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if string(body["posts"]) != "[]" {
		t.Errorf("Expected empty array, got %s", body["posts"])
	}
}

func TestImageEndpoint_Redirect(t *testing.T) {
	env := setupTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/api/content/image?id=file-123&width=800&quality=75", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", w.Code)
	}
	location := w.Header().Get("Location")
	if location == "" {
		t.Fatal("Expected Location header")
	}
	for _, want := range []string{"/assets/file-123", "width=800", "quality=75"} {
		if !strings.Contains(location, want) {
			t.Errorf("Expected %q in redirect %q", want, location)
		}
	}
}

func TestImageEndpoint_MissingID(t *testing.T) {
	env := setupTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/api/content/image", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	env := setupTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://zizcon.cz" {
		t.Errorf("Expected configured origin, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestRouter(t, nil)

	req := httptest.NewRequest("OPTIONS", "/api/content/blog", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Errorf("Unexpected allowed methods: %q", got)
	}
}
