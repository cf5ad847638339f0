package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"readinglist/backend/internal/clock"
	"readinglist/backend/internal/db"
	"readinglist/backend/internal/handler"
	"readinglist/backend/internal/model"
	"readinglist/backend/internal/repository"
	"readinglist/backend/internal/router"
	"readinglist/backend/internal/service"
	"readinglist/backend/migrations"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type itemEnvelope struct {
	Item   model.ReadingItem `json:"item"`
	Earned []struct {
		ID     string `json:"id"`
		Points int    `json:"points"`
	} `json:"earned"`
}

type listEnvelope struct {
	Items      []model.ReadingItem `json:"items"`
	MatchCount int                 `json:"matchCount"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestItemLifecycleAndIsolation(t *testing.T) {
	server, _ := setupTestEngine(t)

	user1 := registerUser(t, server, "user1@example.com", "123456")
	user2 := registerUser(t, server, "user2@example.com", "123456")

	created := addItem(t, server, user1.Token, map[string]any{
		"title": "Designing Data-Intensive Applications",
		"url":   "https://dataintensive.net",
		"tags":  []string{"Databases", "systems"},
	})
	assert.Equal(t, model.StatusUnread, created.Item.Status)
	assert.Equal(t, []string{"databases", "systems"}, created.Item.Tags)
	require.Len(t, created.Earned, 1)
	assert.Equal(t, "first_book", created.Earned[0].ID)

	status, body := requestJSON(t, server, http.MethodGet, "/api/items", user2.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var other listEnvelope
	require.NoError(t, json.Unmarshal(body, &other))
	assert.Zero(t, other.MatchCount, "workspaces are per account")

	status, body = requestJSON(t, server, http.MethodPatch, "/api/items/"+created.Item.ID, user1.Token, map[string]any{
		"progress": 100,
		"notes":    "great read",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var updated itemEnvelope
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, model.StatusCompleted, updated.Item.Status)
	assert.Equal(t, "great read", updated.Item.Notes)

	status, body = requestJSON(t, server, http.MethodGet, "/api/tags", user1.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"tags":["databases","systems"]}`, string(body))
}

func TestAddItemValidation(t *testing.T) {
	server, _ := setupTestEngine(t)
	user := registerUser(t, server, "v@example.com", "123456")

	cases := []map[string]any{
		{"title": "   "},
		{"title": "x", "url": "nope"},
		{"title": "x", "priority": "urgent"},
	}
	for _, body := range cases {
		status, raw := requestJSON(t, server, http.MethodPost, "/api/items", user.Token, body)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "validation_error", decodeError(t, raw).Error.Code)
	}

	status, raw := requestJSON(t, server, http.MethodPatch, "/api/items/missing", user.Token, map[string]any{"progress": 10})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "item_not_found", decodeError(t, raw).Error.Code)
}

func TestReadingSessionFlow(t *testing.T) {
	server, clk := setupTestEngine(t)
	user := registerUser(t, server, "reader@example.com", "123456")
	item := addItem(t, server, user.Token, map[string]any{"title": "SICP"})

	status, body := requestJSON(t, server, http.MethodPost, "/api/session/start", user.Token, map[string]string{"itemId": item.Item.ID})
	require.Equal(t, http.StatusOK, status, string(body))

	clk.Advance(2 * time.Minute)
	status, body = requestJSON(t, server, http.MethodGet, "/api/session", user.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var view service.SessionView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.True(t, view.Active)
	assert.Equal(t, item.Item.ID, view.ItemID)
	assert.Equal(t, 120, view.ElapsedSeconds)

	status, body = requestJSON(t, server, http.MethodPost, "/api/session/end", user.Token, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.False(t, view.Active)
	require.NotNil(t, view.Ended)
	assert.Equal(t, 120, view.Ended.Duration)

	status, body = requestJSON(t, server, http.MethodGet, "/api/items/"+item.Item.ID, user.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var got itemEnvelope
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, model.StatusReading, got.Item.Status)
	assert.Equal(t, 120, got.Item.TimeSpent)

	status, body = requestJSON(t, server, http.MethodPost, "/api/session/start", user.Token, map[string]string{"itemId": "missing"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "item_not_found", decodeError(t, body).Error.Code)
}

func TestDeleteAndRestore(t *testing.T) {
	server, clk := setupTestEngine(t)
	user := registerUser(t, server, "undo@example.com", "123456")
	first := addItem(t, server, user.Token, map[string]any{"title": "first"})
	addItem(t, server, user.Token, map[string]any{"title": "second"})

	status, body := requestJSON(t, server, http.MethodDelete, "/api/items/"+first.Item.ID, user.Token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var deleted service.DeleteResult
	require.NoError(t, json.Unmarshal(body, &deleted))
	assert.True(t, deleted.UndoExpiresAt.After(clk.Now()))

	status, body = requestJSON(t, server, http.MethodPost, "/api/items/"+first.Item.ID+"/restore", user.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var restored service.RestoreResult
	require.NoError(t, json.Unmarshal(body, &restored))
	assert.True(t, restored.Restored)

	list := listItems(t, server, user.Token, "")
	require.Len(t, list.Items, 2)
	assert.Equal(t, first.Item.ID, list.Items[1].ID)

	requestJSON(t, server, http.MethodDelete, "/api/items/"+first.Item.ID, user.Token, nil)
	clk.Advance(6 * time.Second)
	status, body = requestJSON(t, server, http.MethodPost, "/api/items/"+first.Item.ID+"/restore", user.Token, nil)
	require.Equal(t, http.StatusOK, status)
	restored = service.RestoreResult{}
	require.NoError(t, json.Unmarshal(body, &restored))
	assert.False(t, restored.Restored)
}

func TestListFiltersAndSorts(t *testing.T) {
	server, clk := setupTestEngine(t)
	user := registerUser(t, server, "filter@example.com", "123456")
	addItem(t, server, user.Token, map[string]any{"title": "beta", "tags": []string{"go"}, "priority": "high"})
	clk.Advance(24 * time.Hour)
	addItem(t, server, user.Token, map[string]any{"title": "Alpha", "tags": []string{"go", "db"}, "priority": "low"})
	clk.Advance(24 * time.Hour)
	addItem(t, server, user.Token, map[string]any{"title": "gamma", "tags": []string{"ml"}})

	list := listItems(t, server, user.Token, "?tag=go&sort=title-asc")
	require.Equal(t, 2, list.MatchCount)
	assert.Equal(t, "Alpha", list.Items[0].Title)
	assert.Equal(t, "beta", list.Items[1].Title)

	list = listItems(t, server, user.Token, "?tag=go&tag=db&tagsMode=all")
	require.Equal(t, 1, list.MatchCount)

	list = listItems(t, server, user.Token, "?priority=high&priority=low&sort=priority-asc")
	require.Equal(t, 2, list.MatchCount)
	assert.Equal(t, model.PriorityLow, list.Items[0].Priority)

	list = listItems(t, server, user.Token, "?to=2026-09-14")
	require.Equal(t, 1, list.MatchCount, "a bare upper bound covers the whole day")
	assert.Equal(t, "beta", list.Items[0].Title)

	list = listItems(t, server, user.Token, "?q=GAM")
	require.Equal(t, 1, list.MatchCount)

	status, body := requestJSON(t, server, http.MethodGet, "/api/items?sort=sideways", user.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", decodeError(t, body).Error.Code)

	status, _ = requestJSON(t, server, http.MethodGet, "/api/items?from=yesterday", user.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAchievementsAndStats(t *testing.T) {
	server, _ := setupTestEngine(t)
	user := registerUser(t, server, "stats@example.com", "123456")
	addItem(t, server, user.Token, map[string]any{"title": "one", "tags": []string{"a"}})

	status, body := requestJSON(t, server, http.MethodGet, "/api/achievements", user.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var achievements struct {
		Progress struct {
			Points int `json:"points"`
			Level  int `json:"level"`
		} `json:"progress"`
		Achievements []struct {
			ID     string `json:"id"`
			Earned bool   `json:"earned"`
		} `json:"achievements"`
	}
	require.NoError(t, json.Unmarshal(body, &achievements))
	assert.Equal(t, 10, achievements.Progress.Points)
	assert.Equal(t, 1, achievements.Progress.Level)
	require.Len(t, achievements.Achievements, 10)
	assert.True(t, achievements.Achievements[0].Earned)

	status, body = requestJSON(t, server, http.MethodGet, "/api/stats", user.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var stats struct {
		Stats struct {
			TotalItems int `json:"totalItems"`
			UniqueTags int `json:"uniqueTags"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.Stats.TotalItems)
	assert.Equal(t, 1, stats.Stats.UniqueTags)
}

func TestUnauthorized(t *testing.T) {
	server, _ := setupTestEngine(t)

	status, body := requestJSON(t, server, http.MethodGet, "/api/items", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", decodeError(t, body).Error.Code)

	status, _ = requestJSON(t, server, http.MethodGet, "/api/items", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginAfterRegister(t *testing.T) {
	server, _ := setupTestEngine(t)
	registerUser(t, server, "Login@Example.com", "123456")

	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "login@example.com",
		"password": "123456",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = requestJSON(t, server, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "login@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCORSPreflight(t *testing.T) {
	server, _ := setupTestEngine(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/items/abc", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	recorder := httptest.NewRecorder()

	server.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "http://localhost:5173", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, recorder.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func setupTestEngine(t *testing.T) (http.Handler, *clock.Fake) {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
	})
	require.NoError(t, db.RunMigrations(database, migrations.Files))

	logger := zaptest.NewLogger(t)
	clk := clock.NewFake(time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC))

	userRepo := repository.NewUserRepository(database)
	authService := service.NewAuthService(userRepo, "test-secret", 24*time.Hour)
	registry := service.NewRegistry(repository.NewBlobRepository(database), service.Options{
		Clock:    clk,
		Location: time.UTC,
		Logger:   logger,
	})

	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Library:  handler.NewLibraryHandler(registry, time.UTC),
		Session:  handler.NewSessionHandler(registry),
		Progress: handler.NewProgressHandler(registry),
	}
	return router.New(authService, handlers, []string{"http://localhost:5173"}, logger), clk
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, status, "register %s: %s", email, string(body))

	var resp authResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

func addItem(t *testing.T, server http.Handler, token string, body map[string]any) itemEnvelope {
	t.Helper()
	status, raw := requestJSON(t, server, http.MethodPost, "/api/items", token, body)
	require.Equal(t, http.StatusCreated, status, string(raw))

	var resp itemEnvelope
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func listItems(t *testing.T, server http.Handler, token, rawQuery string) listEnvelope {
	t.Helper()
	status, raw := requestJSON(t, server, http.MethodGet, "/api/items"+rawQuery, token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	var resp listEnvelope
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func decodeError(t *testing.T, raw []byte) apiErrorEnvelope {
	t.Helper()
	var resp apiErrorEnvelope
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body any,
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
