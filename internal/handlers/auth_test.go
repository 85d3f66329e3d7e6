package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rankforge/ladderboard/internal/auth"
	"github.com/rankforge/ladderboard/internal/models"
	"github.com/rankforge/ladderboard/internal/repo"
)

func newAuthHandler(t *testing.T) *AuthHandler {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	svc := auth.NewService(repo.NewGormUserRepo(db), []byte("access-secret"), []byte("refresh-secret"))
	return &AuthHandler{Auth: svc}
}

func doJSON(t *testing.T, handler echo.HandlerFunc, method, target string, payload any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	e := echo.New()
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec
}

func registerPayload() map[string]string {
	return map[string]string{
		"email":           "user@example.com",
		"username":        "some_player",
		"name":            "Some Player",
		"password":        "password123",
		"confirmPassword": "password123",
	}
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterSuccess(t *testing.T) {
	h := newAuthHandler(t)

	rec := doJSON(t, h.Register, http.MethodPost, "/api/auth/register", registerPayload(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		User    struct {
			ID       string `json:"id"`
			Email    string `json:"email"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
		Tokens struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.User.ID)
	require.Equal(t, "user@example.com", resp.User.Email)
	require.Equal(t, models.RoleUser, resp.User.Role)
	require.NotEmpty(t, resp.Tokens.AccessToken)
	require.NotEmpty(t, resp.Tokens.RefreshToken)

	access := cookieByName(rec, "accessToken")
	require.NotNil(t, access)
	require.True(t, access.HttpOnly)
	require.Equal(t, 900, access.MaxAge)
	refresh := cookieByName(rec, "refreshToken")
	require.NotNil(t, refresh)
	require.Equal(t, 604800, refresh.MaxAge)
}

func TestRegisterShortPassword(t *testing.T) {
	h := newAuthHandler(t)

	payload := registerPayload()
	payload["password"] = "abc12"
	payload["confirmPassword"] = "abc12"
	rec := doJSON(t, h.Register, http.MethodPost, "/api/auth/register", payload, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// No record was created.
	rec = doJSON(t, h.Register, http.MethodPost, "/api/auth/register", registerPayload(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newAuthHandler(t)

	rec := doJSON(t, h.Register, http.MethodPost, "/api/auth/register", registerPayload(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	payload := registerPayload()
	payload["email"] = "User@Example.com"
	payload["username"] = "other_player"
	rec = doJSON(t, h.Register, http.MethodPost, "/api/auth/register", payload, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterMissingFields(t *testing.T) {
	h := newAuthHandler(t)

	payload := registerPayload()
	delete(payload, "name")
	rec := doJSON(t, h.Register, http.MethodPost, "/api/auth/register", payload, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginSuccess(t *testing.T) {
	h := newAuthHandler(t)
	doJSON(t, h.Register, http.MethodPost, "/api/auth/register", registerPayload(), nil)

	rec := doJSON(t, h.Login, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "password123",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, cookieByName(rec, "accessToken"))
	require.NotNil(t, cookieByName(rec, "refreshToken"))
}

func TestLoginWrongPassword(t *testing.T) {
	h := newAuthHandler(t)
	doJSON(t, h.Register, http.MethodPost, "/api/auth/register", registerPayload(), nil)

	rec := doJSON(t, h.Login, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "wrongpassword",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown email gets the identical message: existence is not leaked.
	rec2 := doJSON(t, h.Login, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "wrongpassword",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec2.Code)
	require.JSONEq(t, rec.Body.String(), rec2.Body.String())
}

func TestMeWithBearerToken(t *testing.T) {
	h := newAuthHandler(t)
	rec := doJSON(t, h.Register, http.MethodPost, "/api/auth/register", registerPayload(), nil)

	var resp struct {
		Tokens struct {
			AccessToken string `json:"accessToken"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = doJSON(t, h.Me, http.MethodGet, "/api/auth/me", nil, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+resp.Tokens.AccessToken)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var me struct {
		Success bool `json:"success"`
		User    struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.True(t, me.Success)
	require.Equal(t, "some_player", me.User.Username)
}

func TestMeWithCookie(t *testing.T) {
	h := newAuthHandler(t)
	rec := doJSON(t, h.Register, http.MethodPost, "/api/auth/register", registerPayload(), nil)
	access := cookieByName(rec, "accessToken")
	require.NotNil(t, access)

	rec = doJSON(t, h.Me, http.MethodGet, "/api/auth/me", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: access.Value})
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMeWithoutToken(t *testing.T) {
	h := newAuthHandler(t)

	rec := doJSON(t, h.Me, http.MethodGet, "/api/auth/me", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h.Me, http.MethodGet, "/api/auth/me", nil, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutClearsCookies(t *testing.T) {
	h := newAuthHandler(t)

	rec := doJSON(t, h.Logout, http.MethodPost, "/api/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	access := cookieByName(rec, "accessToken")
	require.NotNil(t, access)
	require.Empty(t, access.Value)
	require.Less(t, access.MaxAge, 0)
	refresh := cookieByName(rec, "refreshToken")
	require.NotNil(t, refresh)
	require.Empty(t, refresh.Value)
}

func TestRefreshIssuesNewPair(t *testing.T) {
	h := newAuthHandler(t)
	rec := doJSON(t, h.Register, http.MethodPost, "/api/auth/register", registerPayload(), nil)
	refresh := cookieByName(rec, "refreshToken")
	require.NotNil(t, refresh)

	rec = doJSON(t, h.Refresh, http.MethodPost, "/api/auth/refresh", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh.Value})
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, cookieByName(rec, "accessToken"))

	rec = doJSON(t, h.Refresh, http.MethodPost, "/api/auth/refresh", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "garbage"})
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h.Refresh, http.MethodPost, "/api/auth/refresh", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

type recordedEvent struct {
	Key   string
	Event map[string]any
}

type recordingPublisher struct {
	events []recordedEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, key string, event any) error {
	p.events = append(p.events, recordedEvent{Key: key, Event: event.(map[string]any)})
	return nil
}

func TestAuthFlowPublishesEvents(t *testing.T) {
	h := newAuthHandler(t)
	pub := &recordingPublisher{}
	h.Producer = pub

	rec := doJSON(t, h.Register, http.MethodPost, "/api/auth/register", registerPayload(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h.Login, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "password123",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	access := cookieByName(rec, "accessToken")
	require.NotNil(t, access)

	rec = doJSON(t, h.Logout, http.MethodPost, "/api/auth/logout", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: access.Value})
	})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, pub.events, 3)
	var types []string
	for _, ev := range pub.events {
		types = append(types, ev.Event["type"].(string))
	}
	require.Equal(t, []string{"user_registered", "user_logged_in", "user_logged_out"}, types)

	userID := pub.events[0].Key
	require.NotEmpty(t, userID)
	for _, ev := range pub.events {
		require.Equal(t, userID, ev.Key)
		require.Equal(t, userID, ev.Event["userId"])
		require.Equal(t, "some_player", ev.Event["username"])
	}
}

func TestLogoutWithoutValidTokenPublishesNothing(t *testing.T) {
	h := newAuthHandler(t)
	pub := &recordingPublisher{}
	h.Producer = pub

	rec := doJSON(t, h.Logout, http.MethodPost, "/api/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// A garbage token still logs out cleanly, just anonymously.
	rec = doJSON(t, h.Logout, http.MethodPost, "/api/auth/logout", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: "garbage"})
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, pub.events)
}
