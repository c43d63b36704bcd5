package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	storage := testutils.NewSQLiteStorage(t)
	testutils.SeedUsers(t, storage.Users, "1")

	e := echo.New()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("test-secret"))))
	e.POST("/login/:id", func(c echo.Context) error {
		if err := Login(c, c.Param("id")); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/me", func(c echo.Context) error {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		return c.String(http.StatusOK, user.ID)
	}, Identity(storage.Users, "X-User-ID"))

	get := func(setup func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		setup(req)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	t.Run("anonymous", func(t *testing.T) {
		rec := get(func(*http.Request) {})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("trusted header", func(t *testing.T) {
		rec := get(func(r *http.Request) { r.Header.Set("X-User-ID", "1") })
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1", rec.Body.String())
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := get(func(r *http.Request) { r.Header.Set("X-User-ID", "404") })
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("session cookie", func(t *testing.T) {
		login := httptest.NewRecorder()
		e.ServeHTTP(login, httptest.NewRequest(http.MethodPost, "/login/1", nil))
		require.Equal(t, http.StatusNoContent, login.Code)
		cookies := login.Result().Cookies()
		require.NotEmpty(t, cookies)

		rec := get(func(r *http.Request) {
			for _, c := range cookies {
				r.AddCookie(c)
			}
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1", rec.Body.String())
	})
}

func TestIdentity_HeaderDisabled(t *testing.T) {
	storage := testutils.NewSQLiteStorage(t)
	testutils.SeedUsers(t, storage.Users, "1")

	e := echo.New()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("test-secret"))))
	e.GET("/me", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, Identity(storage.Users, ""))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-ID", "1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "headers are ignored unless a trusted header is configured")
}
