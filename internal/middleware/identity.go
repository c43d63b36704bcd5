package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/domain"
)

const (
	// UserContextKey is where Identity stores the *domain.User on the echo context.
	UserContextKey = "user"
	// SessionName is the cookie session that carries the authenticated user id.
	SessionName    = "parley_session"
	sessionUserKey = "user_id"
)

// Identity resolves the caller to a *domain.User and stores it under
// UserContextKey. The identity comes from trustedHeader when it is set and
// present on the request (a fronting auth proxy), otherwise from the cookie
// session written by Login. Requests without a known identity get a 401.
func Identity(users domain.UserRepository, trustedHeader string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := ""
			if trustedHeader != "" {
				userID = c.Request().Header.Get(trustedHeader)
			}
			if userID == "" {
				if sess, err := session.Get(SessionName, c); err == nil {
					userID, _ = sess.Values[sessionUserKey].(string)
				}
			}
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			if errors.Is(err, domain.ErrNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user").SetInternal(err)
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "could not resolve user").SetInternal(err)
			}

			c.Set(UserContextKey, user)
			ctx := c.Request().Context()
			c.SetRequest(c.Request().WithContext(WithLogger(ctx, FromContext(ctx).With("user_id", user.ID))))
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by Identity.
func CurrentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(UserContextKey).(*domain.User)
	return user, ok && user != nil
}

// Login binds userID to the caller's cookie session.
func Login(c echo.Context, userID string) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return err
	}
	sess.Options.Path = "/"
	sess.Options.HttpOnly = true
	sess.Options.SameSite = http.SameSiteLaxMode
	sess.Values[sessionUserKey] = userID
	return sess.Save(c.Request(), c.Response())
}
