package token

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lcu1903/ProjectThoiTrang/internal/models"
)

func newTestService(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RefreshToken{}))

	return &Service{
		DB:            db,
		JWTSecret:     []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)

	raw, err := svc.SignRefreshToken(1, "user")
	require.NoError(t, err)
	require.NoError(t, svc.SaveRefreshToken(raw, 1))

	claims, err := svc.ValidateRefresh(raw)
	require.NoError(t, err)
	require.Equal(t, float64(1), claims["sub"])
	require.Equal(t, "user", claims["role"])
}

func TestValidateRefreshRejectsAccessToken(t *testing.T) {
	svc := newTestService(t)

	// Access tokens carry no typ claim and are signed with the other secret.
	raw, err := svc.SignAccessToken(1, "user")
	require.NoError(t, err)

	_, err = svc.ValidateRefresh(raw)
	require.Error(t, err)
}

func TestValidateRefreshRejectsUnknownToken(t *testing.T) {
	svc := newTestService(t)

	raw, err := svc.SignRefreshToken(1, "user")
	require.NoError(t, err)

	_, err = svc.ValidateRefresh(raw)
	require.Error(t, err)
}

func TestRevokeRefresh(t *testing.T) {
	svc := newTestService(t)

	raw, err := svc.SignRefreshToken(1, "user")
	require.NoError(t, err)
	require.NoError(t, svc.SaveRefreshToken(raw, 1))
	require.NoError(t, svc.RevokeRefresh(raw))

	_, err = svc.ValidateRefresh(raw)
	require.Error(t, err)
}

func authedContext(e *echo.Echo, accessToken string) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if accessToken != "" {
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: accessToken})
	}
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func TestRequireAuthSetsIdentity(t *testing.T) {
	svc := newTestService(t)
	e := echo.New()

	raw, err := svc.SignAccessToken(7, "user")
	require.NoError(t, err)

	rec, c := authedContext(e, raw)
	handler := svc.RequireAuth(func(c echo.Context) error {
		require.Equal(t, uint(7), c.Get("cusID"))
		require.Equal(t, "user", c.Get("role"))
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthMissingCookie(t *testing.T) {
	svc := newTestService(t)
	e := echo.New()

	_, c := authedContext(e, "")
	handler := svc.RequireAuth(func(c echo.Context) error {
		t.Fatal("handler should not run")
		return nil
	})

	err := handler(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestRequireAuthRejectsRefreshSecretToken(t *testing.T) {
	svc := newTestService(t)
	e := echo.New()

	raw, err := svc.SignRefreshToken(7, "user")
	require.NoError(t, err)

	_, c := authedContext(e, raw)
	handler := svc.RequireAuth(func(c echo.Context) error {
		t.Fatal("handler should not run")
		return nil
	})

	err = handler(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestService(t)
	e := echo.New()

	userToken, err := svc.SignAccessToken(7, "user")
	require.NoError(t, err)
	adminToken, err := svc.SignAccessToken(8, "admin")
	require.NoError(t, err)

	_, c := authedContext(e, userToken)
	handler := svc.RequireAdmin(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	err = handler(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusForbidden, httpErr.Code)

	rec, c := authedContext(e, adminToken)
	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)
}
