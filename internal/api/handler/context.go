package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/middleware"
	"github.com/99minutos/identity-service/internal/core/domain"
)

// ctxClaims extracts the claims injected by the Auth middleware. A missing
// subject means the middleware did not run on this route.
func ctxClaims(c echo.Context) (domain.TokenClaims, error) {
	claims, ok := c.Get(middleware.ClaimsKey).(domain.TokenClaims)
	if !ok || claims.SubjectID == "" {
		return domain.TokenClaims{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}
