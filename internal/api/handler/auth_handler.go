package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/metrics"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request / Response types ---

type loginRequest struct {
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
	Role       string `json:"role,omitempty" validate:"omitempty,role"`
}

type registerRequest struct {
	Email               string   `json:"email" validate:"required,email"`
	Password            string   `json:"password" validate:"required"`
	Name                string   `json:"name" validate:"required,max=120"`
	Phone               string   `json:"phone,omitempty"`
	CountryCode         string   `json:"countryCode,omitempty"`
	Country             string   `json:"country,omitempty"`
	City                string   `json:"city,omitempty"`
	Role                string   `json:"role,omitempty" validate:"omitempty,role"`
	PreferredCategories []string `json:"preferredCategories,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type loginResponse struct {
	Success           bool                           `json:"success"`
	User              domain.Profile                 `json:"user"`
	Token             string                         `json:"token"`
	RefreshToken      string                         `json:"refreshToken"`
	AvailableRoles    []domain.Role                  `json:"availableRoles"`
	LinkedProfiles    []domain.Profile               `json:"linkedProfiles"`
	RoleTokens        map[domain.Role]string         `json:"roleTokens"`
	RoleRefreshTokens map[domain.Role]string         `json:"roleRefreshTokens"`
	RoleProfiles      map[domain.Role]domain.Profile `json:"roleProfiles"`
}

type registerResponse struct {
	Success        bool             `json:"success"`
	User           domain.Profile   `json:"user"`
	Token          string           `json:"token"`
	RefreshToken   string           `json:"refreshToken"`
	LinkedProfiles []domain.Profile `json:"linkedProfiles"`
}

type tokenPairResponse struct {
	Success      bool   `json:"success"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type linkedProfilesResponse struct {
	Success        bool             `json:"success"`
	LinkedProfiles []domain.Profile `json:"linkedProfiles"`
}

// outcome labels a result for metrics: "success" or the public error code.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if ae, ok := domain.AsAuthError(err); ok {
		return ae.Code
	}
	return "error"
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Login authenticates an email/password pair against every role store.
//
// @Summary      Login
// @Description  Resolves the credentials across all role stores and returns the primary session plus per-role tokens for CLIENT and TRADER.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest   true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]any
// @Failure      401   {object}  map[string]any
// @Failure      403   {object}  map[string]any
// @Failure      500   {object}  map[string]any
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	start := time.Now()
	result, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		Role:       req.Role,
	})
	label := outcome(err)
	metrics.LoginDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(label, "none").Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues(label, string(result.User.UserType)).Inc()
	for role := range result.Session.RoleTokens {
		metrics.RoleTokensIssuedTotal.WithLabelValues(string(role)).Inc()
	}

	return c.JSON(http.StatusOK, loginResponse{
		Success:           true,
		User:              result.User,
		Token:             result.Session.Token,
		RefreshToken:      result.Session.RefreshToken,
		AvailableRoles:    result.AvailableRoles,
		LinkedProfiles:    emptyIfNil(result.LinkedProfiles),
		RoleTokens:        result.Session.RoleTokens,
		RoleRefreshTokens: result.Session.RoleRefreshTokens,
		RoleProfiles:      result.Session.RoleProfiles,
	})
}

// Register creates a CLIENT account.
//
// @Summary      Register a new client
// @Description  Creates a CLIENT identity and links an existing unlinked TRADER with the same email.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Client registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  map[string]any
// @Failure      500   {object}  map[string]any
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:               req.Email,
		Password:            req.Password,
		Name:                req.Name,
		Phone:               req.Phone,
		CountryCode:         req.CountryCode,
		Country:             req.Country,
		City:                req.City,
		Role:                req.Role,
		PreferredCategories: req.PreferredCategories,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(outcome(err), "false").Inc()
		return err
	}
	linked := len(result.LinkedProfiles) > 0
	metrics.RegistrationsTotal.WithLabelValues(outcome(nil), strconv.FormatBool(linked)).Inc()

	return c.JSON(http.StatusCreated, registerResponse{
		Success:        true,
		User:           result.User,
		Token:          result.Tokens.Token,
		RefreshToken:   result.Tokens.RefreshToken,
		LinkedProfiles: emptyIfNil(result.LinkedProfiles),
	})
}

// Refresh exchanges a refresh token for a new token pair.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  tokenPairResponse
// @Failure      400   {object}  map[string]any
// @Failure      401   {object}  map[string]any
// @Failure      403   {object}  map[string]any
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pair, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenPairResponse{Success: true, Token: pair.Token, RefreshToken: pair.RefreshToken})
}

// Me returns the profile of the authenticated identity.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Profile
// @Failure      401  {object}  map[string]any
// @Failure      403  {object}  map[string]any
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	profile, err := h.authService.Me(c.Request().Context(), claims)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// LinkedProfiles returns the client↔trader counterpart of the authenticated identity.
//
// @Summary      Linked profiles
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  linkedProfilesResponse
// @Failure      401  {object}  map[string]any
// @Failure      403  {object}  map[string]any
// @Router       /auth/linked-profiles [get]
func (h *AuthHandler) LinkedProfiles(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	profiles, err := h.authService.LinkedProfiles(c.Request().Context(), claims)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, linkedProfilesResponse{Success: true, LinkedProfiles: emptyIfNil(profiles)})
}
