package middleware

import (
	"strings"

	"fieldtrack/config"
	"fieldtrack/internal/delivery/api/response"
	"fieldtrack/internal/domain/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const (
	// KeySubject holds the authenticated subject on the echo context
	KeySubject = "subject"
	// KeyRoles holds the authenticated roles on the echo context
	KeyRoles = "roles"
)

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	Config   *config.Config
	TokenSvc service.TokenService `optional:"true"`
}

// AuthMiddleware guards mutating routes with a bearer JWT when auth is enabled.
type AuthMiddleware struct {
	enabled  bool
	tokenSvc service.TokenService
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		enabled:  params.Config.Auth.Enabled && params.TokenSvc != nil,
		tokenSvc: params.TokenSvc,
	}
}

// Authenticate validates the access token and stores its claims on the context.
// It passes every request through when auth is disabled.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !m.enabled {
			return next(c)
		}

		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return response.Unauthorized(c, "MISSING_TOKEN", "Authorization header is missing")
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			return response.Unauthorized(c, "INVALID_TOKEN_FORMAT", "Invalid token format, must be Bearer token")
		}

		claims, err := m.tokenSvc.ValidateToken(tokenString)
		if err != nil {
			return response.Unauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
		}
		if claims.Subject == "" {
			return response.Unauthorized(c, "INVALID_TOKEN", "Subject missing from token")
		}

		c.Set(KeySubject, claims.Subject)
		c.Set(KeyRoles, claims.Roles)

		return next(c)
	}
}
