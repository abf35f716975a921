package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"rigger-connect-backend/config"
	"rigger-connect-backend/internal/delivery/http/response"
	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/pkg/auth"
	"rigger-connect-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware validates a Supabase access token from the Authorization
// header or the auth_token cookie. HS256 tokens are checked against the
// project secret, RS256 tokens against the JWKS.
func AuthMiddleware(jwksProvider *auth.Provider, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		// 1. Try to get token from Header
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			// 2. Try to get token from Cookie
			cookie, err := c.Cookie("auth_token")
			if err == nil && cookie != "" {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			unauthorized(c, "Authorization header or auth_token cookie required", "missing token")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
				if cfg.SupabaseJWTSecret == "" {
					return nil, fmt.Errorf("HS256 token received but SUPABASE_JWT_SECRET is not configured")
				}
				return []byte(cfg.SupabaseJWTSecret), nil
			}

			if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
				if jwksProvider == nil {
					return nil, fmt.Errorf("RS256 token received but no JWKS provider is configured")
				}
				return jwksProvider.KeyFunc(token)
			}

			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		})
		if err != nil || !token.Valid {
			reason := "invalid token"
			if err != nil {
				reason = err.Error()
			}
			unauthorized(c, "Invalid token", reason)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "Invalid claims", "claims are not a map")
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			unauthorized(c, "Invalid claims", "missing sub")
			return
		}
		email, _ := claims["email"].(string)

		c.Set(string(domain.KeyUserID), sub)
		c.Set(string(domain.KeyUserEmail), email)
		c.Set(string(domain.KeyUserRole), roleFromClaims(claims))

		c.Next()
	}
}

// roleFromClaims reads app_metadata.role. The top-level "role" claim is the
// Postgres role ("authenticated") and is ignored.
func roleFromClaims(claims jwt.MapClaims) string {
	if meta, ok := claims["app_metadata"].(map[string]interface{}); ok {
		if role, ok := meta["role"].(string); ok && role != "" {
			return role
		}
	}
	return domain.RoleWorker
}

// RequireRole rejects users whose role is not listed.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(string(domain.KeyUserRole))
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		security.DefaultLogger().LogForbidden(c.Request.Context(),
			c.GetString(string(domain.KeyUserID)), c.ClientIP(), getRequestID(c), c.FullPath())
		response.Error(c, http.StatusForbidden, "You do not have access to this resource", nil)
		c.Abort()
	}
}

func unauthorized(c *gin.Context, message, reason string) {
	security.DefaultLogger().LogUnauthorized(c.Request.Context(), c.ClientIP(), c.GetHeader("User-Agent"), getRequestID(c), reason)
	response.Error(c, http.StatusUnauthorized, message, nil)
	c.Abort()
}
