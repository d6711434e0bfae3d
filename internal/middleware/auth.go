// Package middleware provides HTTP middleware components for authentication,
// authorization, telemetry, and other cross-cutting concerns.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// RoleAdmin may read every project and change epochs.
	RoleAdmin = "admin"
	// RoleAnalyst may read the projects listed in its token.
	RoleAnalyst = "analyst"

	ctxUserID     = "user_id"
	ctxUserEmail  = "user_email"
	ctxUserRole   = "user_role"
	ctxProjectIDs = "project_ids"
)

// JWTClaims represents the JWT token claims.
type JWTClaims struct {
	// UserID is the user identifier.
	UserID string `json:"user_id"`
	// Email is the user email.
	Email string `json:"email"`
	// Role is RoleAdmin or RoleAnalyst.
	Role string `json:"role"`
	// ProjectIDs lists the projects a non-admin may read.
	ProjectIDs []string `json:"project_ids,omitempty"`
	jwt.RegisteredClaims
}

// CanAccess reports whether the claims grant access to projectID.
func (c *JWTClaims) CanAccess(projectID string) bool {
	return c.Role == RoleAdmin || slices.Contains(c.ProjectIDs, projectID)
}

// AuthMiddleware provides JWT authentication middleware.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(secretKey string) *AuthMiddleware {
	return &AuthMiddleware{
		secretKey: []byte(secretKey),
	}
}

// RequireAuth middleware validates JWT tokens.
// It requires a valid Bearer token in the Authorization header.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		claims, err := am.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortJSON(c, http.StatusUnauthorized, "Token expired")
				return
			}
			abortJSON(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserRole, claims.Role)
		c.Set(ctxProjectIDs, claims.ProjectIDs)
		c.Set("claims", claims)
		c.Next()
	}
}

// RequireProjectAccess rejects callers whose token does not cover the
// project named by the route parameter param. It must run after RequireAuth.
func (am *AuthMiddleware) RequireProjectAccess(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		projectID := strings.TrimSpace(c.Param(param))
		if projectID == "" || !claims.CanAccess(projectID) {
			abortJSON(c, http.StatusForbidden, "No access to project")
			return
		}
		c.Next()
	}
}

// RequireRole rejects callers whose token carries a different role.
func (am *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if claims.Role != role {
			abortJSON(c, http.StatusForbidden, "Insufficient role")
			return
		}
		c.Next()
	}
}

// GenerateToken creates a new JWT token for a user.
func (am *AuthMiddleware) GenerateToken(userID, email, role string, projectIDs []string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID:     userID,
		Email:      email,
		Role:       role,
		ProjectIDs: projectIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(am.secretKey)
}

// ValidateToken validates a JWT token and returns claims.
func (am *AuthMiddleware) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return am.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// ClaimsFromContext returns the claims stored by RequireAuth.
func ClaimsFromContext(c *gin.Context) (*JWTClaims, bool) {
	v, ok := c.Get("claims")
	if !ok {
		return nil, false
	}
	claims, ok := v.(*JWTClaims)
	return claims, ok
}

// UserID returns the authenticated user, or "" when unauthenticated.
func UserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// bearerToken extracts the token from a case-insensitive "Bearer" header
// (RFC 6750).
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abortJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
