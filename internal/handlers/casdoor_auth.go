package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attempt-service/internal/config"
	"github.com/SAP-F-2025/attempt-service/internal/models"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
	"github.com/SAP-F-2025/attempt-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/attempt-service/internal/utils"
)

// CasdoorAuthMiddleware provides authentication using Casdoor SDK
type CasdoorAuthMiddleware struct {
	userRepo repositories.UserRepository
	logger   utils.Logger

	// identify turns a bearer token into the caller
	identify func(ctx context.Context, token string) (*models.User, error)
}

// NewCasdoorAuthMiddleware creates a new Casdoor authentication middleware
func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig, userRepo repositories.UserRepository, logger utils.Logger) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)

	cam := &CasdoorAuthMiddleware{
		userRepo: userRepo,
		logger:   logger,
	}
	cam.identify = func(ctx context.Context, token string) (*models.User, error) {
		claims, err := client.ParseJwtToken(token)
		if err != nil {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
		return cam.extractUserFromClaims(ctx, claims)
	}
	return cam
}

// AuthMiddleware returns a Gin middleware function for Casdoor authentication
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Sign in to continue",
				Details: err.Error(),
			})
			return
		}

		user, err := cam.identify(c.Request.Context(), token)
		if err != nil {
			utils.GetLogger(c, cam.logger).Warn("Authentication failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Sign in to continue",
				Details: err.Error(),
			})
			return
		}

		setUserContext(c, user)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("authorization header missing")
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid authorization header format")
	}
	return parts[1], nil
}

func setUserContext(c *gin.Context, user *models.User) {
	c.Set("user_id", user.ID)
	c.Set("user", user)
	c.Set("user_role", user.Role)
	c.Set("user_email", user.Email)
}

// extractUserFromClaims prefers the directory entry and falls back to the token claims
func (cam *CasdoorAuthMiddleware) extractUserFromClaims(ctx context.Context, claims *casdoorsdk.Claims) (*models.User, error) {
	userID := claims.Id
	if userID == "" {
		return nil, fmt.Errorf("invalid user ID in token")
	}

	if cam.userRepo != nil {
		user, err := cam.userRepo.GetByID(ctx, userID)
		if err == nil {
			return user, nil
		}
		if !repositories.IsNotFoundError(err) {
			cam.logger.Warn("User directory lookup failed, using token claims", "user_id", userID, "error", err)
		}
	}

	return createUserFromClaims(claims), nil
}

func createUserFromClaims(claims *casdoorsdk.Claims) *models.User {
	role := casdoor.MapCasdoorRole(claims.User.Type)
	if claims.User.IsAdmin {
		role = models.RoleAdmin
	}

	var avatar *string
	if claims.User.Avatar != "" {
		avatarURL := claims.User.Avatar
		avatar = &avatarURL
	}

	return &models.User{
		ID:        claims.Id,
		FullName:  claims.User.DisplayName,
		Email:     claims.User.Email,
		Role:      role,
		AvatarURL: avatar,
	}
}

// GetUserFromContext extracts user from Gin context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	user, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	userModel, ok := user.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return userModel, nil
}
