package casdoor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/attempt-service/internal/cache"
	"github.com/SAP-F-2025/attempt-service/internal/models"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// userDirectory is the part of the Casdoor client used here
type userDirectory interface {
	GetUserByUserId(userId string) (*casdoorsdk.User, error)
}

type UserCasdoor struct {
	client userDirectory
	cache  *cache.CacheHelper
}

func NewUserCasdoor(config CasdoorConfig, redisClient *redis.Client) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return newUserCasdoor(client, redisClient)
}

func newUserCasdoor(client userDirectory, redisClient *redis.Client) *UserCasdoor {
	return &UserCasdoor{
		client: client,
		cache:  cache.NewCacheManager(redisClient).User,
	}
}

// ===== CONVERSION METHODS =====

func convertCasdoorUser(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	var avatar *string
	if casdoorUser.Avatar != "" {
		avatar = &casdoorUser.Avatar
	}

	return &models.User{
		ID:        casdoorUser.Id,
		FullName:  casdoorUser.DisplayName,
		Email:     casdoorUser.Email,
		Role:      convertCasdoorRoles(casdoorUser),
		AvatarURL: avatar,
	}
}

// convertCasdoorRoles picks the primary role; admin wins over everything else
func convertCasdoorRoles(casdoorUser *casdoorsdk.User) models.UserRole {
	if casdoorUser.IsAdmin {
		return models.RoleAdmin
	}

	var roles []models.UserRole
	for _, casdoorRole := range casdoorUser.Roles {
		if casdoorRole == nil {
			continue
		}
		mapped := MapCasdoorRole(casdoorRole.Name)
		if !slices.Contains(roles, mapped) {
			roles = append(roles, mapped)
		}
	}

	if slices.Contains(roles, models.RoleAdmin) {
		return models.RoleAdmin
	}
	if len(roles) == 0 {
		return MapCasdoorRole(casdoorUser.Type)
	}
	return roles[0]
}

// MapCasdoorRole maps a Casdoor role or user type onto the internal role
func MapCasdoorRole(name string) models.UserRole {
	switch strings.ToLower(name) {
	case "teacher", "instructor", "educator":
		return models.RoleTeacher
	case "admin", "administrator":
		return models.RoleAdmin
	default:
		return models.RoleStudent
	}
}

// ===== BASIC READ OPERATIONS =====

// GetByID retrieves a user by ID, cache first
func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	cacheKey := fmt.Sprintf("id:%s", id)
	var cached models.User
	if err := u.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	casdoorUser, err := u.client.GetUserByUserId(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}

	user := convertCasdoorUser(casdoorUser)
	cache.SafeSet(ctx, u.cache, cacheKey, user, cache.UserCacheConfig.TTL)

	return user, nil
}

// GetByIDs retrieves multiple users; ids that cannot be resolved are skipped
func (u *UserCasdoor) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := u.GetByID(ctx, id)
		if err != nil {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// ===== VALIDATION AND CHECKS =====

func (u *UserCasdoor) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := u.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasRole checks if a user has a specific role
func (u *UserCasdoor) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, err := u.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return role == user.Role, nil
}
