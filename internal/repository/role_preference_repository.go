package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/ctos-api/internal/models"
)

const rolePreferencePrefix = "role_pref:"

// RolePreferenceRepository remembers the role a user last switched to. Writes
// are last-write-wins.
type RolePreferenceRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRolePreferenceRepository constructs the repository. A zero ttl keeps
// preferences until overwritten.
func NewRolePreferenceRepository(client *redis.Client, ttl time.Duration) *RolePreferenceRepository {
	return &RolePreferenceRepository{client: client, ttl: ttl}
}

func rolePreferenceKey(userID string) string {
	return rolePreferencePrefix + userID
}

// Get returns the stored role for userID. The boolean is false when none is stored.
func (r *RolePreferenceRepository) Get(ctx context.Context, userID string) (models.UserRole, bool, error) {
	if r.client == nil {
		return "", false, nil
	}
	value, err := r.client.Get(ctx, rolePreferenceKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get role preference: %w", err)
	}
	return models.UserRole(value), true, nil
}

// Set stores role as the preferred role of userID.
func (r *RolePreferenceRepository) Set(ctx context.Context, userID string, role models.UserRole) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Set(ctx, rolePreferenceKey(userID), string(role), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set role preference: %w", err)
	}
	return nil
}

// Clear removes the stored preference of userID.
func (r *RolePreferenceRepository) Clear(ctx context.Context, userID string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, rolePreferenceKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete role preference: %w", err)
	}
	return nil
}
