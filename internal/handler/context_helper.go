package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ctos-api/internal/middleware"
	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/service"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actorFromContext builds the service actor of an authenticated request.
func actorFromContext(c *gin.Context) (service.Actor, error) {
	actor, err := service.ActorFromClaims(claimsFromContext(c))
	if err != nil {
		return service.Actor{}, err
	}
	actor.IP = c.ClientIP()
	actor.UserAgent = c.GetHeader("User-Agent")
	return actor, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrInvalidPagination, fmt.Sprintf("%s must be an integer", key))
	}
	return value, nil
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidFilterValue, fmt.Sprintf("%s must be true or false", key))
	}
	return &value, nil
}

func withMeta(c *gin.Context, extra map[string]interface{}) map[string]interface{} {
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	for k, v := range extra {
		meta[k] = v
	}
	return meta
}
