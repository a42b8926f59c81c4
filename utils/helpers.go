package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetUserID retrieves the authenticated user ID from the Gin context.
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("userID"); exists {
		if idStr, ok := userID.(string); ok {
			return idStr
		}
	}
	return ""
}

// GetUserRole retrieves the authenticated user role from the Gin context.
func GetUserRole(c *gin.Context) string {
	if role, exists := c.Get("role"); exists {
		if roleStr, ok := role.(string); ok {
			return roleStr
		}
	}
	return ""
}

// UUID Generation
func GenerateUUID() string {
	return uuid.New().String()
}

// ParseObjectID converts a hex string into an ObjectID, returning a
// NOT_FOUND error for malformed ids so callers surface a uniform 404.
func ParseObjectID(id, resource string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, NewNotFoundError(resource)
	}
	return objectID, nil
}

// QueryInt parses an integer query parameter with bounds and default.
func QueryInt(c *gin.Context, key string, def, min, max int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= min && v <= max {
			return v
		}
	}
	return def
}
