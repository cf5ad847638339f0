package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "readinglist/backend/internal/errors"
)

const UserIDContextKey = "userID"

// TokenParser resolves a bearer token to the user that owns the workspace.
type TokenParser interface {
	ParseToken(token string) (string, *apperrors.APIError)
}

func Auth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, apiErr := bearerToken(c.GetHeader("Authorization"))
		if apiErr != nil {
			abortWithError(c, apiErr)
			return
		}

		userID, apiErr := tokens.ParseToken(token)
		if apiErr != nil {
			abortWithError(c, apiErr)
			return
		}

		c.Set(UserIDContextKey, userID)
		c.Next()
	}
}

func bearerToken(header string) (string, *apperrors.APIError) {
	if header == "" {
		return "", apperrors.Unauthorized("missing authorization header")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", apperrors.Unauthorized("invalid authorization format")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.Unauthorized("invalid authorization format")
	}
	return token, nil
}

func UserID(c *gin.Context) string {
	return c.GetString(UserIDContextKey)
}

func abortWithError(c *gin.Context, apiErr *apperrors.APIError) {
	body := gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.Details != nil {
		body["details"] = apiErr.Details
	}
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": body})
}
