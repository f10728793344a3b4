package middleware

import (
	"errors"

	"github.com/caldera-store/caldera/pkg/auth"
	"github.com/caldera-store/caldera/pkg/authz"
	"github.com/caldera-store/caldera/pkg/repositories"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const principalKey = "principal"

// ApiKeyHeader carries a raw API-key secret as an alternative to the
// session cookie.
const ApiKeyHeader = "X-Api-Key"

// ResolvePrincipal attaches the request's principal to the context: an
// API key when the header is present, else the session's user. Anonymous
// requests pass through with no principal; the handlers' assert calls
// decide what that means.
func ResolvePrincipal(users repositories.IUsersRepository, apiKeys repositories.IApiKeysRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rawKey := c.GetHeader(ApiKeyHeader); rawKey != "" {
			apiKey, err := apiKeys.GetByKey(rawKey)
			if err == nil {
				c.Set(principalKey, authz.APIKeyPrincipal{Key: *apiKey})
			} else if !errors.Is(err, repositories.ErrNotFound) {
				logrus.Error(err)
			}
			c.Next()
			return
		}

		session := sessions.Default(c)
		if userId := auth.SessionUser(session); userId != "" {
			user, err := users.GetByUserId(userId)
			if err == nil {
				c.Set(principalKey, authz.SessionPrincipal{UserID: user.ID})
			} else if !errors.Is(err, repositories.ErrNotFound) {
				logrus.Error(err)
			}
		}

		c.Next()
	}
}

// GetPrincipal returns the resolved principal, or nil for anonymous.
func GetPrincipal(c *gin.Context) authz.Principal {
	value, exists := c.Get(principalKey)
	if !exists {
		return nil
	}
	principal, ok := value.(authz.Principal)
	if !ok {
		return nil
	}

	return principal
}
