package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medveille/veille-backend/session"
)

// IdentityKey is where the JWT middleware stores the parsed identity in
// the gin context.
const IdentityKey = "identity"

// JWT fetches the bearer token from the Authorization header (or the
// legacy "token" header), validates it and stores the caller's identity
// under IdentityKey plus the user id under "sub". Requests without a
// valid token are rejected with 401.
func JWT(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token not provided"})
			return
		}
		identity, _, err := session.ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(IdentityKey, identity)
		c.Set("sub", identity.UserID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.GetHeader("token")
}

// GetIdentity returns the identity the JWT middleware stored, if any.
func GetIdentity(c *gin.Context) (session.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return session.Identity{}, false
	}
	identity, ok := v.(session.Identity)
	return identity, ok
}
