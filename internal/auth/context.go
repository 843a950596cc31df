package auth

import "github.com/gin-gonic/gin"

const identityKey = "authIdentity"

// Identity is the resolved (actor, tenant) pair every core operation receives.
// Repositories filter all reads and writes by TenantID; it is never inferred
// from ambient state.
type Identity struct {
	UserID   string
	TenantID string
	Email    string
}

// GetIdentity returns the authenticated identity or the zero value.
func GetIdentity(c *gin.Context) Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Identity{}
}
