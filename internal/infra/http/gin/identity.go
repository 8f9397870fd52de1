package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"hotelier/internal/app/reservations"
)

const actorContextKey = "hotelier.actor"

// IdentityMiddleware resolves the caller from the identity headers set by the
// upstream auth gateway. Requests without headers pass through anonymous; the
// route guards decide what is required.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := reservations.Actor{
			GuestID: strings.TrimSpace(c.GetHeader("X-Guest-ID")),
			StaffID: strings.TrimSpace(c.GetHeader("X-Staff-ID")),
			Role:    strings.TrimSpace(c.GetHeader("X-Role")),
		}
		if actor.GuestID != "" || actor.StaffID != "" {
			c.Set(actorContextKey, actor)
		}
		c.Next()
	}
}

func currentActor(c *gin.Context) (reservations.Actor, bool) {
	val, exists := c.Get(actorContextKey)
	if !exists {
		return reservations.Actor{}, false
	}
	actor, ok := val.(reservations.Actor)
	return actor, ok
}

func requireIdentity(c *gin.Context) (reservations.Actor, bool) {
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "identity headers required"})
		return reservations.Actor{}, false
	}
	return actor, true
}

func requireStaff(c *gin.Context) (reservations.Actor, bool) {
	actor, ok := requireIdentity(c)
	if !ok {
		return reservations.Actor{}, false
	}
	if !actor.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "staff role required"})
		return reservations.Actor{}, false
	}
	return actor, true
}
