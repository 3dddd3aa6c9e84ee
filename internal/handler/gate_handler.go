package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const gateSessionKey = "gate_unlocked"

type unlockPayload struct {
	Password string `json:"password" binding:"required"`
}

const gateUnconfiguredMessage = "admin gate is not configured"

// Unlock checks the route password and marks the session as unlocked.
// It is an access hurdle, not a security boundary.
func (a *API) Unlock(c *gin.Context) {
	if !a.GateConfigured() {
		respondError(c, http.StatusServiceUnavailable, gateUnconfiguredMessage)
		return
	}

	var payload unlockPayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	if subtle.ConstantTimeCompare([]byte(payload.Password), []byte(a.gatePassword)) != 1 {
		respondError(c, http.StatusUnauthorized, "incorrect password")
		return
	}

	session := sessions.Default(c)
	session.Set(gateSessionKey, true)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unlocked", "unlocked": true})
}

// Lock clears the gate mark.
func (a *API) Lock(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(gateSessionKey)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "locked", "unlocked": false})
}

// GateRequired guards admin routes. Without a configured password every
// request is refused.
func (a *API) GateRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.GateConfigured() {
			respondError(c, http.StatusServiceUnavailable, gateUnconfiguredMessage)
			c.Abort()
			return
		}
		session := sessions.Default(c)
		if unlocked, _ := session.Get(gateSessionKey).(bool); !unlocked {
			respondError(c, http.StatusUnauthorized, "password required")
			c.Abort()
			return
		}
		c.Next()
	}
}
