package handler

import (
	"errors"
	"net/http"

	"github.com/eventify/internal/db"
	"github.com/eventify/internal/service"
	"github.com/gin-gonic/gin"
)

type eventPayload struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"required"`
	Date        string `json:"date" binding:"required"`
	Location    string `json:"location" binding:"required,max=255"`
}

// dashboardOwner resolves :uid and checks it belongs to the session.
func (a *API) dashboardOwner(c *gin.Context) (*db.User, bool) {
	user, err := a.users.Get(c.Request.Context(), c.Param("uid"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return nil, false
		}
		respondError(c, http.StatusInternalServerError, "failed to load user")
		return nil, false
	}
	if user.ID != c.GetString(userContextKey) {
		respondError(c, http.StatusForbidden, "you can only access your own dashboard")
		return nil, false
	}
	return user, true
}

// Dashboard returns the owner's profile.
func (a *API) Dashboard(c *gin.Context) {
	user, ok := a.dashboardOwner(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ListEvents returns the owner's bookings, newest first.
func (a *API) ListEvents(c *gin.Context) {
	user, ok := a.dashboardOwner(c)
	if !ok {
		return
	}

	events, err := a.events.List(c.Request.Context(), user.ID)
	if err != nil {
		a.log.Errorw("list events failed", "uid", user.ID, "error", err)
		respondError(c, http.StatusInternalServerError, "failed to load events")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": events})
}

// BookEvent stores a booking for the owner.
func (a *API) BookEvent(c *gin.Context) {
	user, ok := a.dashboardOwner(c)
	if !ok {
		return
	}

	var payload eventPayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	event, err := a.events.Book(c.Request.Context(), user.ID, service.EventInput{
		Title:       payload.Title,
		Description: payload.Description,
		Date:        payload.Date,
		Location:    payload.Location,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventFieldsMissing):
			respondError(c, http.StatusBadRequest, "please fill in all fields")
		case errors.Is(err, service.ErrEventDateInvalid):
			respondError(c, http.StatusBadRequest, "date must use the YYYY-MM-DD format")
		default:
			a.log.Errorw("book event failed", "uid", user.ID, "error", err)
			respondError(c, http.StatusInternalServerError, "failed to book event")
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "event booked", "item": event})
}
