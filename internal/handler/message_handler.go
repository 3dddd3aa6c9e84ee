package handler

import (
	"errors"
	"net/http"

	"github.com/eventify/internal/service"
	"github.com/gin-gonic/gin"
)

type contactPayload struct {
	Name    string `json:"name" binding:"required,max=120"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required,max=5000"`
}

// SubmitContact stores a message from the public contact form.
func (a *API) SubmitContact(c *gin.Context) {
	var payload contactPayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	msg, err := a.messages.Submit(c.Request.Context(), service.MessageInput{
		Name:  payload.Name,
		Email: payload.Email,
		Text:  payload.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMessageFieldsMissing):
			respondError(c, http.StatusBadRequest, "please fill in all fields")
		case errors.Is(err, service.ErrMessageEmailInvalid):
			respondError(c, http.StatusBadRequest, "email must be a valid email address")
		default:
			a.log.Errorw("save contact message failed", "error", err)
			respondError(c, http.StatusInternalServerError, "failed to send message")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "message sent", "id": msg.ID})
}

// ListMessages returns the inbox, newest first.
func (a *API) ListMessages(c *gin.Context) {
	messages, err := a.messages.List(c.Request.Context())
	if err != nil {
		a.log.Errorw("list messages failed", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": messages})
}

// DeleteMessage removes one message after confirmation.
func (a *API) DeleteMessage(c *gin.Context) {
	if !parseBoolQuery(c, "confirm") {
		respondError(c, http.StatusPreconditionRequired, "deletion must be confirmed")
		return
	}

	if err := a.messages.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			respondError(c, http.StatusNotFound, "message not found")
			return
		}
		a.log.Errorw("delete message failed", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to delete message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "message deleted"})
}
