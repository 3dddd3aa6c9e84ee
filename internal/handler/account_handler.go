package handler

import (
	"errors"
	"net/http"

	"github.com/eventify/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	userSessionKey = "uid"
	userContextKey = "__user_id"
)

type registerPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// accountErrorMessage maps account errors to messages shown on the forms.
func accountErrorMessage(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrEmailInUse):
		return http.StatusConflict, "This email is already in use. Try logging in instead."
	case errors.Is(err, service.ErrEmailInvalid):
		return http.StatusBadRequest, "Please enter a valid email address."
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusUnauthorized, "No account found with this email."
	case errors.Is(err, service.ErrWrongPassword):
		return http.StatusUnauthorized, "Incorrect password. Please try again."
	case errors.Is(err, service.ErrPasswordWeak):
		return http.StatusBadRequest, "Password should be at least 6 characters."
	case errors.Is(err, service.ErrPasswordMissing):
		return http.StatusBadRequest, "Please enter your password."
	case errors.Is(err, service.ErrAccountFieldsMissing):
		return http.StatusBadRequest, "Please fill in all required fields."
	}
	return http.StatusInternalServerError, "Something went wrong. Please try again later."
}

func (a *API) startUserSession(c *gin.Context, uid string) bool {
	session := sessions.Default(c)
	session.Set(userSessionKey, uid)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return false
	}
	return true
}

// Register creates an account and signs it in.
func (a *API) Register(c *gin.Context) {
	var payload registerPayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	user, err := a.users.Register(c.Request.Context(), service.RegisterInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		status, message := accountErrorMessage(err)
		if status == http.StatusInternalServerError {
			a.log.Errorw("register failed", "error", err)
		}
		respondError(c, status, message)
		return
	}

	if !a.startUserSession(c, user.ID) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "redirect": "/dashboard/" + user.ID})
}

// Login checks the credentials and stores the user in the session.
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	user, err := a.users.Authenticate(c.Request.Context(), payload.Email, payload.Password)
	if err != nil {
		status, message := accountErrorMessage(err)
		if status == http.StatusInternalServerError {
			a.log.Errorw("login failed", "error", err)
		}
		respondError(c, status, message)
		return
	}

	if !a.startUserSession(c, user.ID) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "redirect": "/dashboard/" + user.ID})
}

// Logout clears the user session.
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(userSessionKey)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// Me returns the signed-in user.
func (a *API) Me(c *gin.Context) {
	user, err := a.users.Get(c.Request.Context(), c.GetString(userContextKey))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusUnauthorized, "please sign in")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to load account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// AuthRequired rejects requests without a signed-in user.
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		uid, _ := session.Get(userSessionKey).(string)
		if uid == "" {
			respondError(c, http.StatusUnauthorized, "please sign in")
			c.Abort()
			return
		}
		c.Set(userContextKey, uid)
		c.Next()
	}
}
