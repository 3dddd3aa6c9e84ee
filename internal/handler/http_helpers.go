package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/eventify/internal/db"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, validationMessage(err, message))
		return false
	}
	return true
}

// validationMessage turns binding tag failures into a readable message and
// falls back to fallback for malformed bodies.
func validationMessage(err error, fallback string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fallback
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	}
	return fallback
}

// parseCategoryParam reads the :category path segment.
func parseCategoryParam(c *gin.Context) (string, bool) {
	category := strings.ToLower(strings.TrimSpace(c.Param("category")))
	if !db.IsMediaCategory(category) {
		respondError(c, http.StatusNotFound, "unknown media category")
		return "", false
	}
	return category, true
}

func parseBoolQuery(c *gin.Context, key string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && value
}
