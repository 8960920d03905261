package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hray3182/taskreminder/internal/models"
)

const (
	HeaderUserID         = "X-User-ID"
	HeaderOrganizationID = "X-Organization-ID"
	HeaderPersonID       = "X-Person-ID"

	userContextKey = "userContext"
)

func requireUserContext(c *gin.Context) {
	uc := models.UserContext{
		UserID:         strings.TrimSpace(c.GetHeader(HeaderUserID)),
		OrganizationID: strings.TrimSpace(c.GetHeader(HeaderOrganizationID)),
		PersonID:       strings.TrimSpace(c.GetHeader(HeaderPersonID)),
	}
	if err := uc.Validate(); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "missing user context",
		})
		return
	}
	c.Set(userContextKey, uc)
	c.Next()
}

func userContext(c *gin.Context) models.UserContext {
	return c.MustGet(userContextKey).(models.UserContext)
}
