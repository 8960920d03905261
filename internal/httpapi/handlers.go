package httpapi

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hray3182/taskreminder/internal/delivery"
	"github.com/hray3182/taskreminder/internal/models"
)

// reminderItem is the list shape clients render.
type reminderItem struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	TaskTitle string    `json:"taskTitle"`
	TaskDueAt time.Time `json:"taskDueAt"`
	RemindAt  time.Time `json:"remindAt"`
}

func toItem(d *models.Delivery) reminderItem {
	return reminderItem{
		ID:        d.ID,
		TaskID:    d.TaskID,
		TaskTitle: d.TaskTitle,
		TaskDueAt: d.TaskDueAt,
		RemindAt:  d.RemindAt,
	}
}

func toItems(deliveries []*models.Delivery) []reminderItem {
	items := make([]reminderItem, 0, len(deliveries))
	for _, d := range deliveries {
		items = append(items, toItem(d))
	}
	return items
}

type deliveryRequest struct {
	DeliveryID string `json:"deliveryId" binding:"required"`
}

type snoozeRequest struct {
	DeliveryID    string `json:"deliveryId" binding:"required"`
	SnoozeMinutes int    `json:"snoozeMinutes"`
}

type subscriptionRequest struct {
	Channel  string `json:"channel" binding:"required"`
	Endpoint string `json:"endpoint" binding:"required"`
}

var supportedChannels = map[string]bool{
	models.ChannelTelegram: true,
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleDueNow(c *gin.Context) {
	deliveries, err := s.reminders.DueNow(c.Request.Context(), userContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItems(deliveries))
}

func (s *Server) handleUpcoming(c *gin.Context) {
	window := s.upcomingWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "window must be a positive duration such as 24h",
			})
			return
		}
		window = parsed
	}

	deliveries, err := s.reminders.Upcoming(c.Request.Context(), userContext(c), window)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItems(deliveries))
}

func (s *Server) handleAcknowledge(c *gin.Context) {
	var req deliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "deliveryId is required")
		return
	}
	if err := s.reminders.Acknowledge(c.Request.Context(), req.DeliveryID, userContext(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDismiss(c *gin.Context) {
	var req deliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "deliveryId is required")
		return
	}
	if err := s.reminders.Dismiss(c.Request.Context(), req.DeliveryID, userContext(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleSnooze(c *gin.Context) {
	var req snoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "deliveryId and snoozeMinutes are required")
		return
	}
	if req.SnoozeMinutes <= 0 {
		badRequest(c, "snoozeMinutes must be positive")
		return
	}

	next, err := s.reminders.Snooze(c.Request.Context(), req.DeliveryID, userContext(c), req.SnoozeMinutes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"reminder": toItem(next),
	})
}

func (s *Server) handleListSubscriptions(c *gin.Context) {
	subs, err := s.subs.ListSubscriptions(c.Request.Context(), userContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if subs == nil {
		subs = []*models.Subscription{}
	}
	c.JSON(http.StatusOK, subs)
}

func (s *Server) handleCreateSubscription(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "channel and endpoint are required")
		return
	}
	if !supportedChannels[req.Channel] {
		badRequest(c, "unsupported channel "+req.Channel)
		return
	}

	uc := userContext(c)
	sub := &models.Subscription{
		ID:             uuid.New().String(),
		UserID:         uc.UserID,
		OrganizationID: uc.OrganizationID,
		PersonID:       uc.PersonID,
		Channel:        req.Channel,
		Endpoint:       req.Endpoint,
		CreatedAt:      s.Now(),
	}
	if err := s.subs.SaveSubscription(c.Request.Context(), sub); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, delivery.ErrNotFound):
		status, msg = http.StatusNotFound, "reminder not found"
	case errors.Is(err, delivery.ErrInvalidState):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, delivery.ErrInvalidArgument):
		status, msg = http.StatusBadRequest, err.Error()
	default:
		log.Printf("Failed to handle %s %s: %v", c.Request.Method, c.FullPath(), err)
	}

	c.JSON(status, gin.H{"success": false, "error": msg})
}
