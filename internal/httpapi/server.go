// Package httpapi is the JSON surface clients poll for reminders and act on
// them through.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hray3182/taskreminder/internal/delivery"
	"github.com/hray3182/taskreminder/internal/models"
	"github.com/hray3182/taskreminder/internal/pushworker"
)

// Reminders is the delivery service as seen by the API.
type Reminders interface {
	DueNow(ctx context.Context, uc models.UserContext) ([]*models.Delivery, error)
	Upcoming(ctx context.Context, uc models.UserContext, window time.Duration) ([]*models.Delivery, error)
	Acknowledge(ctx context.Context, deliveryID string, uc models.UserContext) error
	Dismiss(ctx context.Context, deliveryID string, uc models.UserContext) error
	Snooze(ctx context.Context, deliveryID string, uc models.UserContext, snoozeMinutes int) (*models.Delivery, error)
}

// Server routes reminder requests. The user context comes from headers set
// by the authenticating proxy in front of it.
type Server struct {
	reminders      Reminders
	subs           pushworker.SubscriptionStore
	router         *gin.Engine
	upcomingWindow time.Duration

	Now func() time.Time
}

func NewServer(reminders Reminders, subs pushworker.SubscriptionStore, upcomingWindow time.Duration) *Server {
	if upcomingWindow <= 0 {
		upcomingWindow = delivery.DefaultUpcomingWindow
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	s := &Server{
		reminders:      reminders,
		subs:           subs,
		router:         router,
		upcomingWindow: upcomingWindow,
		Now:            time.Now,
	}

	router.GET("/health", s.handleHealth)

	api := router.Group("/api", requireUserContext)
	{
		api.GET("/reminders/due-now", s.handleDueNow)
		api.GET("/reminders/upcoming", s.handleUpcoming)
		api.POST("/reminders/acknowledge", s.handleAcknowledge)
		api.POST("/reminders/dismiss", s.handleDismiss)
		api.POST("/reminders/snooze", s.handleSnooze)

		api.GET("/push/subscriptions", s.handleListSubscriptions)
		api.POST("/push/subscriptions", s.handleCreateSubscription)
	}

	return s
}

// Handler exposes the router for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}
