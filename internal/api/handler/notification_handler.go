package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/mediajobs/internal/api/dto"
	"github.com/cuongbtq/mediajobs/internal/domain"
	"github.com/gin-gonic/gin"
)

// ListNotifications handles GET /api/v1/consumers/:consumer_id/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	consumerID := c.Param("consumer_id")

	var req dto.ListNotificationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid query parameters")
		return
	}

	cursor, err := DecodeNotificationCursor(req.Cursor)
	if err != nil {
		h.logger.Warn("Invalid cursor", slog.String("error", err.Error()))
		badRequest(c, "Invalid cursor")
		return
	}

	limit := h.paging.clamp(req.Limit)
	notes, err := h.notifications.List(c.Request.Context(), consumerID, domain.Page{
		Limit:  limit + 1,
		Cursor: cursor,
	})
	if err != nil {
		abortWithError(c, h.logger, err, "Failed to list notifications")
		return
	}

	hasMore := len(notes) > limit
	if hasMore {
		notes = notes[:limit]
	}

	resp := dto.ListNotificationsResponse{
		Notifications: make([]dto.NotificationDTO, len(notes)),
	}
	for i, n := range notes {
		resp.Notifications[i] = dto.NotificationDTO{
			ID:        n.ID,
			JobID:     n.JobID,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.Format(time.RFC3339Nano),
		}
	}
	if hasMore {
		last := notes[len(notes)-1]
		resp.NextCursor = EncodeNotificationCursor(&domain.NotificationCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// UnreadCount handles GET /api/v1/consumers/:consumer_id/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context(), c.Param("consumer_id"))
	if err != nil {
		abortWithError(c, h.logger, err, "Failed to count notifications")
		return
	}
	c.JSON(http.StatusOK, dto.UnreadCountResponse{UnreadCount: count})
}

// MarkRead handles POST /api/v1/consumers/:consumer_id/notifications/:notification_id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	consumerID := c.Param("consumer_id")
	notificationID := c.Param("notification_id")

	if err := h.notifications.MarkRead(c.Request.Context(), notificationID, consumerID); err != nil {
		abortWithError(c, h.logger, err, "Failed to mark notification read")
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead handles POST /api/v1/consumers/:consumer_id/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	consumerID := c.Param("consumer_id")

	marked, err := h.notifications.MarkAllRead(c.Request.Context(), consumerID)
	if err != nil {
		abortWithError(c, h.logger, err, "Failed to mark notifications read")
		return
	}

	h.logger.Info("Notifications marked read",
		slog.String("consumer_id", consumerID),
		slog.Int("marked", marked),
	)
	c.JSON(http.StatusOK, dto.MarkAllReadResponse{Marked: marked})
}
