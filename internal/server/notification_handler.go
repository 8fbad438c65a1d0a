package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "orderflow/internal/common/errors"
	"orderflow/internal/models"
)

// listNotifications serves one inbox at a time, the raw single-scope query.
// Callers that need the merged view use the feed endpoint.
func (h *Handler) listNotifications(c *gin.Context) {
	userParam := c.Query("user_id")
	businessParam := c.Query("business_id")
	if (userParam == "") == (businessParam == "") {
		h.errs.Respond(c, apperrors.NewInvalidRequestError("exactly one of user_id or business_id is required"))
		return
	}

	scope, param := "user_id", userParam
	if businessParam != "" {
		scope, param = "business_id", businessParam
	}
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		h.errs.Respond(c, apperrors.NewInvalidRequestError(scope+" not parseable"))
		return
	}

	var records []models.NotificationRecord
	if scope == "user_id" {
		records, err = h.records.ListForUser(c.Request.Context(), id)
	} else {
		records, err = h.records.ListForBusiness(c.Request.Context(), id)
	}
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	if records == nil {
		records = []models.NotificationRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// loadFeed returns the merged, deduplicated feed for the requesting viewer.
func (h *Handler) loadFeed(c *gin.Context) {
	actor, ok := h.actorFromRequest(c)
	if !ok {
		return
	}

	feed, err := h.aggregator.Load(c.Request.Context(), actor.UserID)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	if feed.Records == nil {
		feed.Records = []models.NotificationRecord{}
	}
	c.JSON(http.StatusOK, feed)
}

// unreadCount is the cheap polling endpoint backed by the cached counters.
func (h *Handler) unreadCount(c *gin.Context) {
	actor, ok := h.actorFromRequest(c)
	if !ok {
		return
	}

	count, err := h.aggregator.UnreadCount(c.Request.Context(), actor.UserID)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

type markReadRequest struct {
	ID         *int64 `json:"id"`
	UserID     *int64 `json:"user_id"`
	BusinessID *int64 `json:"business_id"`
}

// markRead marks a single record, a personal inbox, or a business inbox
// read. All three forms are idempotent.
func (h *Handler) markRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.Respond(c, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	ctx := c.Request.Context()
	var err error
	switch {
	case req.ID != nil:
		err = h.records.MarkRead(ctx, *req.ID)
	case req.UserID != nil:
		err = h.records.MarkAllReadForUser(ctx, *req.UserID)
	case req.BusinessID != nil:
		err = h.records.MarkAllReadForBusiness(ctx, *req.BusinessID)
	default:
		err = apperrors.NewInvalidRequestError("one of id, user_id, or business_id is required")
	}
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
