package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/elongilad/scav-hunt-engine/internal/api/handler/v1/request"
	"github.com/elongilad/scav-hunt-engine/internal/api/handler/v1/response"
	"github.com/elongilad/scav-hunt-engine/internal/domain"
	"github.com/elongilad/scav-hunt-engine/internal/service"
)

type NotificationService interface {
	PublishNotification(ctx context.Context, spec service.NotificationSpec) (domain.Notification, error)
	BroadcastEmergency(ctx context.Context, title, body string) (domain.Notification, error)
	MarkNotificationRead(notificationID, recipientID string) error
	DeleteNotification(id string) error
	GetUnread(teamID string) ([]domain.Notification, error)
}

// AuditTrail reads back the durable record of published notifications.
type AuditTrail interface {
	FindAll(ctx context.Context, limit, offset int) ([]domain.Notification, error)
}

type NotificationHandler struct {
	svc   NotificationService
	audit AuditTrail
}

func NewNotificationHandler(svc NotificationService, audit AuditTrail) *NotificationHandler {
	return &NotificationHandler{
		svc:   svc,
		audit: audit,
	}
}

// HandlePublish godoc
// @Summary      Publish a notification
// @Description  Broadcast (no targets) or targeted notification, announcement or message
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        input  body      request.PublishNotificationRequest  true  "notification"
// @Success      201    {object}  domain.Notification
// @Failure      400    {object}  response.Err
// @Failure      429    {object}  response.Err
// @Router       /notifications [post]
func (h *NotificationHandler) HandlePublish(ctx *gin.Context) {
	var input request.PublishNotificationRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	spec := service.NotificationSpec{
		Kind:           domain.NotificationKind(input.Kind),
		Classification: domain.Classification(input.Classification),
		Title:          input.Title,
		Body:           input.Body,
		Targets:        input.Targets,
		Pinned:         input.Pinned,
		Urgent:         input.Urgent,
		ExpiresAt:      input.ExpiresAt,
	}

	n, err := h.svc.PublishNotification(ctx.Request.Context(), spec)
	if err != nil {
		renderServiceErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, n)
}

// HandleEmergency godoc
// @Summary      Broadcast an emergency announcement
// @Description  Pinned urgent announcement to every team, bypassing rate limits
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        input  body      request.EmergencyBroadcastRequest  true  "emergency details"
// @Success      201    {object}  domain.Notification
// @Failure      400    {object}  response.Err
// @Router       /notifications/emergency [post]
func (h *NotificationHandler) HandleEmergency(ctx *gin.Context) {
	var input request.EmergencyBroadcastRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	n, err := h.svc.BroadcastEmergency(ctx.Request.Context(), input.Title, input.Body)
	if err != nil {
		renderServiceErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, n)
}

// HandleMarkRead godoc
// @Summary      Mark a notification as read for a team
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        notificationID  path      string                  true  "Notification ID"
// @Param        input           body      request.MarkReadRequest true  "reader"
// @Success      204             {string}  string                  "No Content"
// @Failure      400             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Router       /notifications/{notificationID}/read [post]
func (h *NotificationHandler) HandleMarkRead(ctx *gin.Context) {
	var input request.MarkReadRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := h.svc.MarkNotificationRead(ctx.Param("notificationID"), input.TeamID); err != nil {
		renderServiceErr(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleListUnread godoc
// @Summary      List a team's unread notifications
// @Description  Includes broadcasts published before the team registered
// @Tags         notifications
// @Produce      json
// @Param        team  query     string  true  "Team ID"
// @Success      200   {array}   domain.Notification
// @Failure      400   {object}  response.Err
// @Failure      404   {object}  response.Err
// @Router       /notifications [get]
func (h *NotificationHandler) HandleListUnread(ctx *gin.Context) {
	teamID := ctx.Query("team")
	if teamID == "" {
		response.RenderErr(ctx, &response.Err{
			StatusCode: http.StatusBadRequest,
			ErrorMsg:   "query parameter 'team' is required",
		})
		return
	}

	unread, err := h.svc.GetUnread(teamID)
	if err != nil {
		renderServiceErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, unread)
}

// HandleHistory godoc
// @Summary      List the notification audit trail
// @Description  Every published notification, newest first, read from durable storage
// @Tags         notifications
// @Produce      json
// @Param        limit   query     int  false  "Page size (default 50, max 200)"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {array}   domain.Notification
// @Failure      400     {object}  response.Err
// @Router       /notifications/history [get]
func (h *NotificationHandler) HandleHistory(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		response.RenderErr(ctx, response.ErrBadRequest(errors.New("limit must be between 1 and 200")))
		return
	}
	offset, err := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		response.RenderErr(ctx, response.ErrBadRequest(errors.New("offset must not be negative")))
		return
	}

	history, err := h.audit.FindAll(ctx.Request.Context(), limit, offset)
	if err != nil {
		renderServiceErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, history)
}

// HandleDelete godoc
// @Summary      Delete a notification
// @Description  Only plain notifications can be deleted, never announcements or messages
// @Tags         notifications
// @Produce      json
// @Param        notificationID  path      string  true  "Notification ID"
// @Success      204             {string}  string  "No Content"
// @Failure      404             {object}  response.Err
// @Failure      409             {object}  response.Err
// @Router       /notifications/{notificationID} [delete]
func (h *NotificationHandler) HandleDelete(ctx *gin.Context) {
	if err := h.svc.DeleteNotification(ctx.Param("notificationID")); err != nil {
		renderServiceErr(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
