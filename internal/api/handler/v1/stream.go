package v1

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/elongilad/scav-hunt-engine/internal/api/handler/v1/response"
	"github.com/elongilad/scav-hunt-engine/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust this for production!
	},
}

type StreamService interface {
	AttachStream(teamID string) (<-chan domain.Notification, error)
	GetUnread(teamID string) ([]domain.Notification, error)
	MarkNotificationRead(notificationID, recipientID string) error
}

type StreamHandler struct {
	svc StreamService
	log *zap.Logger
}

func NewStreamHandler(svc StreamService) *StreamHandler {
	return &StreamHandler{
		svc: svc,
		log: zap.L(),
	}
}

// streamInbound is what a connected team client may send back: read receipts.
type streamInbound struct {
	NotificationID string `json:"notification_id"`
}

// HandleStream godoc
// @Summary      Stream notifications over WebSocket
// @Description  Delivers the team's unread backlog, then live notifications. The client may send {"notification_id": "..."} frames as read receipts.
// @Tags         notifications
// @Produce      json
// @Param        team  query     string  true  "Team ID"
// @Success      101   {string}  string  "Switching Protocols to WebSocket"
// @Failure      400   {object}  response.Err
// @Failure      404   {object}  response.Err
// @Router       /stream [get]
func (h *StreamHandler) HandleStream(ctx *gin.Context) {
	teamID := ctx.Query("team")
	if teamID == "" {
		response.RenderErr(ctx, &response.Err{
			StatusCode: http.StatusBadRequest,
			ErrorMsg:   "query parameter 'team' is required",
		})
		return
	}

	// Validate the team before upgrading so the client gets a proper 404.
	backlog, err := h.svc.GetUnread(teamID)
	if err != nil {
		renderServiceErr(ctx, err)
		return
	}

	live, err := h.svc.AttachStream(teamID)
	if err != nil {
		renderServiceErr(ctx, err)
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	done := make(chan struct{})

	go h.writePump(conn, backlog, live, done)
	go h.readPump(conn, teamID, done)
}

func (h *StreamHandler) writePump(conn *websocket.Conn, backlog []domain.Notification, live <-chan domain.Notification, done <-chan struct{}) {
	defer conn.Close()

	for _, n := range backlog {
		if err := conn.WriteJSON(n); err != nil {
			return
		}
	}

	for {
		select {
		case n, ok := <-live:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *StreamHandler) readPump(conn *websocket.Conn, teamID string, done chan<- struct{}) {
	defer func() {
		close(done)
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read failed", zap.String("team_id", teamID), zap.Error(err))
			}
			break
		}

		var inbound streamInbound
		if err := json.Unmarshal(message, &inbound); err != nil || inbound.NotificationID == "" {
			continue
		}

		if err := h.svc.MarkNotificationRead(inbound.NotificationID, teamID); err != nil {
			h.log.Warn("read receipt rejected",
				zap.String("team_id", teamID),
				zap.String("notification_id", inbound.NotificationID),
				zap.Error(err))
		}
	}
}
