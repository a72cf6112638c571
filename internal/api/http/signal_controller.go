package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/codepair/peercall/internal/domain"
	"github.com/codepair/peercall/internal/service"
	"github.com/codepair/peercall/lib/logger/sl"
)

// ConnectionIDHeader carries the server-assigned connection id back to the
// client in the websocket handshake response.
const ConnectionIDHeader = "X-Connection-Id"

type SignalController struct {
	router   service.SignalingInteractor
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewSignalController(router service.SignalingInteractor, log *slog.Logger) *SignalController {
	if log == nil {
		log = slog.Default()
	}
	return &SignalController{
		router: router,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Connect upgrades the request and runs the connection's read loop until the
// socket drops. All outbound traffic goes through the participant's event
// channel so the socket has a single writer.
func (c *SignalController) Connect(ctx *gin.Context) {
	participant := domain.NewParticipant()

	header := http.Header{}
	header.Set(ConnectionIDHeader, participant.ID)

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, header)
	if err != nil {
		c.log.Error("failed to upgrade connection", sl.Err(err))
		return
	}
	participant.Socket = conn

	c.log.Info("connection established", slog.String("connection_id", participant.ID))

	go forwardParticipantEvents(participant)

	for {
		var event domain.Event
		if err := conn.ReadJSON(&event); err != nil {
			c.log.Info("connection closed",
				slog.String("connection_id", participant.ID),
				sl.Err(err),
			)
			_ = c.router.Disconnect(context.Background(), participant)
			participant.CloseEvents()
			conn.Close()
			return
		}

		if err := c.router.HandleEvent(context.Background(), participant, event); err != nil {
			c.log.Debug("event handling failed",
				slog.String("connection_id", participant.ID),
				slog.String("type", event.Type),
				sl.Err(err),
			)
		}
	}
}

func forwardParticipantEvents(p *domain.Participant) {
	for event := range p.Events {
		if p.Socket == nil {
			return
		}
		if err := p.Socket.WriteJSON(event); err != nil {
			return
		}
	}
}
