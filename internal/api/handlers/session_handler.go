package handlers

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/aeromx/backend/internal/advisory"
	"github.com/aeromx/backend/internal/bus"
	"github.com/aeromx/backend/internal/session"
	"github.com/aeromx/backend/internal/storage/models"
	"github.com/aeromx/backend/pkg/logger"
)

// SessionHandler binds one ConversationSession to each websocket
// connection: the connection is the panel lifetime. Closing the socket
// cancels the session context, so a reply pending at close is
// discarded rather than applied.
type SessionHandler struct {
	svc        *advisory.Service
	events     *bus.Bus
	replyDelay time.Duration
}

func NewSessionHandler(svc *advisory.Service, events *bus.Bus, replyDelay time.Duration) *SessionHandler {
	return &SessionHandler{
		svc:        svc,
		events:     events,
		replyDelay: replyDelay,
	}
}

func (h *SessionHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("Advisory session opened")

	// The session reply goroutine, the bus handlers and this read loop
	// all write to the socket; gorilla conns allow one writer at a time.
	var writeMu sync.Mutex
	send := func(payload any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := c.WriteJSON(payload); err != nil {
			logger.Debug("Session write failed", zap.Error(err))
		}
	}

	sess := session.New(session.Config{
		Service:    h.svc,
		Events:     h.events,
		ReplyDelay: h.replyDelay,
		OnMessage: func(msg models.Message) {
			send(map[string]any{
				"type":    "message",
				"message": msg,
			})
		},
		OnOpenRequest: func(req bus.OpenSessionRequest) {
			send(map[string]any{
				"type":    "open",
				"query":   req.Query,
				"context": req.Context,
			})
		},
	})

	unsubscribe := h.events.Subscribe(bus.TopicPredictionsGenerated, func(payload any) {
		p, ok := payload.(bus.PredictionsPayload)
		if !ok {
			return
		}
		send(map[string]any{
			"type":   "predictions",
			"alerts": p.Alerts,
		})
	})

	defer func() {
		unsubscribe()
		sess.Close()
		c.Close()
		logger.Info("Advisory session closed")
	}()

	send(map[string]any{
		"type":     "history",
		"messages": sess.Messages(),
	})

	for {
		var msg struct {
			Type    string `json:"type"`
			Query   string `json:"query"`
			Context string `json:"context"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("Session read ended", zap.Error(err))
			break
		}

		switch msg.Type {
		case "submit":
			if !sess.Submit(msg.Query, msg.Context) {
				send(map[string]any{
					"type":   "rejected",
					"reason": "blank query or reply in flight",
				})
			}
		case "clear":
			if sess.Clear() {
				send(map[string]any{
					"type":     "history",
					"messages": sess.Messages(),
				})
			}
		}
	}
}
