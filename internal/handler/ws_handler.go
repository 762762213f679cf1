package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gradebox/quizdesk-backend/internal/attempt"
	"github.com/gradebox/quizdesk-backend/internal/middleware"
	ws "github.com/gradebox/quizdesk-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams attempt countdown ticks and accepts answer events over
// a WebSocket, mirroring the HTTP attempt endpoints for clients that keep
// a live connection open during the quiz.
type WSHandler struct {
	manager  *attempt.Manager
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(manager *attempt.Manager, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		manager:  manager,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/quizzes/:quiz_id/stream
// Upgrades to WebSocket. The server pushes one tick event per second while
// the attempt is active; the client sends set_answer, lock, and submit
// actions on the same connection.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quiz ID"})
		return
	}

	a, found := h.manager.Get(quizID.String(), claims.UserID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no attempt in progress"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(rawConn)
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", claims.UserID).
		Str("quiz_id", quizID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	done := make(chan struct{})
	defer close(done)
	go h.pushTicks(conn, a, done)

	for {
		var envelope ws.RequestEnvelope
		raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			conn.WriteError("malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionSetAnswer:
			h.handleSetAnswer(conn, a, raw)
		case ws.ActionLock:
			h.handleLock(conn, a, raw)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, a)
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(envelope.Action))
		}
	}
}

// pushTicks streams the remaining time once per second until the attempt
// leaves the Active state or the connection goes away.
func (h *WSHandler) pushTicks(conn *ws.Conn, a *attempt.Attempt, done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap := a.Snapshot()
			if err := conn.WriteTyped(ws.TickResponse{
				Event:    ws.EventTick,
				TimeLeft: snap.TimeLeft,
				State:    string(snap.State),
			}); err != nil {
				return
			}
			if snap.State != attempt.StateActive {
				return
			}
		}
	}
}

func (h *WSHandler) handleSetAnswer(conn *ws.Conn, a *attempt.Attempt, raw []byte) {
	var msg ws.SetAnswerRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Index < 1 {
		conn.WriteError("index and ans are required")
		return
	}

	if err := a.SetAnswer(context.Background(), msg.Index-1, msg.Answer); err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.SuccessResponse{Event: ws.EventSuccess, Status: "saved"})
}

func (h *WSHandler) handleLock(conn *ws.Conn, a *attempt.Attempt, raw []byte) {
	var msg ws.LockRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Index < 1 {
		conn.WriteError("index is required")
		return
	}

	if err := a.LockAnswer(msg.Index - 1); err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.SuccessResponse{Event: ws.EventSuccess, Status: "locked"})
}

func (h *WSHandler) handleSubmit(conn *ws.Conn, wsLog zerolog.Logger, a *attempt.Attempt) {
	result, err := a.Submit(context.Background())
	if err != nil {
		wsLog.Warn().Err(err).Msg("Submit over WebSocket failed")
		conn.WriteError(err.Error())
		return
	}

	wsLog.Info().
		Float64("obtained_marks", result.ObtainedMarks).
		Msg("Attempt submitted and graded")

	conn.WriteTyped(ws.GradedResponse{
		Event:         ws.EventGraded,
		Status:        "completed",
		ObtainedMarks: result.ObtainedMarks,
		TotalMarks:    result.TotalMarks,
	})
}

