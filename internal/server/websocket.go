package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lewisedginton/ward_desk/internal/assistant"
	"github.com/lewisedginton/ward_desk/pkg/logger"
	"github.com/lewisedginton/ward_desk/pkg/prefixed_uuid"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10

	wsSessionPrefix = "ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// wsInbound is one client frame.
type wsInbound struct {
	Message     string `json:"message"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Language    string `json:"language,omitempty"`
}

// wsFrame is one server frame: "session" once after the upgrade, then
// "reply" or "error" per inbound message.
type wsFrame struct {
	Type   string           `json:"type"`
	UserID string           `json:"user_id"`
	Reply  *assistant.Reply `json:"reply,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// handleChatSocket runs a chat session over a websocket. The session id comes
// from the user_id query parameter or is minted per connection.
func (a *API) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	log := a.log(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("Websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = prefixed_uuid.New(wsSessionPrefix).String()
	}
	log = log.WithFields(logger.SessionIDField(userID))

	limit := a.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	conn.SetReadLimit(limit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go pingLoop(ctx, conn)

	if err := writeFrame(conn, wsFrame{Type: "session", UserID: userID}); err != nil {
		return
	}
	log.Debug("Websocket chat opened")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("Websocket closed unexpectedly", logger.ErrorField(err))
			}
			return
		}

		var in wsInbound
		if err := json.Unmarshal(data, &in); err != nil {
			if writeFrame(conn, wsFrame{Type: "error", UserID: userID, Error: "invalid JSON frame"}) != nil {
				return
			}
			continue
		}

		frame := wsFrame{Type: "reply", UserID: userID}
		reply, err := a.Chat.Handle(ctx, assistant.Turn{
			UserID:      userID,
			Message:     in.Message,
			PhoneNumber: in.PhoneNumber,
			Language:    in.Language,
		})
		if err != nil {
			frame = wsFrame{Type: "error", UserID: userID, Error: err.Error()}
		} else {
			frame.Reply = &reply
		}
		if err := writeFrame(conn, frame); err != nil {
			log.Debug("Websocket write failed", logger.ErrorField(err))
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, f wsFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(f)
}

// pingLoop keeps the read deadline alive. WriteControl is safe alongside the
// reader's writes.
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
