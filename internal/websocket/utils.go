package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// WriteError sends an error frame to the peer, best effort.
func WriteError(conn *websocket.Conn, msg string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteJSON(ErrorMessage{Type: MessageTypeError, Error: msg})
}

// WriteRaw forwards an already-encoded JSON payload as a text frame.
func WriteRaw(conn *websocket.Conn, payload []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}
