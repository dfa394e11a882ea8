package websocket

// MessageType tags frames written to monitor stream watchers.
type MessageType string

const (
	MessageTypeEvent MessageType = "event"
	MessageTypeError MessageType = "error"
)

// ErrorMessage is sent to a watcher before the connection is closed on a
// stream-level failure.
type ErrorMessage struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error"`
}
