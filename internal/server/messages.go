package server

import (
	"encoding/json"
)

const (
	EventJoin            = "join"
	EventMessage         = "message"
	EventConnected       = "connected"
	EventUserListUpdated = "user-list-updated"
	// spelled as existing clients expect it
	EventReceiveMessage = "recieve-message"
	EventError          = "error"
)

// ClientMessage is a frame sent by a client.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Join struct {
	Email string `json:"email"`
}

// Publish addresses a payload to one connection. The payload is relayed
// without being decoded.
type Publish struct {
	Message  json.RawMessage `json:"message"`
	SocketId string          `json:"socketId"`
}

// ServerMessage is a frame sent to a client.
type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type Connected struct {
	Id string `json:"id"`
}

type Received struct {
	Message json.RawMessage `json:"message"`
	From    string          `json:"from"`
}

type PresenceChanged struct {
	Email  string `json:"email"`
	Online bool   `json:"online"`
}

type ErrorData struct {
	Error string `json:"error"`
}

func NewConnected(id string) *ServerMessage {
	return &ServerMessage{
		Event: EventConnected,
		Data:  Connected{Id: id},
	}
}

func NewReceived(payload json.RawMessage, from string) *ServerMessage {
	return &ServerMessage{
		Event: EventReceiveMessage,
		Data: Received{
			Message: payload,
			From:    from,
		},
	}
}

func NewPresenceChanged(email string, online bool) *ServerMessage {
	return &ServerMessage{
		Event: EventUserListUpdated,
		Data: PresenceChanged{
			Email:  email,
			Online: online,
		},
	}
}

func newError(msg string) *ServerMessage {
	return &ServerMessage{
		Event: EventError,
		Data:  ErrorData{Error: msg},
	}
}

func ErrInvalidMessage() *ServerMessage {
	return newError("invalid message format")
}

func ErrUnknownEvent() *ServerMessage {
	return newError("unknown event")
}

func ErrIdentityMismatch() *ServerMessage {
	return newError("identity does not match session")
}

func ErrInternalError() *ServerMessage {
	return newError("internal server error")
}

func ErrServiceUnavailable() *ServerMessage {
	return newError("service unavailable")
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}
