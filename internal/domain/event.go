package domain

import (
	"encoding/json"

	"github.com/pion/webrtc/v3"
)

// Event names carried on the messaging channel. Names and payload shapes are
// part of the wire contract with browser clients.
const (
	EventJoinRoom         = "join-room"
	EventRoomData         = "room-data"
	EventUserConnected    = "user-connected"
	EventUserDisconnected = "user-disconnected"
	EventOffer            = "offer"
	EventAnswer           = "answer"
	EventICECandidate     = "ice-candidate"
	EventUserControl      = "user-control"
	EventChatMessage      = "chat-message"
	EventEditorUpdate     = "editor-update"
	EventRoomFull         = "room-full"
	EventError            = "error"
)

// Event is the envelope for every message on the channel, in both directions.
type Event struct {
	Type string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewEvent(eventType string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{Type: eventType}
	}
	return Event{Type: eventType, Data: data}
}

func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

// PresencePayload announces a peer arriving or leaving a room.
type PresencePayload struct {
	ConnectionID string `json:"connectionId"`
}

// Session descriptions and candidates are relayed as-is; the server never
// inspects SDP or candidate contents.
type OfferPayload struct {
	Offer  *webrtc.SessionDescription `json:"offer,omitempty"`
	RoomID string                     `json:"roomId,omitempty"`
	From   string                     `json:"from,omitempty"`
}

type AnswerPayload struct {
	Answer *webrtc.SessionDescription `json:"answer,omitempty"`
	RoomID string                     `json:"roomId,omitempty"`
	From   string                     `json:"from,omitempty"`
}

type ICECandidatePayload struct {
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
	RoomID    string                   `json:"roomId,omitempty"`
	From      string                   `json:"from,omitempty"`
}

// UserControlPayload is an advisory mute/camera notification. Kind is an open
// tag ("audio" or "video" expected, not validated).
type UserControlPayload struct {
	Kind   string `json:"type"`
	Value  bool   `json:"value"`
	RoomID string `json:"roomId,omitempty"`
	From   string `json:"from,omitempty"`
}

type ChatSendPayload struct {
	Message string `json:"message"`
	RoomID  string `json:"roomId"`
}

type EditorUpdatePayload struct {
	Content string `json:"content"`
	RoomID  string `json:"roomId,omitempty"`
	From    string `json:"from,omitempty"`
}

type RoomFullPayload struct {
	RoomID string `json:"roomId"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
