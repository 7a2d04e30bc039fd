package websocket

import (
	"encoding/json"
	"time"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
)

type MessageType string

// Client to server.
const (
	TypeAttach  MessageType = "attach"
	TypeDetach  MessageType = "detach"
	TypeAdd     MessageType = "add"
	TypeUpdate  MessageType = "update"
	TypeRemove  MessageType = "remove"
	TypeReorder MessageType = "reorder"
	TypeMove    MessageType = "move"
	TypePing    MessageType = "ping"
)

// Server to client.
const (
	TypeSnapshot MessageType = "snapshot"
	TypeError    MessageType = "error"
	TypeAck      MessageType = "ack"
	TypePong     MessageType = "pong"
	// TypeItineraryChanged goes to every connection of the owner after an
	// itinerary is updated or deleted.
	TypeItineraryChanged MessageType = "itinerary_changed"
)

// Message is the envelope of every frame. ID is chosen by the client and
// echoed on the ack or error answering it.
type Message struct {
	ID        string          `json:"id,omitempty"`
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type AttachPayload struct {
	ItineraryID string `json:"itinerary_id" validate:"required"`
	Day         int    `json:"day" validate:"required,min=1"`
}

type AddPayload struct {
	Activity domain.ActivityDraft `json:"activity"`
}

type UpdatePayload struct {
	ActivityID string               `json:"activity_id" validate:"required"`
	Patch      domain.ActivityPatch `json:"patch"`
}

type RemovePayload struct {
	ActivityID string `json:"activity_id" validate:"required"`
}

type ReorderPayload struct {
	Source      int  `json:"source" validate:"min=0"`
	Destination *int `json:"destination"`
}

type MovePayload struct {
	ActivityID string `json:"activity_id" validate:"required"`
	Day        int    `json:"day" validate:"required,min=1"`
}

type SnapshotPayload struct {
	ItineraryID string `json:"itinerary_id"`
	Day         int    `json:"day"`
	// Date is the calendar date of Day, YYYY-MM-DD.
	Date       string            `json:"date,omitempty"`
	Activities []domain.Activity `json:"activities"`
}

type ItineraryChangedPayload struct {
	ItineraryID string `json:"itinerary_id"`
	Deleted     bool   `json:"deleted,omitempty"`
	Days        int    `json:"days,omitempty"`
}

type ErrorPayload struct {
	Op         MessageType `json:"op,omitempty"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Field      string      `json:"field,omitempty"`
	RolledBack bool        `json:"rolled_back,omitempty"`
}

type AckPayload struct {
	Op         MessageType `json:"op"`
	ActivityID string      `json:"activity_id,omitempty"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payloadBytes,
	}, nil
}

// Reply is NewMessage carrying the id of the message it answers.
func (m *Message) Reply(msgType MessageType, payload interface{}) (*Message, error) {
	reply, err := NewMessage(msgType, payload)
	if err != nil {
		return nil, err
	}
	reply.ID = m.ID
	return reply, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
