package realtime

import (
	"encoding/json"
	"fmt"
)

// Notification categories.
const (
	NotificationGeneric     = "generic"
	NotificationEnrollment  = "enrollment"
	NotificationNewMaterial = "new_material"
)

// Event is a message fanned out to a group's live subscribers.
// The concrete kinds are a closed set; sessions switch over them when
// serializing for the wire.
type Event interface {
	event()
}

// Notification is a server-to-client user notification.
type Notification struct {
	Message string
	Type    string // defaults to NotificationGeneric when empty
}

// ChatMessage is a pre-formatted chat room message.
type ChatMessage struct {
	Message string
}

// JoinAnnouncement is synthesized by the server when a user joins a chat room.
type JoinAnnouncement struct {
	Username string
}

func (Notification) event()     {}
func (ChatMessage) event()      {}
func (JoinAnnouncement) event() {}

type (
	notificationPayload struct {
		Message          string `json:"message"`
		NotificationType string `json:"notification_type"`
	}

	chatPayload struct {
		Message string `json:"message"`
	}
)

// MarshalEvent serializes an event to its wire form.
func MarshalEvent(e Event) ([]byte, error) {
	switch evt := e.(type) {
	case Notification:
		ntype := evt.Type
		if ntype == "" {
			ntype = NotificationGeneric
		}
		return json.Marshal(notificationPayload{Message: evt.Message, NotificationType: ntype})
	case ChatMessage:
		return json.Marshal(chatPayload{Message: evt.Message})
	case JoinAnnouncement:
		return json.Marshal(chatPayload{Message: fmt.Sprintf("%s has joined the chat room.", evt.Username)})
	default:
		return nil, fmt.Errorf("unknown event type %T", e)
	}
}

// Group names.

func NotificationGroup(username string) string { return "notifications_" + username }
func ChatGroup(room string) string             { return "chat_" + room }
