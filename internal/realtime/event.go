package realtime

// EventType names the frames exchanged over a chat connection.
type EventType string

const (
	// Server -> client.
	EventChatHistory       EventType = "chatHistory"
	EventNewMessage        EventType = "newMessage"
	EventMessageSent       EventType = "messageSent"
	EventAdminNewMessage   EventType = "adminNewMessage"
	EventTypingStatus      EventType = "typingStatus"
	EventAdminTypingStatus EventType = "adminTypingStatus"
	EventUserConnected     EventType = "userConnected"
	EventUserDisconnected  EventType = "userDisconnected"
	EventError             EventType = "error"

	// Client -> server.
	EventInit        EventType = "init"
	EventSendMessage EventType = "sendMessage"
	EventTyping      EventType = "typing"
	EventJoin        EventType = "join"
	EventLeave       EventType = "leave"
)

// Event is the JSON envelope written to and read from a websocket.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

func ErrorEvent(message string) Event {
	return Event{Type: EventError, Payload: map[string]any{"message": message}}
}
