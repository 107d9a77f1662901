package ws

import "encoding/json"

// Event types for the server event stream.
const (
	// Server → client
	TypeMessage            = "message"
	TypeUserTyping         = "user_typing"
	TypeTaskCompleted      = "task_completed"
	TypeObjectiveCreated   = "objective_created"
	TypeObjectiveCompleted = "objective_completed"
	TypeProgressUpdate     = "progress_update"
	TypeError              = "error"

	// Client → server
	TypeTyping = "typing"
)

// Envelope wraps every event with a type field for routing.
type Envelope struct {
	Type string `json:"type"`
}

// MessageEvent is a chat message broadcast to every connected client,
// including the sender.
type MessageEvent struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	Content     string   `json:"content"`
	SenderName  string   `json:"sender_name"`
	GroupID     string   `json:"group_id"`
	CreatedAt   string   `json:"created_at"` // RFC 3339
	Attachments []string `json:"attachments,omitempty"`
}

// UserTypingEvent signals a remote participant is composing.
type UserTypingEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	GroupID  string `json:"group_id"`
}

// TaskCompletedEvent signals a task reached a done state.
type TaskCompletedEvent struct {
	Type        string `json:"type"`
	GroupID     string `json:"group_id"`
	CompletedBy string `json:"completed_by"`
	Title       string `json:"title"`
}

// ObjectiveEvent covers objective_created and objective_completed.
type ObjectiveEvent struct {
	Type    string `json:"type"`
	GroupID string `json:"group_id"`
	Title   string `json:"title"`
}

// ProgressUpdateEvent asks clients to refresh derived progress for a group.
type ProgressUpdateEvent struct {
	Type    string `json:"type"`
	GroupID string `json:"group_id"`
}

// TypingCommand is sent by the client on local input changes.
type TypingCommand struct {
	Type     string `json:"type"`
	GroupID  string `json:"group_id"`
	Username string `json:"username"`
}

// ErrorMsg is sent by the server for protocol errors.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Decode unmarshals a raw frame into a typed event.
func Decode[T any](data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}
