package realtime

import "fmt"

// Error represents a connection-level failure talking to the gateway.
type Error struct {
	// Code is a short machine-readable code (e.g. "connection_failed").
	Code string `json:"code,omitempty"`

	// Message is the human-readable error message.
	Message string `json:"message,omitempty"`

	// HTTPStatus is the handshake HTTP status, if applicable.
	HTTPStatus int `json:"-"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("realtime: %s", e.Message)
}

// EventError contains error details carried by an error event. Unlike
// *Error it is not returned from the Events iterator: peer-reported errors
// are conversation-level events the router must see (to finalize an
// interrupted reply), so they are yielded as ordinary ServerEvents.
type EventError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	EventID string `json:"event_id,omitempty"`
}

// ToError converts an EventError to an Error.
func (e *EventError) ToError() *Error {
	return &Error{Code: e.Code, Message: e.Message}
}
