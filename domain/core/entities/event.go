package entities

import "encoding/json"

// Event types written by the evstore service.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventMeta identifies the document an event touched.
type EventMeta struct {
	ID  string `json:"_id"`
	Key string `json:"_key,omitempty"`
	Rev string `json:"_rev,omitempty"`
}

// Event is one entry of the evstore event log. Ctime is in seconds.
type Event struct {
	ID      string          `json:"_id"`
	Event   string          `json:"event"`
	Ctime   float64         `json:"ctime"`
	Meta    EventMeta       `json:"meta"`
	Command json.RawMessage `json:"command,omitempty"`
}

// EventGroup is one bucket of a grouped log query.
type EventGroup struct {
	Event  string  `json:"event"`
	Events []Event `json:"events"`
}

// StartMillis converts the event time to epoch milliseconds.
func (e Event) StartMillis() int64 {
	return int64(e.Ctime * 1000)
}
