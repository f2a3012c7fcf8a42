package ordering

import "strings"

type EventKind string

const (
	EventText      EventKind = "text"
	EventSelection EventKind = "selection"
)

// Event is one inbound user action: free text or a list/button selection
type Event struct {
	Kind EventKind `json:"kind"`
	Body string    `json:"body,omitempty"` // text events
	ID   string    `json:"id,omitempty"`   // selection events
}

func Text(body string) Event {
	return Event{Kind: EventText, Body: body}
}

func Selection(id string) Event {
	return Event{Kind: EventSelection, ID: strings.TrimSpace(id)}
}

func (e Event) IsText() bool      { return e.Kind == EventText }
func (e Event) IsSelection() bool { return e.Kind == EventSelection }
