package transport

import "github.com/ollkyy/scoutbot/internal/models"

// Button is one interactive choice attached to a message. Data is the opaque
// payload echoed back in the callback event when the button is pressed.
type Button struct {
	Label string
	Data  string
}

// MessageRef identifies a previously sent message so it can be edited later.
type MessageRef struct {
	Chat    models.Identity
	Message int
}

// EventKind discriminates inbound events from the chat transport.
type EventKind int

const (
	// EventText is free-form message text.
	EventText EventKind = iota
	// EventCommand is a slash command ("/start" arrives as Command "start").
	EventCommand
	// EventCallback is a button press; Data carries the button payload and
	// Ref the message the button was attached to.
	EventCallback
)

// Event is one inbound user action reported by the transport.
type Event struct {
	Kind    EventKind
	From    models.Identity
	Text    string
	Command string
	Data    string
	Ref     MessageRef
}

// Adapter is the chat transport consumed by the dispatcher and the review
// coordinator. All sends are best-effort: a failed delivery returns an error
// and the caller logs and moves on, nothing is retried.
type Adapter interface {
	// Send delivers text to a chat, optionally with rows of inline buttons,
	// and returns a handle for later edits.
	Send(chat models.Identity, text string, buttons [][]Button) (MessageRef, error)
	// EditText replaces the text of a previously sent message.
	EditText(ref MessageRef, text string) error
	// ClearButtons revokes the interactive controls of a previously sent
	// message, leaving its text in place.
	ClearButtons(ref MessageRef) error
	// Events yields inbound user actions. The channel closes when the
	// transport shuts down.
	Events() <-chan Event
}
