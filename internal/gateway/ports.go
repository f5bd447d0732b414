// Package gateway defines the transport-agnostic surface between the
// bot and whatever chat platform delivers its messages. An inbound
// Event is a normalized user action; a Sender delivers replies.
package gateway

import "context"

// Event is a single inbound user action. Exactly one of Text or
// Callback is set: Text for typed messages and commands, Callback for
// button presses.
type Event struct {
	UserID   int64  `json:"user_id"`
	ChatID   int64  `json:"chat_id"`
	Text     string `json:"text,omitempty"`
	Callback string `json:"callback,omitempty"`
}

// Button is one inline keyboard button. Data is echoed back as the
// Callback of the resulting Event.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Keyboard is rows of buttons attached to an outgoing message.
type Keyboard [][]Button

// Document is a binary attachment, typically a generated spreadsheet.
type Document struct {
	Filename string `json:"filename"`
	Caption  string `json:"caption,omitempty"`
	Data     []byte `json:"data"`
}

// Sender delivers outbound messages to a chat. Implementations must be
// safe for concurrent use.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) error
	SendDocument(ctx context.Context, chatID int64, doc Document) error
}
