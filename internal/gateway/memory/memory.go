// Package memory provides an in-process Sender that records everything
// it is asked to deliver. Used in tests and local development.
package memory

import (
	"context"
	"sync"

	"xarajat/internal/gateway"
)

// SentText is one recorded text message.
type SentText struct {
	ChatID   int64
	Text     string
	Keyboard gateway.Keyboard
}

// SentDocument is one recorded attachment.
type SentDocument struct {
	ChatID   int64
	Document gateway.Document
}

// Sender records outbound messages instead of delivering them.
type Sender struct {
	mu        sync.Mutex
	texts     []SentText
	documents []SentDocument

	// Err, when set, is returned by every send.
	Err error
}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) SendText(_ context.Context, chatID int64, text string, kb gateway.Keyboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.texts = append(s.texts, SentText{ChatID: chatID, Text: text, Keyboard: kb})
	return nil
}

func (s *Sender) SendDocument(_ context.Context, chatID int64, doc gateway.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.documents = append(s.documents, SentDocument{ChatID: chatID, Document: doc})
	return nil
}

// Texts returns a copy of all recorded text messages.
func (s *Sender) Texts() []SentText {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentText, len(s.texts))
	copy(out, s.texts)
	return out
}

// Documents returns a copy of all recorded attachments.
func (s *Sender) Documents() []SentDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentDocument, len(s.documents))
	copy(out, s.documents)
	return out
}

// LastText returns the most recent text message, if any.
func (s *Sender) LastText() (SentText, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.texts) == 0 {
		return SentText{}, false
	}
	return s.texts[len(s.texts)-1], true
}

// Reset drops everything recorded so far.
func (s *Sender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = nil
	s.documents = nil
}
