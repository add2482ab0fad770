// Package chat is the analysis panel's conversation state machine.
//
// States are Idle and AwaitingReply. A submission appends the user message
// right away and schedules one synthetic assistant reply on the event loop.
// Submitting again while a reply is pending cancels that reply (it never
// fires) and schedules a new one bound to the newest question.
//
// Every method must be called on the event loop goroutine; the reply task
// is scheduled on the same loop, so no locking is needed here.
package chat

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/worker"
)

var (
	// ErrEmptySubmission means the text was empty after trimming.
	ErrEmptySubmission = errors.New("message cannot be empty")
	// ErrNotReady means the document is still loading or being analyzed.
	ErrNotReady = errors.New("document is still loading")
	// ErrClosed means the conversation was torn down.
	ErrClosed = errors.New("conversation closed")
)

// DefaultReplyDelay is the simulated thinking time before a reply.
const DefaultReplyDelay = 2 * time.Second

// Responder produces the assistant's answer. It must be deterministic in
// its inputs.
type Responder interface {
	Reply(question, documentName string) string
}

// Conversation holds one document's transcript.
type Conversation struct {
	loop         *worker.Loop
	responder    Responder
	documentName string
	delay        time.Duration
	ready        func() bool

	messages []models.ChatMessage
	pending  *worker.Task
	closed   bool
}

// Options configures a Conversation.
type Options struct {
	DocumentName string
	Delay        time.Duration // zero means DefaultReplyDelay
	// Ready reports whether input is accepted right now. Nil means always.
	Ready func() bool
}

// New creates an empty conversation.
func New(loop *worker.Loop, responder Responder, opts Options) *Conversation {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultReplyDelay
	}
	ready := opts.Ready
	if ready == nil {
		ready = func() bool { return true }
	}
	return &Conversation{
		loop:         loop,
		responder:    responder,
		documentName: opts.DocumentName,
		delay:        delay,
		ready:        ready,
	}
}

// Submit appends a user message and (re)schedules the reply.
// Rejected input (ErrEmptySubmission, ErrNotReady, ErrClosed) changes nothing.
func (c *Conversation) Submit(text string) (models.ChatMessage, error) {
	question := strings.TrimSpace(text)
	switch {
	case c.closed:
		return models.ChatMessage{}, ErrClosed
	case question == "":
		return models.ChatMessage{}, ErrEmptySubmission
	case !c.ready():
		return models.ChatMessage{}, ErrNotReady
	}

	// Schedule before appending so a failed schedule leaves no orphan
	// user message behind.
	task, err := c.loop.Schedule("chat-reply", c.delay, func() {
		c.deliver(question)
	})
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("failed to schedule reply: %w", err)
	}

	if c.pending != nil {
		c.pending.Cancel()
		log.Printf("💬 Superseded pending reply for %q", c.documentName)
	}
	c.pending = task

	msg := c.append(models.RoleUser, question)
	return msg, nil
}

// deliver runs on the loop when the reply task fires.
func (c *Conversation) deliver(question string) {
	c.pending = nil
	if c.closed {
		return
	}
	c.append(models.RoleAssistant, c.responder.Reply(question, c.documentName))
}

func (c *Conversation) append(role models.Role, text string) models.ChatMessage {
	msg := models.ChatMessage{
		ID:        newMessageID(),
		Seq:       len(c.messages) + 1,
		Role:      role,
		Text:      text,
		CreatedAt: c.loop.Clock().Now(),
	}
	c.messages = append(c.messages, msg)
	return msg
}

// newMessageID returns a UUIDv7, whose text form sorts in creation order.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// v7 only fails if the random source does; fall back to v4.
		return uuid.NewString()
	}
	return id.String()
}

// PendingReply reports whether a reply is scheduled.
func (c *Conversation) PendingReply() bool {
	return c.pending != nil
}

// Messages returns a copy of the transcript in display order.
func (c *Conversation) Messages() []models.ChatMessage {
	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// State returns a copy of the whole conversation state.
func (c *Conversation) State() models.ConversationState {
	return models.ConversationState{
		Messages:     c.Messages(),
		PendingReply: c.PendingReply(),
	}
}

// Close cancels any outstanding reply. Later submissions return ErrClosed.
func (c *Conversation) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.pending != nil {
		c.pending.Cancel()
		c.pending = nil
	}
}
