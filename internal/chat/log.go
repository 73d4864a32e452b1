// Package chat holds the client-owned conversation log for the chat tab.
// The log is session-scoped and append-only: messages are never deleted or
// reordered, and every backend response (success or failure) lands as an
// assistant entry after the user message that triggered it.
package chat

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkamath/docstudio/internal/api"
)

// Role tags who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Greeting seeds the conversation when the chat tab first opens.
const Greeting = "Hello! I can help you find information from your uploaded documents. What would you like to know?"

// Message is one entry in the session log. Sources and ProcessingTime are
// populated on successful answers only.
type Message struct {
	ID             string
	ReplyTo        string
	Role           Role
	Content        string
	Timestamp      time.Time
	Sources        []api.SourceCitation
	ProcessingTime float64
	IsError        bool
}

// Log is the ordered, append-only message record. Safe for use from the
// completion goroutines of overlapping queries.
type Log struct {
	mu       sync.Mutex
	messages []Message
}

// NewLog returns a log seeded with the assistant greeting.
func NewLog() *Log {
	l := &Log{}
	l.append(Message{
		Role:    RoleAssistant,
		Content: Greeting,
	})
	return l
}

// AppendUser records a submission and returns the stored message; its ID is
// the ReplyTo handle for the eventual response.
func (l *Log) AppendUser(content string) Message {
	return l.append(Message{
		Role:    RoleUser,
		Content: content,
	})
}

// AppendAnswer records a successful backend answer for the given request.
func (l *Log) AppendAnswer(replyTo string, answer api.QueryAnswer) Message {
	return l.append(Message{
		ReplyTo:        replyTo,
		Role:           RoleAssistant,
		Content:        answer.Answer,
		Sources:        answer.Sources,
		ProcessingTime: answer.ProcessingTime,
	})
}

// AppendError records a failed query as an assistant message so the
// conversation stays a complete record of every exchange.
func (l *Log) AppendError(replyTo string, err error) Message {
	return l.append(Message{
		ReplyTo: replyTo,
		Role:    RoleAssistant,
		Content: fmt.Sprintf("Sorry, I encountered an error: %v", err),
		IsError: true,
	})
}

// Messages returns a copy of the log in submission order.
func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len reports the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

func (l *Log) append(msg Message) Message {
	msg.ID = uuid.NewString()
	msg.Timestamp = time.Now()
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
	return msg
}

// FormatProcessingTime renders a backend-reported duration such as 1.3 as
// "1.30s" for display next to an answer.
func FormatProcessingTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2fs", seconds)
}

// FormatMatch renders a similarity score as a percentage. Scores are not
// guaranteed to sit inside [0,1], so out-of-range values are rendered as-is
// rather than rejected.
func FormatMatch(score float64) string {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%% match", score*100)
}
