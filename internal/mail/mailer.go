// Package mail hands verification messages to a Mailer without blocking
// the request that triggered them.
package mail

import (
	"context"
	"strings"
	"sync"

	"contacts-api/internal/observability"
)

// VerificationMessage asks the recipient to open Link to confirm Email.
type VerificationMessage struct {
	Email    string
	Username string
	Link     string
}

// Mailer delivers messages. Implementations may block; callers go through a
// Dispatcher so delivery never holds up a request.
type Mailer interface {
	SendVerification(ctx context.Context, msg VerificationMessage) error
}

// LogMailer writes the message to the log instead of sending it. The last
// path segment of the link carries a live token, so it is redacted unless
// revealLinks is set.
type LogMailer struct {
	logger      *observability.Logger
	revealLinks bool
}

func NewLogMailer(logger *observability.Logger, revealLinks bool) *LogMailer {
	return &LogMailer{logger: logger, revealLinks: revealLinks}
}

func (m *LogMailer) SendVerification(_ context.Context, msg VerificationMessage) error {
	link := msg.Link
	if !m.revealLinks {
		link = redactLink(link)
	}
	m.logger.Info("verification_email", map[string]any{
		"recipient": msg.Email,
		"username":  msg.Username,
		"link":      link,
	})
	return nil
}

const redacted = "[redacted]"

func redactLink(link string) string {
	i := strings.LastIndex(link, "/")
	if i < 0 {
		return redacted
	}
	return link[:i+1] + redacted
}

// MemoryMailer records messages. Safe for concurrent use.
type MemoryMailer struct {
	mu       sync.Mutex
	messages []VerificationMessage
	// Err, when set, is returned from every send after recording the message.
	Err error
}

func NewMemoryMailer() *MemoryMailer {
	return &MemoryMailer{}
}

func (m *MemoryMailer) SendVerification(_ context.Context, msg VerificationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.Err
}

func (m *MemoryMailer) Messages() []VerificationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]VerificationMessage, len(m.messages))
	copy(out, m.messages)
	return out
}
