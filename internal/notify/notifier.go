// Package notify delivers guest-facing messages. Delivery is best-effort:
// callers persist state first and treat a failed send as a reportable,
// non-fatal outcome.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gatherkit/gatherd/internal/logutil"
)

// Kind names a message template.
type Kind string

const (
	KindInvite       Kind = "invite"
	KindVerification Kind = "verification"
	KindReset        Kind = "reset"
	KindWelcome      Kind = "welcome"
)

// Message is one outbound notification.
type Message struct {
	Kind      Kind
	To        string
	Subject   string
	EventName string
	// Link is the action URL for the recipient (invitation page,
	// verification link, password reset link).
	Link string
}

// Notifier delivers messages to recipients.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Subjects per kind; the invite subject is completed with the event name.
func (m Message) subject() string {
	if m.Subject != "" {
		return m.Subject
	}
	switch m.Kind {
	case KindInvite:
		return fmt.Sprintf("You're invited to %s", m.EventName)
	case KindVerification:
		return "Verify your email address"
	case KindReset:
		return "Reset your password"
	case KindWelcome:
		return "Welcome aboard"
	}
	return string(m.Kind)
}

// LogNotifier writes deliveries to the log instead of sending them. It is
// the default driver for development.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: logutil.NoopIfNil(log)}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.log.Info("notification",
		"kind", string(msg.Kind),
		"to", msg.To,
		"subject", msg.subject(),
		"link", msg.Link)
	return nil
}

// Recorder captures sent messages for tests. Fail, when set, is returned
// for matching recipients.
type Recorder struct {
	mu   sync.Mutex
	sent []Message

	Fail map[string]error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.Fail[msg.To]; ok {
		return err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}
