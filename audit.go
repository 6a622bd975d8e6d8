package otpauth

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"
)

// AuditEvent is one security-relevant outcome. Plaintext passwords and codes
// never appear in it.
type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	// Reason is the flow step that failed, e.g. "code_mismatch".
	Reason string `json:"reason,omitempty"`
}

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc func(ctx context.Context, event AuditEvent)

func (f AuditSinkFunc) Emit(ctx context.Context, event AuditEvent) {
	f(ctx, event)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu        sync.Mutex
	enc       *json.Encoder
	maskEmail bool
}

// JSONSinkOption configures a JSONWriterSink.
type JSONSinkOption func(*JSONWriterSink)

// WithMaskedEmails writes "a***@example.com" instead of the full address.
func WithMaskedEmails() JSONSinkOption {
	return func(s *JSONWriterSink) { s.maskEmail = true }
}

func NewJSONWriterSink(w io.Writer, opts ...JSONSinkOption) *JSONWriterSink {
	s := &JSONWriterSink{}
	if w != nil {
		s.enc = json.NewEncoder(w)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.enc == nil {
		return
	}
	if s.maskEmail {
		event.Email = MaskEmail(event.Email)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(event)
}

// MaskEmail keeps the first rune of the local part and the whole domain.
// Values without an "@" are masked entirely.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	local := []rune(email[:at])
	return string(local[0]) + "***" + email[at:]
}
