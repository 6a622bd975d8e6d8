package mail

import (
	"context"
	"log"

	"github.com/educatebharat/otpauth"
)

// LogMailer writes messages to a logger instead of delivering them. Codes
// end up in the log, so use it only in development.
type LogMailer struct {
	logger *log.Logger
}

var _ otpauth.Mailer = (*LogMailer)(nil)

// NewLogMailer logs to logger, or to the standard logger when nil.
func NewLogMailer(logger *log.Logger) *LogMailer {
	if logger == nil {
		logger = log.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg otpauth.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Printf("mail: to=%s subject=%q\n%s", msg.To, msg.Subject, msg.Text)
	return nil
}
