package otpauth

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
)

func (e *Engine) sendCode(ctx context.Context, email, code string, ttl time.Duration) error {
	product := e.config.Mail.ProductName
	minutes := int(ttl.Round(time.Minute) / time.Minute)

	return e.mailer.Send(ctx, Message{
		To:      email,
		Subject: "OTP for " + product,
		Text:    fmt.Sprintf("Your OTP is %s. It expires in %d minutes.", code, minutes),
		HTML:    fmt.Sprintf("<b>Your OTP is %s</b><p>It expires in %d minutes.</p>", code, minutes),
	})
}

func (e *Engine) operatorAddress() string {
	return strings.TrimSpace(e.config.Mail.OperatorAddress)
}

func (e *Engine) notifyDeletionOperator(ctx context.Context, identity Identity, requestedAt time.Time) error {
	to := e.operatorAddress()
	if to == "" {
		return fmt.Errorf("operator address not configured")
	}

	name := html.EscapeString(identity.Name)
	addr := html.EscapeString(identity.Email)
	when := requestedAt.UTC().Format(time.RFC1123)

	return e.mailer.Send(ctx, Message{
		To:      to,
		Subject: "Account Deletion Request",
		Text:    fmt.Sprintf("User %s (%s) has requested to delete their account.", identity.Name, identity.Email),
		HTML: "<div><h2>Account Deletion Request</h2>" +
			"<p>A user has requested to delete their account:</p><ul>" +
			"<li><strong>Name:</strong> " + name + "</li>" +
			"<li><strong>Email:</strong> " + addr + "</li>" +
			"<li><strong>Request Time:</strong> " + when + "</li>" +
			"</ul><p>Please take appropriate action.</p></div>",
	})
}

func (e *Engine) confirmDeletionToUser(ctx context.Context, identity Identity) error {
	product := html.EscapeString(e.config.Mail.ProductName)

	return e.mailer.Send(ctx, Message{
		To:      identity.Email,
		Subject: "Account Deletion Request Received",
		Text: fmt.Sprintf("We've received your request to delete your %s account. "+
			"Our team will process your request shortly. If this wasn't you, please contact our support team immediately.",
			e.config.Mail.ProductName),
		HTML: "<div><h2>Your Account Deletion Request</h2>" +
			"<p>We've received your request to delete your " + product + " account.</p>" +
			"<p>Our team will process your request shortly. If this wasn't you, please contact our support team immediately.</p>" +
			"<p>Thank you for being part of " + product + ".</p></div>",
	})
}
