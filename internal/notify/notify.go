// Package notify tells guests about new invites. Delivery is best effort;
// callers log failures and carry on.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/pkordes/planejatrip/internal/domain"
)

// Log writes a structured line per invite instead of sending anything.
type Log struct {
	Logger *slog.Logger
}

func (n Log) InviteCreated(_ context.Context, inv domain.Invite) error {
	n.Logger.Info("invite created",
		"invite_id", inv.ID,
		"trip_id", inv.TripID,
		"guest", inv.GuestEmail,
		"permission", inv.Permission,
	)
	return nil
}

// Mailer is the subset of the SendGrid client used here.
type Mailer interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid emails the guest through the SendGrid v3 API.
type SendGrid struct {
	client   Mailer
	fromName string
	from     string
}

// NewSendGrid returns a SendGrid notifier sending from the given address.
func NewSendGrid(apiKey, fromName, fromEmail string) *SendGrid {
	return NewSendGridWithClient(sendgrid.NewSendClient(apiKey), fromName, fromEmail)
}

// NewSendGridWithClient is NewSendGrid with an injected client.
func NewSendGridWithClient(client Mailer, fromName, fromEmail string) *SendGrid {
	return &SendGrid{client: client, fromName: fromName, from: fromEmail}
}

func (n *SendGrid) InviteCreated(ctx context.Context, inv domain.Invite) error {
	msg := inviteMessage(n.fromName, n.from, inv)
	resp, err := n.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("notify.SendGrid.InviteCreated: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify.SendGrid.InviteCreated: sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

func inviteMessage(fromName, fromEmail string, inv domain.Invite) *mail.SGMailV3 {
	access := "view"
	if inv.Permission == domain.PermissionEdit {
		access = "edit"
	}
	host := inv.HostName
	if strings.TrimSpace(host) == "" {
		host = inv.HostEmail
	}
	subject := fmt.Sprintf("%s invited you to %q", host, inv.TripName)
	text := fmt.Sprintf("%s invited you to %s the trip %q on %s. Sign in to accept or decline.", host, access, inv.TripName, fromName)
	body := fmt.Sprintf("<p><strong>%s</strong> invited you to %s the trip <strong>%s</strong> on %s.</p><p>Sign in to accept or decline.</p>",
		html.EscapeString(host), access, html.EscapeString(inv.TripName), html.EscapeString(fromName))
	return mail.NewSingleEmail(mail.NewEmail(fromName, fromEmail), subject, mail.NewEmail("", inv.GuestEmail), text, body)
}
