// Package notify delivers plain-text notification emails over SMTP. Delivery
// is best-effort: callers fire messages from a goroutine and a failed send is
// logged, never surfaced to the request path.
package notify

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/NganNgoVoThanh/trips-management/internal/config"
	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
	"github.com/NganNgoVoThanh/trips-management/internal/telemetry"
)

// Notification kinds used for metrics labels.
const (
	KindTripDecided        = "trip_decided"
	KindGroupApproved      = "group_approved"
	KindGroupRejected      = "group_rejected"
	KindJoinRequestDecided = "join_request_decided"
)

// EmailSender delivers a single message to one recipient
type EmailSender interface {
	Send(to, subject, body, kind string) error
}

// NewEmailSender returns an SMTP sender when notifications are configured,
// otherwise a sender that silently drops everything
func NewEmailSender(cfg *config.NotificationsConfig, logger *slog.Logger) EmailSender {
	if !cfg.Enabled || cfg.SMTP.Host == "" {
		logger.Info("email notifications disabled")
		return &noopSender{}
	}
	return &SMTPSender{cfg: cfg, logger: logger}
}

type noopSender struct{}

func (n *noopSender) Send(string, string, string, string) error { return nil }

// SMTPSender delivers mail through the configured SMTP relay
type SMTPSender struct {
	cfg    *config.NotificationsConfig
	logger *slog.Logger
}

// Send composes the message headers and delivers to a single recipient
func (s *SMTPSender) Send(to, subject, body, kind string) error {
	smtpCfg := &s.cfg.SMTP
	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		smtpCfg.From, to, subject,
	)
	msg := []byte(headers + body + "\r\n")

	addr := fmt.Sprintf("%s:%d", smtpCfg.Host, smtpCfg.Port)
	auth := smtp.PlainAuth("", smtpCfg.Username, smtpCfg.Password, smtpCfg.Host)

	var err error
	if smtpCfg.UseTLS {
		err = sendMailTLS(addr, smtpCfg.Host, auth, smtpCfg.From, []string{to}, msg)
	} else {
		err = smtp.SendMail(addr, auth, smtpCfg.From, []string{to}, msg)
	}
	if err != nil {
		s.logger.Error("failed to send notification email", "to", to, "kind", kind, "error", err)
		return err
	}

	telemetry.NotificationEmailsSentTotal.WithLabelValues(kind).Inc()
	return nil
}

// sendMailTLS connects via implicit TLS (port 465 / SMTPS) and sends a message.
// When the TLS dial fails it falls back to the STARTTLS path smtp.SendMail
// handles on port 587.
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return smtp.SendMail(addr, auth, from, to, msg)
	}
	defer conn.Close()

	hostname, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, hostname)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}

// TripDecided notifies a trip owner of an approval decision
func TripDecided(sender EmailSender, trip *models.Trip) error {
	subject := fmt.Sprintf("Your trip on %s: %s", trip.DepartureDate.Format("2006-01-02"), trip.Status)
	body := strings.Join([]string{
		"Hello,",
		"",
		fmt.Sprintf("Your trip request departing %s has been updated to status: %s.",
			trip.DepartureTime.Format(time.RFC1123), trip.Status),
		"",
		"You can review the details in the trips portal.",
		"",
		"— Trips Management",
	}, "\r\n")
	return sender.Send(trip.UserEmail, subject, body, KindTripDecided)
}

// GroupApproved notifies every member of an approved group of the shared ride
func GroupApproved(sender EmailSender, group *models.GroupWithMembers) {
	subject := "Your trip has been merged into a shared ride"
	for _, trip := range group.Trips {
		body := strings.Join([]string{
			"Hello,",
			"",
			fmt.Sprintf("Your trip on %s has been combined with colleagues travelling the same route.",
				trip.DepartureDate.Format("2006-01-02")),
			fmt.Sprintf("New departure time: %s", group.ProposedDepartureTime.Format(time.RFC1123)),
			fmt.Sprintf("Vehicle: %s", group.VehicleType),
			"",
			"Your original booking has been replaced by the shared ride.",
			"",
			"— Trips Management",
		}, "\r\n")
		// best effort per recipient; Send logs its own failures
		_ = sender.Send(trip.UserEmail, subject, body, KindGroupApproved)
	}
}

// JoinRequestDecided notifies a requester of the decision on their ride-along request
func JoinRequestDecided(sender EmailSender, req *models.JoinRequest) error {
	subject := fmt.Sprintf("Your ride-along request was %s", req.Status)
	lines := []string{
		fmt.Sprintf("Hello %s,", req.RequesterName),
		"",
		fmt.Sprintf("Your request to join a colleague's trip has been %s.", req.Status),
	}
	if req.AdminNotes != nil && *req.AdminNotes != "" {
		lines = append(lines, "", fmt.Sprintf("Note from the administrator: %s", *req.AdminNotes))
	}
	lines = append(lines, "", "— Trips Management")
	return sender.Send(req.RequesterEmail, subject, strings.Join(lines, "\r\n"), KindJoinRequestDecided)
}
