package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
)

// mailSender sends one message; swapped in tests.
type mailSender func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// NotificationService emits best-effort email notifications for domain
// events. Send failures are logged and never propagated: escalation and
// creation state in the store is the source of truth, mail is a side channel.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	send       mailSender
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		send:       smtp.SendMail,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintCreated, n.handleComplaintCreated)
	n.dispatcher.Subscribe(events.EventComplaintEscalated, n.handleComplaintEscalated)
}

func (n *NotificationService) handleComplaintCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintCreatedPayload)
	if !ok {
		return nil
	}
	complaint := payload.Complaint
	subject := fmt.Sprintf("New Complaint Logged - %s", complaint.ComplaintID)
	body := fmt.Sprintf(`New complaint has been logged:

Complaint ID: %s
Customer: %s
Meter No: %s
Meter Type: %s
Issue Type: %s
Description: %s
Assigned To: %s
Supervisor: %s
Logged At: %s

Please take appropriate action.
`,
		complaint.ComplaintID,
		complaint.CustomerName,
		complaint.MeterNo,
		complaint.MeterType,
		complaint.IssueType,
		complaint.Description,
		complaint.AssignedTo,
		complaint.Supervisor,
		complaint.LoggedAt.Format("2006-01-02 15:04:05 MST"))
	n.Notify(subject, body)
	return nil
}

func (n *NotificationService) handleComplaintEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintEscalatedPayload)
	if !ok {
		return nil
	}
	complaint := payload.Complaint
	subject := fmt.Sprintf("Complaint Escalation Alert - %s", complaint.ComplaintID)
	body := fmt.Sprintf(`Complaint Escalation Alert

Complaint ID: %s
Customer: %s
Meter No: %s (%s)
Issue: %s (Pending %d days)
Assigned: %s
Logged: %s
Status: Overdue - Action Required
`,
		complaint.ComplaintID,
		complaint.CustomerName,
		complaint.MeterNo,
		complaint.MeterType,
		complaint.IssueType,
		payload.DaysPending,
		complaint.AssignedTo,
		complaint.LoggedAt.Format("2006-01-02 15:04:05 MST"))
	n.Notify(subject, body)
	return nil
}

// Notify dispatches an email without blocking the caller. No result is
// observed beyond logging.
func (n *NotificationService) Notify(subject, bodyText string) {
	if strings.TrimSpace(n.cfg.SMTPHost) == "" || len(n.cfg.Recipients) == 0 {
		n.logger.Debug("notification skipped; smtp not configured", zap.String("subject", subject))
		return
	}
	go func() {
		if err := n.sendMail(subject, bodyText); err != nil {
			n.logger.Error("notification send failed", zap.String("subject", subject), zap.Error(err))
			return
		}
		n.logger.Info("notification sent", zap.String("subject", subject))
	}()
}

func (n *NotificationService) sendMail(subject, bodyText string) error {
	addr := fmt.Sprintf("%s:%s", n.cfg.SMTPHost, n.cfg.SMTPPort)
	var auth smtp.Auth
	if n.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPass, n.cfg.SMTPHost)
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		n.cfg.From, strings.Join(n.cfg.Recipients, ","), subject, bodyText))

	return n.send(addr, auth, n.cfg.From, n.cfg.Recipients, msg)
}
