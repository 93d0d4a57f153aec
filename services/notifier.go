package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-gmp-alert/config"
	"github.com/fenilmodi00/ipo-gmp-alert/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

const notifierServiceName = "EmailNotifier"

// MailSender delivers composed messages over one SMTP session
type MailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// MailSenderFactory opens a sender for the given settings
type MailSenderFactory func(settings config.MailSettings) (MailSender, error)

// EmailNotifier sends the digest to all recipients in a single message
type EmailNotifier struct {
	settings  config.MailSettings
	newSender MailSenderFactory
	metrics   *shared.ServiceMetrics
	logger    *logrus.Entry
}

// NewEmailNotifier creates a notifier that talks STARTTLS SMTP
func NewEmailNotifier(settings config.MailSettings) *EmailNotifier {
	return NewEmailNotifierWithSender(settings, NewSMTPSender)
}

// NewEmailNotifierWithSender creates a notifier with a custom transport
func NewEmailNotifierWithSender(settings config.MailSettings, factory MailSenderFactory) *EmailNotifier {
	return &EmailNotifier{
		settings:  settings,
		newSender: factory,
		metrics:   shared.NewServiceMetrics(notifierServiceName),
		logger:    logrus.WithField("component", notifierServiceName),
	}
}

// NewSMTPSender builds a go-mail client that requires STARTTLS and PLAIN auth
func NewSMTPSender(settings config.MailSettings) (MailSender, error) {
	client, err := mail.NewClient(settings.Host,
		mail.WithPort(settings.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(settings.Username),
		mail.WithPassword(settings.Password),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Metrics returns the delivery metrics collected by this notifier
func (n *EmailNotifier) Metrics() *shared.ServiceMetrics {
	return n.metrics
}

// Send delivers body to recipients as one html or plain-text message
func (n *EmailNotifier) Send(ctx context.Context, subject, body string, recipients []string, isHTML bool) error {
	if n.settings.Username == "" || n.settings.Password == "" {
		return n.configurationError(shared.CodeMissingCredentials, "EMAIL_USER and EMAIL_PASSWORD must be set as environment variables", nil)
	}
	if len(recipients) == 0 {
		return n.configurationError(shared.CodeNoRecipients, "no recipients given", nil)
	}

	message, err := n.buildMessage(subject, body, recipients, isHTML)
	if err != nil {
		return err
	}

	sender, err := n.newSender(n.settings)
	if err != nil {
		return n.configurationError(shared.CodeInvalidSMTPSettings, "failed to configure SMTP client", err)
	}

	startTime := time.Now()
	err = sender.DialAndSendWithContext(ctx, message)
	n.metrics.RecordRequest(err == nil, time.Since(startTime))
	if err != nil {
		return shared.NewServiceError(
			shared.ErrorCategoryDelivery,
			shared.CodeSendFailed,
			"mail transport rejected the message",
			notifierServiceName,
			"Send",
			err,
		)
	}

	n.metrics.AddCounter("recipients", int64(len(recipients)))
	n.logger.WithFields(logrus.Fields{
		"recipients": len(recipients),
		"subject":    subject,
		"elapsed":    time.Since(startTime),
	}).Info("Email sent")

	return nil
}

func (n *EmailNotifier) buildMessage(subject, body string, recipients []string, isHTML bool) (*mail.Msg, error) {
	message := mail.NewMsg()
	if err := message.From(n.settings.Username); err != nil {
		return nil, n.configurationError(shared.CodeInvalidAddress, "invalid sender address", err)
	}
	if err := message.To(recipients...); err != nil {
		return nil, n.configurationError(shared.CodeInvalidAddress, "invalid recipient address", err)
	}

	message.Subject(subject)
	message.SetDate()
	message.SetMessageIDWithValue(fmt.Sprintf("%s@%s", uuid.NewString(), senderDomain(n.settings.Username)))

	contentType := mail.TypeTextPlain
	if isHTML {
		contentType = mail.TypeTextHTML
	}
	message.SetBodyString(contentType, body)

	return message, nil
}

func (n *EmailNotifier) configurationError(code, message string, cause error) error {
	return shared.NewServiceError(
		shared.ErrorCategoryConfiguration,
		code,
		message,
		notifierServiceName,
		"Send",
		cause,
	)
}

func senderDomain(address string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		return address[at+1:]
	}
	return "localhost"
}
