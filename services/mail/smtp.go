package mail

import (
	"context"
	"fmt"

	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/wneessen/go-mail"
)

type SMTPTransport struct {
	client *mail.Client
}

func NewSMTPTransport(cfg *config.MailConfig) (*SMTPTransport, error) {
	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	switch cfg.Encryption {
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	case "opportunistic":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	client, err := mail.NewClient(cfg.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &SMTPTransport{client: client}, nil
}

func (t *SMTPTransport) Name() string {
	return "smtp"
}

func (t *SMTPTransport) Deliver(ctx context.Context, envelope Envelope) error {
	message, err := buildMessage(envelope)
	if err != nil {
		return err
	}
	return t.client.DialAndSendWithContext(ctx, message)
}

func buildMessage(envelope Envelope) (*mail.Msg, error) {
	message := mail.NewMsg()

	if envelope.FromName != "" {
		if err := message.FromFormat(envelope.FromName, envelope.FromAddress); err != nil {
			return nil, fmt.Errorf("failed to set FROM address: %w", err)
		}
	} else if err := message.From(envelope.FromAddress); err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}

	if err := message.To(envelope.To...); err != nil {
		return nil, fmt.Errorf("failed to set TO addresses: %w", err)
	}
	message.Subject(envelope.Subject)

	switch {
	case envelope.HTML != "" && envelope.Text != "":
		message.SetBodyString(mail.TypeTextHTML, envelope.HTML)
		message.AddAlternativeString(mail.TypeTextPlain, envelope.Text)
	case envelope.HTML != "":
		message.SetBodyString(mail.TypeTextHTML, envelope.HTML)
	default:
		message.SetBodyString(mail.TypeTextPlain, envelope.Text)
	}

	return message, nil
}
