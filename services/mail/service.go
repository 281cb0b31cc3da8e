package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmlTemplate "html/template"
	"os"
	"path/filepath"
	textTemplate "text/template"

	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/zap"
)

const (
	TemplateEmailConfirmation = "email_confirmation"
	TemplatePasswordReset     = "password_reset"
	TemplatePasswordChanged   = "password_changed"
)

var ErrTemplateNotFound = errors.New("mail template not found")

//go:embed templates/*.html templates/*.txt
var defaultTemplates embed.FS

// Envelope is a fully rendered message ready for a transport.
type Envelope struct {
	FromName    string   `json:"from_name,omitempty"`
	FromAddress string   `json:"from_address"`
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	HTML        string   `json:"html,omitempty"`
	Text        string   `json:"text,omitempty"`
}

type Transport interface {
	Deliver(ctx context.Context, envelope Envelope) error
	Name() string
}

type Service struct {
	config        *config.MailConfig
	transport     Transport
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

func NewService(cfg *config.MailConfig, transport Transport, logger *logging.Service) (*Service, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	service := &Service{
		config:    cfg,
		transport: transport,
		logger:    logger,
	}

	if err := service.loadTemplates(); err != nil {
		if logger != nil {
			logger.Error("failed to load mail templates", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	if logger != nil {
		logger.Info("mail service initialized",
			zap.String("transport", transport.Name()),
			zap.String("from_address", cfg.FromAddress))
	}
	return service, nil
}

// loadTemplates parses the embedded defaults and then lets files in
// TemplatesDir with the same name replace them.
func (s *Service) loadTemplates() error {
	var err error
	s.htmlTemplates, err = htmlTemplate.ParseFS(defaultTemplates, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse default HTML templates: %w", err)
	}
	s.textTemplates, err = textTemplate.ParseFS(defaultTemplates, "templates/*.txt")
	if err != nil {
		return fmt.Errorf("failed to parse default text templates: %w", err)
	}

	if s.config.TemplatesDir == "" {
		return nil
	}

	if _, err := os.Stat(s.config.TemplatesDir); err != nil {
		return fmt.Errorf("templates directory: %w", err)
	}

	htmlPattern := filepath.Join(s.config.TemplatesDir, "*.html")
	if matches, _ := filepath.Glob(htmlPattern); len(matches) > 0 {
		if s.htmlTemplates, err = s.htmlTemplates.ParseGlob(htmlPattern); err != nil {
			return fmt.Errorf("failed to parse HTML templates: %w", err)
		}
	}

	textPattern := filepath.Join(s.config.TemplatesDir, "*.txt")
	if matches, _ := filepath.Glob(textPattern); len(matches) > 0 {
		if s.textTemplates, err = s.textTemplates.ParseGlob(textPattern); err != nil {
			return fmt.Errorf("failed to parse text templates: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("mail templates loaded",
			zap.String("templates_dir", s.config.TemplatesDir),
			zap.Int("html_templates", len(s.htmlTemplates.Templates())),
			zap.Int("text_templates", len(s.textTemplates.Templates())))
	}
	return nil
}

func (s *Service) Render(templateName string, data map[string]any) (html, text string, err error) {
	found := false

	if tmpl := s.htmlTemplates.Lookup(templateName + ".html"); tmpl != nil {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", "", fmt.Errorf("failed to execute HTML template: %w", err)
		}
		html = buf.String()
		found = true
	}

	if tmpl := s.textTemplates.Lookup(templateName + ".txt"); tmpl != nil {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", "", fmt.Errorf("failed to execute text template: %w", err)
		}
		text = buf.String()
		found = true
	}

	if !found {
		return "", "", fmt.Errorf("%w: %s", ErrTemplateNotFound, templateName)
	}
	return html, text, nil
}

func (s *Service) SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error {
	html, text, err := s.Render(templateName, data)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to render template",
				zap.Error(err),
				zap.String("template", templateName))
		}
		return err
	}

	envelope := Envelope{
		FromName:    s.config.FromName,
		FromAddress: s.config.FromAddress,
		To:          to,
		Subject:     subject,
		HTML:        html,
		Text:        text,
	}

	if err := s.transport.Deliver(ctx, envelope); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to deliver email",
				zap.Error(err),
				zap.String("template", templateName),
				zap.String("transport", s.transport.Name()))
		}
		return fmt.Errorf("failed to deliver email: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("email sent",
			zap.String("template", templateName),
			zap.Int("recipients", len(to)),
			zap.String("transport", s.transport.Name()))
	}
	return nil
}
