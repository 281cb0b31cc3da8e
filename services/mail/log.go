package mail

import (
	"context"

	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/zap"
)

// LogTransport writes envelopes to the log instead of sending them.
type LogTransport struct {
	logger *logging.Service
}

func NewLogTransport(logger *logging.Service) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Name() string {
	return "log"
}

func (t *LogTransport) Deliver(_ context.Context, envelope Envelope) error {
	t.logger.Info("email not sent, log transport in use",
		zap.Strings("to", envelope.To),
		zap.String("subject", envelope.Subject),
		zap.String("text", envelope.Text))
	return nil
}
