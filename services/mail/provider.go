package mail

import (
	"context"
	"fmt"

	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/fx"
)

func ProvideTransport(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service) (Transport, error) {
	switch cfg.Mail.Transport {
	case "smtp":
		return NewSMTPTransport(&cfg.Mail)
	case "amqp":
		transport, err := DialAMQP(cfg.Mail.AMQPURL, cfg.Mail.AMQPQueue)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return transport.Close() },
		})
		return transport, nil
	case "log":
		return NewLogTransport(logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail transport: %s", cfg.Mail.Transport)
	}
}

func ProvideMailService(cfg *config.Config, transport Transport, logger *logging.Service) (*Service, error) {
	return NewService(&cfg.Mail, transport, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideTransport),
	fx.Provide(ProvideMailService),
)
