package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Service struct {
	logger *zap.Logger
}

type LogLevel string

const (
	Debug LogLevel = "debug"
	Info  LogLevel = "info"
	Warn  LogLevel = "warn"
	Error LogLevel = "error"
)

type Config struct {
	Level      LogLevel
	Format     string
	OutputPath string
}

func NewService(config Config) (*Service, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(parseLogLevel(config.Level))

	switch config.Format {
	case "console":
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json":
		zapConfig.Encoding = "json"
	}

	if config.OutputPath != "" && config.OutputPath != "stdout" {
		zapConfig.OutputPaths = []string{config.OutputPath}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return &Service{logger: logger}, nil
}

// NewFromZap wraps an existing zap logger, mostly for tests using zaptest or
// observer cores.
func NewFromZap(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

func NewNop() *Service {
	return &Service{logger: zap.NewNop()}
}

func (s *Service) Logger() *zap.Logger {
	if s != nil {
		return s.logger
	}
	return nil
}

// With returns a child logger that carries fields on every entry.
func (s *Service) With(fields ...zap.Field) *Service {
	if s == nil || s.logger == nil {
		return s
	}
	return &Service{logger: s.logger.With(fields...)}
}

func (s *Service) Debug(msg string, fields ...zap.Field) {
	if s != nil && s.logger != nil {
		s.logger.Debug(msg, fields...)
	}
}

func (s *Service) Info(msg string, fields ...zap.Field) {
	if s != nil && s.logger != nil {
		s.logger.Info(msg, fields...)
	}
}

func (s *Service) Warn(msg string, fields ...zap.Field) {
	if s != nil && s.logger != nil {
		s.logger.Warn(msg, fields...)
	}
}

func (s *Service) Error(msg string, fields ...zap.Field) {
	if s != nil && s.logger != nil {
		s.logger.Error(msg, fields...)
	}
}

func (s *Service) Sync() error {
	if s != nil && s.logger != nil {
		return s.logger.Sync()
	}
	return nil
}

func parseLogLevel(level LogLevel) zapcore.Level {
	switch level {
	case Debug:
		return zapcore.DebugLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
