package sinks

import (
	"context"

	"github.com/sirupsen/logrus"

	"guildmaster/server/logging"
)

// LogrusSink bridges router events into a logrus logger so deployments that
// already aggregate logrus output pick up gameplay events without a second
// pipeline.
type LogrusSink struct {
	logger *logrus.Logger
}

// NewLogrusSink wraps the provided logger; a nil logger uses the logrus default.
func NewLogrusSink(logger *logrus.Logger, cfg logging.LogrusConfig) *LogrusSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Level != "" {
		if level, err := logrus.ParseLevel(cfg.Level); err == nil {
			logger.SetLevel(level)
		}
	}
	return &LogrusSink{logger: logger}
}

func (s *LogrusSink) Write(event logging.Event) error {
	if s == nil || s.logger == nil {
		return nil
	}
	entry := s.logger.WithFields(logrus.Fields{
		"tick":     event.Tick,
		"actor":    formatEntity(event.Actor),
		"category": event.Category,
	})
	if len(event.Targets) > 0 {
		entry = entry.WithField("targets", formatTargets(event.Targets))
	}
	if event.Payload != nil {
		entry = entry.WithField("payload", event.Payload)
	}
	if event.TraceID != "" {
		entry = entry.WithField("traceId", event.TraceID)
	}
	switch event.Severity {
	case logging.SeverityDebug:
		entry.Debug(string(event.Type))
	case logging.SeverityWarn:
		entry.Warn(string(event.Type))
	case logging.SeverityError:
		entry.Error(string(event.Type))
	default:
		entry.Info(string(event.Type))
	}
	return nil
}

func (s *LogrusSink) Close(context.Context) error {
	return nil
}
