package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes alerts to the structured log. It is the sink used when no
// broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, alert Alert) error {
	level := slog.LevelInfo
	if alert.Kind == KindLapsed {
		level = slog.LevelWarn
	}
	n.logger.Log(ctx, level, "license alert",
		"kind", alert.Kind,
		"agent_id", alert.AgentID,
		"jurisdiction", alert.Jurisdiction,
		"has_phone", alert.Phone != "",
		"text", alert.Text(),
	)
	return nil
}
