package notify

import (
	"context"
	"log/slog"

	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

var _ ports.Notifier = (*LogNotifier)(nil)

// LogNotifier writes each event to a structured log. It is the default
// channel when no delivery endpoint is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a LogNotifier writing to logger, or to
// slog.Default() when logger is nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the event at info level.
func (l *LogNotifier) Notify(ctx context.Context, userID string, event domain.EventType, payload map[string]any) error {
	l.logger.InfoContext(ctx, "notification",
		slog.String("user_id", userID),
		slog.String("event", string(event)),
		slog.Any("payload", payload),
	)
	return nil
}
