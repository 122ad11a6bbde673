package mail

import (
	"context"
	"log/slog"
)

// LogNotifier writes messages to the application log instead of sending them.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, subject, body, from string, to []string) error {
	n.logger.InfoContext(ctx, "outgoing mail", "from", from, "to", to, "subject", subject, "body", body)
	return nil
}
