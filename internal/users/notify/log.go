package notify

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of sending them. It is the
// development default and prints the body, OTP included.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(ctx context.Context, m Message) error {
	s.Logger.InfoContext(ctx, "email",
		"to", m.To,
		"subject", m.Subject,
		"body", m.Body,
	)
	return nil
}
