package mail

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	start := time.Now()
	s.log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("email not sent (log driver)")
	dispatchDuration.WithLabelValues("log").Observe(time.Since(start).Seconds())
	return nil
}
