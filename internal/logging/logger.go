package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithRun returns a logger with the run identity attached.
// Use this for all logging within a single stack run.
func WithRun(runID string) *slog.Logger {
	return slog.With("run_id", runID)
}

// WithService returns a logger scoped to one managed service.
// Child process output is forwarded through loggers created here.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With("service", service)
}
