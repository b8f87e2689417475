package util

import (
	"log/slog"
	"os"
)

var Logger *slog.Logger

func init() {
	// Default to JSON handler writing to stdout at debug level; the
	// configuration has no setting that changes the level.
	Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	slog.SetDefault(Logger)
}
