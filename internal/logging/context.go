package logging

import (
	"context"
	"log/slog"
	"os"
)

type loggerContextKey struct{}

// Returns the request logger, or a stdout logger marked as fallback when none is set
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.New(NewHandler(os.Stdout, "")).With(slog.String("logger", "fallback"))
}

func AddToContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// Stores a logger carrying the given attributes in addition to the current ones
func AddMetaToContext(ctx context.Context, attrs ...slog.Attr) context.Context {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return AddToContext(ctx, FromContext(ctx).With(args...))
}
