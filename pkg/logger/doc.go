// Package logger builds context-aware slog loggers for the FocusForge
// client and provides attribute helpers with consistent key names.
//
// New creates a *slog.Logger from functional options (format, level,
// output, static attributes, context extractors). The handler is wrapped in
// LogHandlerDecorator, which runs every registered ContextExtractor at log
// time, so values such as the request ID of an outgoing API call end up on
// each record without being passed around explicitly.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("FOCUSFORGE_ENV"), "focusforge"),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "session changed",
//	    logger.Transition("initializing", "authenticated"),
//	    logger.UserID(user.ID),
//	)
//
// By default records are written as text to stderr at info level.
// Discard returns a logger for tests and library defaults that must stay
// silent.
package logger
