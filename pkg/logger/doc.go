// Package logger builds the *slog.Logger used across memkeep.
//
// New applies functional options (format, level, output, static attributes,
// context extractors) and wraps the concrete slog handler with
// LogHandlerDecorator, which pulls request-scoped values out of the context on
// every record.
//
// Attribute helpers in attr.go keep key names consistent between packages:
//
//	log.ErrorContext(ctx, "quota check failed",
//		logger.UserID(userID),
//		logger.Operation(op),
//		logger.Error(err),
//	)
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "memkeep"),
//		logger.WithLevelName(cfg.LogLevel),
//	)
//	logger.SetAsDefault(log)
package logger
