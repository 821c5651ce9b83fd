package logging

import (
	"context"
	"log/slog"

	"github.com/icellan/wallet-toolbox/pkg/defs"
)

// Common attribute keys.
const (
	ServiceKey   = "service"
	ErrorKey     = "error"
	UserIDKey    = "userId"
	ReferenceKey = "reference"
	TxIDKey      = "txid"
	OriginatorKey = "originator"
)

var strLevelToSlog = map[defs.LogLevel]slog.Level{
	defs.LogLevelDebug: slog.LevelDebug,
	defs.LogLevelInfo:  slog.LevelInfo,
	defs.LogLevelWarn:  slog.LevelWarn,
	defs.LogLevelError: slog.LevelError,
}

// Child returns a new logger with the given service name added to the logger attrs.
func Child(logger *slog.Logger, serviceName string) *slog.Logger {
	return DefaultIfNil(logger).With(
		slog.String(ServiceKey, serviceName),
	)
}

// Error returns a slog.Attr containing the provided error message under the "error" key.
func Error(err error) slog.Attr {
	return slog.String(ErrorKey, err.Error())
}

// UserID creates a slog.Attr representing a user ID.
func UserID(userID int) slog.Attr {
	return slog.Int(UserIDKey, userID)
}

// Reference creates a slog.Attr carrying an action reference.
func Reference(ref string) slog.Attr {
	return slog.String(ReferenceKey, ref)
}

// TxID creates a slog.Attr carrying a transaction id.
func TxID(txID string) slog.Attr {
	return slog.String(TxIDKey, txID)
}

// DefaultIfNil returns the default logger if the given logger is nil.
func DefaultIfNil(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// IsDebug reports whether the logger emits debug records.
func IsDebug(logger *slog.Logger) bool {
	return logger.Enabled(context.Background(), slog.LevelDebug)
}
