package logging

import (
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
)

type restyAdapter slog.Logger

// RestyAdapter bridges a slog.Logger into the resty.Logger contract.
func RestyAdapter(logger *slog.Logger) resty.Logger {
	logger = Child(logger, "resty")

	return (*restyAdapter)(logger)
}

func (l *restyAdapter) Errorf(message string, v ...any) {
	if len(v) > 0 {
		message = fmt.Sprintf(message, v...)
	}
	(*slog.Logger)(l).Error(message)
}

func (l *restyAdapter) Warnf(message string, v ...any) {
	if len(v) > 0 {
		message = fmt.Sprintf(message, v...)
	}
	(*slog.Logger)(l).Warn(message)
}

func (l *restyAdapter) Debugf(message string, v ...any) {
	if len(v) > 0 {
		message = fmt.Sprintf(message, v...)
	}
	(*slog.Logger)(l).Debug(message)
}
