package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger — логгер сервиса. Все слои получают его через конструкторы.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(err error, format string, args ...any)
	// With возвращает логгер с дополнительным полем (например, request_id).
	With(key string, value any) Logger
}

type zerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger создаёт логгер поверх zerolog.
// level — debug|info|warn|error, format — json|console.
func NewZerologLogger(level string, format string) Logger {
	return newZerologLogger(os.Stdout, level, format)
}

func newZerologLogger(out io.Writer, level string, format string) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return &zerologLogger{
		l: zerolog.New(out).Level(lvl).With().Timestamp().Logger(),
	}
}

// NewNop возвращает логгер, который ничего не пишет.
func NewNop() Logger {
	return &zerologLogger{l: zerolog.Nop()}
}

func (z *zerologLogger) Debugf(format string, args ...any) {
	z.l.Debug().Msgf(format, args...)
}

func (z *zerologLogger) Infof(format string, args ...any) {
	z.l.Info().Msgf(format, args...)
}

func (z *zerologLogger) Warnf(format string, args ...any) {
	z.l.Warn().Msgf(format, args...)
}

func (z *zerologLogger) Errorf(err error, format string, args ...any) {
	z.l.Error().Err(err).Msgf(format, args...)
}

func (z *zerologLogger) With(key string, value any) Logger {
	return &zerologLogger{l: z.l.With().Interface(key, value).Logger()}
}
