package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = newLogger(consoleWriter(os.Stderr), zerolog.InfoLevel)
}

func consoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
	}
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
}

// SetJSON switches the global logger between JSON lines and console output
func SetJSON(enabled bool) {
	level := Log.GetLevel()
	if enabled {
		Log = newLogger(os.Stderr, level)
		return
	}
	Log = newLogger(consoleWriter(os.Stderr), level)
}

// Component returns a child logger tagged with a component name
func Component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}
