// Package logging wraps zerolog with the structured fields the
// indexer daemon's components attach on every line: scheduler state,
// service id, and current URI. It plays the same role as the
// teacher's tracing.Logger wrapper, trimmed of the HTTP/Echo
// middleware a batch indexer has no use for.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with indexer-domain convenience fields.
type Logger struct {
	log zerolog.Logger
}

// New creates a JSON structured logger writing to w (stdout if nil).
func New(w io.Writer, component string) *Logger {
	if w == nil {
		w = os.Stdout
	}
	log := zerolog.New(w).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{log: log}
}

// NewConsole creates a human-readable console logger for interactive use.
func NewConsole(component string) *Logger {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{log: log}
}

// WithState returns a logger annotated with the scheduler state name.
func (l *Logger) WithState(state string) *Logger {
	return &Logger{log: l.log.With().Str("state", state).Logger()}
}

// WithURI returns a logger annotated with the item currently being processed.
func (l *Logger) WithURI(uri string) *Logger {
	return &Logger{log: l.log.With().Str("uri", uri).Logger()}
}

func (l *Logger) Debug(msg string) { l.log.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.log.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.log.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.log.Error().Msg(msg) }

// ErrorWithErr logs msg with err attached as a structured field.
func (l *Logger) ErrorWithErr(err error, msg string) {
	l.log.Error().Err(err).Msg(msg)
}

// StateChange logs a scheduler state transition (spec §4.6: "emit a
// state-change notification").
func (l *Logger) StateChange(from, to string) {
	l.log.Info().
		Str("event", "state_change").
		Str("from", from).
		Str("to", to).
		Msg("scheduler state changed")
}

// Progress logs a progress report (spec §4.6: two counters plus a
// current URI, emitted every <= 250 items).
func (l *Logger) Progress(state string, itemsDone, itemsTotal int, uri string) {
	l.log.Info().
		Str("event", "progress").
		Str("state", state).
		Int("items_done", itemsDone).
		Int("items_total", itemsTotal).
		Str("uri", uri).
		Msg("indexing progress")
}

// GetZerolog exposes the underlying logger for callers that need the
// full builder API.
func (l *Logger) GetZerolog() *zerolog.Logger { return &l.log }
