// Package logging wraps github.com/charmbracelet/log in a structured,
// leveled, field-carrying shape shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	cblog "github.com/charmbracelet/log"
)

// Options configures a Logger.
type Options struct {
	Writer       io.Writer
	Level        string // debug, info, warn, error; defaults to info
	ReportCaller bool
	JSON         bool
}

// Logger is a structured logger carrying a persistent set of key/value
// fields, accumulated via With/WithFields as it is passed down through
// run, step, and connector scopes.
type Logger struct {
	base   *cblog.Logger
	fields []interface{}
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level := cblog.InfoLevel
	if opts.Level != "" {
		parsed, err := cblog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	var formatter cblog.Formatter
	if opts.JSON {
		formatter = cblog.JSONFormatter
	}

	base := cblog.NewWithOptions(writer, cblog.Options{
		Level:           level,
		ReportTimestamp: true,
		ReportCaller:    opts.ReportCaller,
		Formatter:       formatter,
	})

	return &Logger{base: base}, nil
}

// Nop returns a Logger that discards everything; useful as a default
// collaborator in tests.
func Nop() *Logger {
	l, _ := New(Options{Writer: io.Discard})
	return l
}

// With derives a logger carrying an additional key/value pair on top of
// its parent's fields.
func (l *Logger) With(key string, value interface{}) *Logger {
	if l == nil {
		return l
	}
	next := make([]interface{}, len(l.fields), len(l.fields)+2)
	copy(next, l.fields)
	next = append(next, key, value)
	return &Logger{base: l.base, fields: next}
}

// WithFields derives a logger carrying every key/value pair in fields,
// applied in sorted key order for deterministic output.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	if l == nil || len(fields) == 0 {
		return l
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := make([]interface{}, len(l.fields), len(l.fields)+len(fields)*2)
	copy(next, l.fields)
	for _, k := range keys {
		next = append(next, k, fields[k])
	}
	return &Logger{base: l.base, fields: next}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(l.base.Debug, msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log(l.base.Info, msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log(l.base.Warn, msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(l.base.Error, msg, kv) }

func (l *Logger) log(fn func(interface{}, ...interface{}), msg string, kv []interface{}) {
	if l == nil || l.base == nil {
		return
	}
	payload := make([]interface{}, 0, len(l.fields)+len(kv))
	payload = append(payload, l.fields...)
	payload = append(payload, kv...)
	fn(msg, payload...)
}
