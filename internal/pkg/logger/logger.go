package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level is the severity of an entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel maps a config string ("debug", "info", ...) to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	for l, name := range levelNames {
		if strings.EqualFold(name, s) {
			return l
		}
	}
	return INFO
}

// sink is shared by a logger and every child made with With.
type sink struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	redact bool
}

// Logger writes one JSON object per line. Values under email and
// customer id keys, and addresses inside any value, are masked unless
// redaction is off.
type Logger struct {
	sink   *sink
	fields []interface{}
}

// New returns a logger writing entries at or above level to out.
func New(out io.Writer, level Level) *Logger {
	return &Logger{sink: &sink{out: out, level: level, redact: true}}
}

var defaultLogger = New(os.Stderr, INFO)

// SetLevel sets the minimum level of the package logger.
func SetLevel(l Level) {
	defaultLogger.sink.mu.Lock()
	defaultLogger.sink.level = l
	defaultLogger.sink.mu.Unlock()
}

// SetRedactPII turns masking on or off for the package logger.
func SetRedactPII(r bool) {
	defaultLogger.sink.mu.Lock()
	defaultLogger.sink.redact = r
	defaultLogger.sink.mu.Unlock()
}

// SetOutput redirects the package logger. Nil restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	defaultLogger.sink.mu.Lock()
	defaultLogger.sink.out = w
	defaultLogger.sink.mu.Unlock()
}

// With returns a child of the package logger that adds fields to every entry.
func With(fields ...interface{}) *Logger { return defaultLogger.With(fields...) }

func Debug(msg string, fields ...interface{}) { defaultLogger.write(DEBUG, msg, fields) }
func Info(msg string, fields ...interface{})  { defaultLogger.write(INFO, msg, fields) }
func Warn(msg string, fields ...interface{})  { defaultLogger.write(WARN, msg, fields) }
func Error(msg string, fields ...interface{}) { defaultLogger.write(ERROR, msg, fields) }

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...interface{}) *Logger {
	merged := make([]interface{}, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	return &Logger{sink: l.sink, fields: append(merged, fields...)}
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.write(DEBUG, msg, fields) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.write(INFO, msg, fields) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.write(WARN, msg, fields) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.write(ERROR, msg, fields) }

func (l *Logger) write(level Level, msg string, fields []interface{}) {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if level < s.level {
		return
	}

	entry := map[string]string{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": levelNames[level],
		"msg":   msg,
	}
	all := append(append([]interface{}{}, l.fields...), fields...)
	for i := 0; i < len(all); i += 2 {
		key := fmt.Sprint(all[i])
		if i+1 == len(all) {
			entry["!missing"] = key
			break
		}
		val := render(all[i+1])
		if s.redact {
			val = mask(key, val)
		}
		entry[key] = val
	}

	data, _ := json.Marshal(entry)
	s.out.Write(append(data, '\n'))
}

func render(v interface{}) string {
	switch v := v.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func mask(key, val string) string {
	key = strings.ToLower(key)
	switch {
	case strings.Contains(key, "email"):
		return RedactEmail(val)
	case strings.Contains(key, "customer") && strings.HasSuffix(key, "id"):
		return RedactID(val)
	}
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
