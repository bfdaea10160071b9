// Package logger provides the structured logging system used across the bot.
// Every record goes through logrus; hooks fan it out to the console, the log
// files and the Discord webhooks.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelCritical LogLevel = iota
	LevelError
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
	LevelSystem
)

// Fields carries structured context attached to a record
type Fields = logrus.Fields

const (
	fieldSeverity = "severity"
	fieldPrefix   = "prefix"
)

var levelNames = map[LogLevel]string{
	LevelCritical: "CRITICAL",
	LevelError:    "ERROR",
	LevelWarn:     "WARN",
	LevelSuccess:  "SUCCESS",
	LevelInfo:     "INFO",
	LevelDebug:    "DEBUG",
	LevelSystem:   "SYSTEM",
}

// String returns the string representation of the log level
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string {
	switch l {
	case LevelCritical:
		return "\033[1;31m"
	case LevelError:
		return "\033[31m"
	case LevelWarn:
		return "\033[33m"
	case LevelSuccess:
		return "\033[32m"
	case LevelInfo:
		return "\033[36m"
	case LevelDebug:
		return "\033[35m"
	case LevelSystem:
		return "\033[34m"
	default:
		return colorReset
	}
}

// DiscordColor returns the Discord embed color for the log level
func (l LogLevel) DiscordColor() int {
	switch l {
	case LevelCritical, LevelError:
		return 0xFF0000
	case LevelWarn:
		return 0xFFFF00
	case LevelSuccess:
		return 0x00FF00
	case LevelInfo:
		return 0x0000FF
	case LevelDebug:
		return 0x800080
	case LevelSystem:
		return 0x808080
	default:
		return 0xFFFFFF
	}
}

// logrusLevel maps the bot levels onto the logrus ones
func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelCritical, LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

const colorReset = "\033[0m"

// Logger is the main logging structure
type Logger struct {
	logrus    *logrus.Logger
	logFile   *os.File
	errorFile *os.File
}

var (
	logger *Logger
	once   sync.Once
)

// Init initializes the global logger instance
func Init(errorWebhook, logsWebhook string) *Logger {
	once.Do(func() {
		logger = NewLogger(errorWebhook, logsWebhook)
	})
	return logger
}

// Get returns the global logger instance
func Get() *Logger {
	once.Do(func() {
		logger = NewLogger("", "")
	})
	return logger
}

// NewLogger creates a logger writing to ./logs and the given webhooks
func NewLogger(errorWebhook, logsWebhook string) *Logger {
	return newLogger(filepath.Join(".", "logs"), os.Stdout, errorWebhook, logsWebhook)
}

func newLogger(logsDir string, console io.Writer, errorWebhook, logsWebhook string) *Logger {
	l := &Logger{logrus: logrus.New()}
	l.logrus.SetLevel(logrus.DebugLevel)
	l.logrus.SetOutput(console)
	l.logrus.SetFormatter(&lineFormatter{colors: true})

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Printf("Error creating logs directory: %v\n", err)
	}

	var err error
	l.logFile, err = os.OpenFile(filepath.Join(logsDir, "combined.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error opening combined log file: %v\n", err)
	}
	l.errorFile, err = os.OpenFile(filepath.Join(logsDir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error opening error log file: %v\n", err)
	}

	l.logrus.AddHook(&fileHook{combined: l.logFile, errors: l.errorFile})
	if errorWebhook != "" || logsWebhook != "" {
		l.logrus.AddHook(&webhookHook{
			errorURL: errorWebhook,
			logsURL:  logsWebhook,
			client:   &http.Client{Timeout: 5 * time.Second},
		})
	}
	return l
}

// Close closes the log files
func (l *Logger) Close() {
	if l.logFile != nil {
		l.logFile.Close()
	}
	if l.errorFile != nil {
		l.errorFile.Close()
	}
}

func (l *Logger) log(level LogLevel, fields Fields, message, prefix string) {
	data := make(Fields, len(fields)+2)
	for k, v := range fields {
		data[k] = v
	}
	data[fieldSeverity] = level
	data[fieldPrefix] = prefix
	l.logrus.WithFields(data).Log(level.logrusLevel(), message)
}

// Critical logs a critical message
func (l *Logger) Critical(message string, prefix string) { l.log(LevelCritical, nil, message, prefix) }

// Error logs an error message
func (l *Logger) Error(message string, prefix string) { l.log(LevelError, nil, message, prefix) }

// Warn logs a warning message
func (l *Logger) Warn(message string, prefix string) { l.log(LevelWarn, nil, message, prefix) }

// Success logs a success message
func (l *Logger) Success(message string, prefix string) { l.log(LevelSuccess, nil, message, prefix) }

// Info logs an info message
func (l *Logger) Info(message string, prefix string) { l.log(LevelInfo, nil, message, prefix) }

// Debug logs a debug message
func (l *Logger) Debug(message string, prefix string) { l.log(LevelDebug, nil, message, prefix) }

// System logs a system message
func (l *Logger) System(message string, prefix string) { l.log(LevelSystem, nil, message, prefix) }

// WithFields returns an Entry that attaches fields to every record
func (l *Logger) WithFields(fields Fields, prefix string) *Entry {
	return &Entry{logger: l, fields: fields, prefix: prefix}
}

// Entry is a prefixed logger carrying structured fields
type Entry struct {
	logger *Logger
	fields Fields
	prefix string
}

// WithField returns a copy of e with key set
func (e *Entry) WithField(key string, value interface{}) *Entry {
	fields := make(Fields, len(e.fields)+1)
	for k, v := range e.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Entry{logger: e.logger, fields: fields, prefix: e.prefix}
}

func (e *Entry) Error(message string)   { e.logger.log(LevelError, e.fields, message, e.prefix) }
func (e *Entry) Warn(message string)    { e.logger.log(LevelWarn, e.fields, message, e.prefix) }
func (e *Entry) Success(message string) { e.logger.log(LevelSuccess, e.fields, message, e.prefix) }
func (e *Entry) Info(message string)    { e.logger.log(LevelInfo, e.fields, message, e.prefix) }
func (e *Entry) Debug(message string)   { e.logger.log(LevelDebug, e.fields, message, e.prefix) }

// Package-level functions for convenience

// Critical logs a critical message using the global logger
func Critical(message string, prefix string) { Get().Critical(message, prefix) }

// Error logs an error message using the global logger
func Error(message string, prefix string) { Get().Error(message, prefix) }

// Warn logs a warning message using the global logger
func Warn(message string, prefix string) { Get().Warn(message, prefix) }

// Success logs a success message using the global logger
func Success(message string, prefix string) { Get().Success(message, prefix) }

// Info logs an info message using the global logger
func Info(message string, prefix string) { Get().Info(message, prefix) }

// Debug logs a debug message using the global logger
func Debug(message string, prefix string) { Get().Debug(message, prefix) }

// System logs a system message using the global logger
func System(message string, prefix string) { Get().System(message, prefix) }

// WithFields returns a structured entry on the global logger
func WithFields(fields Fields, prefix string) *Entry { return Get().WithFields(fields, prefix) }

// severityOf recovers the bot level stored on a logrus entry
func severityOf(entry *logrus.Entry) LogLevel {
	if level, ok := entry.Data[fieldSeverity].(LogLevel); ok {
		return level
	}
	switch entry.Level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return LevelCritical
	case logrus.ErrorLevel:
		return LevelError
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug
	}
	return LevelInfo
}

// lineFormatter renders "[time] [LEVEL] [prefix]: message k=v"
type lineFormatter struct {
	colors bool
}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := severityOf(entry)
	prefix, _ := entry.Data[fieldPrefix].(string)

	var b bytes.Buffer
	b.WriteString("[" + entry.Time.Format("2006-01-02 15:04:05") + "] [")
	if f.colors {
		b.WriteString(level.Color() + level.String() + colorReset)
	} else {
		b.WriteString(level.String())
	}
	b.WriteString("] [" + prefix + "]: " + entry.Message)
	if extra := formatFields(entry.Data); extra != "" {
		b.WriteString(" " + extra)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func formatFields(data logrus.Fields) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		if k == fieldSeverity || k == fieldPrefix {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(parts, " ")
}

// fileHook mirrors every record to combined.log and errors to error.log
type fileHook struct {
	mu       sync.Mutex
	combined io.Writer
	errors   io.Writer
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := (&lineFormatter{}).Format(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.combined != nil {
		h.combined.Write(line)
	}
	if severityOf(entry) <= LevelError && h.errors != nil {
		h.errors.Write(line)
	}
	return nil
}

// webhookHook posts records as Discord embeds
type webhookHook struct {
	errorURL string
	logsURL  string
	client   *http.Client
}

func (h *webhookHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *webhookHook) Fire(entry *logrus.Entry) error {
	level := severityOf(entry)
	url := h.logsURL
	if level <= LevelError {
		url = h.errorURL
	}
	if url == "" {
		return nil
	}

	prefix, _ := entry.Data[fieldPrefix].(string)
	description := entry.Message
	if extra := formatFields(entry.Data); extra != "" {
		description += "\n" + extra
	}
	payload := map[string]interface{}{
		"embeds": []interface{}{map[string]interface{}{
			"title":       fmt.Sprintf("[%s] %s", level.String(), prefix),
			"description": fmt.Sprintf("```%s```", description),
			"color":       level.DiscordColor(),
			"timestamp":   entry.Time.Format(time.RFC3339),
			"footer": map[string]string{
				"text": "💫 Developed by PancyStudio | PancyModlog",
			},
		}},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	go func() {
		resp, err := h.client.Post(url, "application/json", bytes.NewReader(jsonData))
		if err != nil {
			return
		}
		resp.Body.Close()
	}()
	return nil
}
