// Package logger provides the bot's logging system. Every message goes
// through logrus: a colored console formatter, a file hook for combined.log
// and error.log, and a hook that forwards entries to Discord webhooks.
package logger

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
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

type levelStyle struct {
	name  string
	ansi  string
	embed int
}

var levelStyles = [...]levelStyle{
	LevelCritical: {"CRITICAL", "\033[1;31m", 0xFF0000},
	LevelError:    {"ERROR", "\033[31m", 0xFF0000},
	LevelWarn:     {"WARN", "\033[33m", 0xFFFF00},
	LevelSuccess:  {"SUCCESS", "\033[32m", 0x00FF00},
	LevelInfo:     {"INFO", "\033[36m", 0x0000FF},
	LevelDebug:    {"DEBUG", "\033[35m", 0x800080},
	LevelSystem:   {"SYSTEM", "\033[34m", 0x808080},
}

func (l LogLevel) style() levelStyle {
	if l < 0 || int(l) >= len(levelStyles) {
		return levelStyle{"UNKNOWN", colorReset, 0xFFFFFF}
	}
	return levelStyles[l]
}

func (l LogLevel) String() string { return l.style().name }

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string { return l.style().ansi }

// DiscordColor returns the embed color used by the webhooks
func (l LogLevel) DiscordColor() int { return l.style().embed }

// logrusLevel maps a level onto logrus. Critical stays at ErrorLevel because
// logrus panics on PanicLevel entries.
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

const (
	colorReset      = "\033[0m"
	timestampFormat = "2006-01-02 15:04:05"

	fieldLevel  = "pancyLevel"
	fieldPrefix = "prefix"
)

// Logger is the main logging structure
type Logger struct {
	logrus          *logrus.Logger
	errorWebhookURL string
	logsWebhookURL  string
	httpClient      *http.Client
	logFile         *os.File
	errorFile       *os.File
}

// logger is the global logger instance
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

// NewLogger creates a new Logger instance writing to ./logs
func NewLogger(errorWebhook, logsWebhook string) *Logger {
	return newLogger(filepath.Join(".", "logs"), errorWebhook, logsWebhook)
}

func newLogger(logsDir, errorWebhook, logsWebhook string) *Logger {
	l := &Logger{
		logrus:          logrus.New(),
		errorWebhookURL: errorWebhook,
		logsWebhookURL:  logsWebhook,
		httpClient:      &http.Client{Timeout: 5 * time.Second},
	}

	l.logrus.SetLevel(logrus.DebugLevel)
	l.logrus.SetOutput(os.Stdout)
	l.logrus.SetFormatter(&consoleFormatter{colors: true})

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

	l.logrus.AddHook(&fileHook{logger: l, formatter: &consoleFormatter{}})
	if errorWebhook != "" || logsWebhook != "" {
		l.logrus.AddHook(&webhookHook{logger: l})
	}

	return l
}

// consoleFormatter renders "[time] [LEVEL] [prefix]: message".
type consoleFormatter struct {
	colors bool
}

func (f *consoleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := levelOf(entry)
	prefix, _ := entry.Data[fieldPrefix].(string)

	name := level.String()
	if f.colors {
		name = level.Color() + name + colorReset
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] [%s] [%s]: %s\n", entry.Time.Format(timestampFormat), name, prefix, entry.Message)
	return b.Bytes(), nil
}

func levelOf(entry *logrus.Entry) LogLevel {
	if level, ok := entry.Data[fieldLevel].(LogLevel); ok {
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
	default:
		return LevelInfo
	}
}

// fileHook writes plain lines to combined.log, and error lines to error.log.
type fileHook struct {
	logger    *Logger
	formatter logrus.Formatter
	mu        sync.Mutex
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.logger.logFile != nil {
		h.logger.logFile.Write(line)
	}
	if levelOf(entry) <= LevelError && h.logger.errorFile != nil {
		h.logger.errorFile.Write(line)
	}
	return nil
}

// webhookHook forwards entries to Discord without blocking the caller.
type webhookHook struct {
	logger *Logger
}

func (h *webhookHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *webhookHook) Fire(entry *logrus.Entry) error {
	prefix, _ := entry.Data[fieldPrefix].(string)
	go h.logger.sendToWebhook(levelOf(entry), entry.Message, prefix)
	return nil
}

type webhookFooter struct {
	Text string `json:"text"`
}

type webhookEmbed struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Color       int           `json:"color"`
	Timestamp   string        `json:"timestamp"`
	Footer      webhookFooter `json:"footer"`
}

type webhookPayload struct {
	Embeds []webhookEmbed `json:"embeds"`
}

// webhookFor picks the error webhook for errors and the logs webhook for the
// rest.
func (l *Logger) webhookFor(level LogLevel) string {
	if level <= LevelError {
		return l.errorWebhookURL
	}
	return l.logsWebhookURL
}

// sendToWebhook sends the log message to the appropriate Discord webhook
func (l *Logger) sendToWebhook(level LogLevel, message, prefix string) {
	webhookURL := l.webhookFor(level)
	if webhookURL == "" {
		return
	}
	l.PostEmbed(webhookURL, fmt.Sprintf("[%s] %s", level, prefix), fmt.Sprintf("```%s```", message), level.DiscordColor())
}

// PostEmbed posts one embed to a Discord webhook. Failures are dropped so
// logging never recurses into itself.
func (l *Logger) PostEmbed(webhookURL, title, description string, color int) {
	if webhookURL == "" {
		return
	}
	jsonData, err := json.Marshal(webhookPayload{Embeds: []webhookEmbed{{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      webhookFooter{Text: "💫 Developed by PancyStudio | PancyMusic Go"},
	}}})
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// SetLevel sets the minimum logrus level ("debug", "info", "warn", "error").
// Success and System messages log at info.
func (l *Logger) SetLevel(name string) error {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	l.logrus.SetLevel(level)
	return nil
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

func (l *Logger) log(level LogLevel, message string, prefix string) {
	l.logrus.WithFields(logrus.Fields{
		fieldLevel:  level,
		fieldPrefix: prefix,
	}).Log(level.logrusLevel(), message)
}

// Logging methods

// Critical logs a critical message
func (l *Logger) Critical(message string, prefix string) {
	l.log(LevelCritical, message, prefix)
}

// Error logs an error message
func (l *Logger) Error(message string, prefix string) {
	l.log(LevelError, message, prefix)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, prefix string) {
	l.log(LevelWarn, message, prefix)
}

// Success logs a success message
func (l *Logger) Success(message string, prefix string) {
	l.log(LevelSuccess, message, prefix)
}

// Info logs an info message
func (l *Logger) Info(message string, prefix string) {
	l.log(LevelInfo, message, prefix)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, prefix string) {
	l.log(LevelDebug, message, prefix)
}

// System logs a system message
func (l *Logger) System(message string, prefix string) {
	l.log(LevelSystem, message, prefix)
}

// Package-level functions for convenience

// Critical logs a critical message using the global logger
func Critical(message string, prefix string) {
	Get().Critical(message, prefix)
}

// Error logs an error message using the global logger
func Error(message string, prefix string) {
	Get().Error(message, prefix)
}

// Warn logs a warning message using the global logger
func Warn(message string, prefix string) {
	Get().Warn(message, prefix)
}

// Success logs a success message using the global logger
func Success(message string, prefix string) {
	Get().Success(message, prefix)
}

// Info logs an info message using the global logger
func Info(message string, prefix string) {
	Get().Info(message, prefix)
}

// Debug logs a debug message using the global logger
func Debug(message string, prefix string) {
	Get().Debug(message, prefix)
}

// System logs a system message using the global logger
func System(message string, prefix string) {
	Get().System(message, prefix)
}

// PostEmbed posts an embed through the global logger's HTTP client
func PostEmbed(webhookURL, title, description string, color int) {
	Get().PostEmbed(webhookURL, title, description, color)
}
