package logger

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

func TestNewLogger(t *testing.T) {
	l := newLogger(t.TempDir(), "", "")
	if l == nil {
		t.Fatal("Expected logger to be created, got nil")
	}

	// Test that logger methods don't panic
	l.Info("Test info message", "TEST")
	l.Warn("Test warning message", "TEST")
	l.Debug("Test debug message", "TEST")
	l.System("Test system message", "TEST")
	l.Success("Test success message", "TEST")

	l.Close()
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelCritical, "CRITICAL"},
		{LevelError, "ERROR"},
		{LevelWarn, "WARN"},
		{LevelSuccess, "SUCCESS"},
		{LevelInfo, "INFO"},
		{LevelDebug, "DEBUG"},
		{LevelSystem, "SYSTEM"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("LogLevel.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLogLevelColor(t *testing.T) {
	levels := []LogLevel{
		LevelCritical,
		LevelError,
		LevelWarn,
		LevelSuccess,
		LevelInfo,
		LevelDebug,
		LevelSystem,
	}

	for _, level := range levels {
		t.Run(level.String(), func(t *testing.T) {
			color := level.Color()
			if color == "" {
				t.Error("Expected color to be non-empty")
			}
		})
	}
}

func TestLogLevelDiscordColor(t *testing.T) {
	tests := []struct {
		level LogLevel
		color int
	}{
		{LevelCritical, 0xFF0000},
		{LevelError, 0xFF0000},
		{LevelWarn, 0xFFFF00},
		{LevelSuccess, 0x00FF00},
		{LevelInfo, 0x0000FF},
		{LevelDebug, 0x800080},
		{LevelSystem, 0x808080},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := tt.level.DiscordColor(); got != tt.color {
				t.Errorf("LogLevel.DiscordColor() = %v, want %v", got, tt.color)
			}
		})
	}
}

func TestLogFileCreation(t *testing.T) {
	logsDir := filepath.Join(t.TempDir(), "logs")

	l := newLogger(logsDir, "", "")
	defer l.Close()

	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		t.Error("Expected logs directory to be created")
	}

	combinedLog := filepath.Join(logsDir, "combined.log")
	errorLog := filepath.Join(logsDir, "error.log")

	if _, err := os.Stat(combinedLog); os.IsNotExist(err) {
		t.Error("Expected combined.log to be created")
	}

	if _, err := os.Stat(errorLog); os.IsNotExist(err) {
		t.Error("Expected error.log to be created")
	}
}

func TestFileHookSplitsErrors(t *testing.T) {
	logsDir := t.TempDir()
	l := newLogger(logsDir, "", "")

	l.Info("pista iniciada", "Queue")
	l.Error("nodo caído", "Lavalink")
	l.Close()

	combined, _ := os.ReadFile(filepath.Join(logsDir, "combined.log"))
	errs, _ := os.ReadFile(filepath.Join(logsDir, "error.log"))

	if !strings.Contains(string(combined), "[INFO] [Queue]: pista iniciada") {
		t.Errorf("combined.log = %q, missing info line", combined)
	}
	if !strings.Contains(string(combined), "[ERROR] [Lavalink]: nodo caído") {
		t.Errorf("combined.log = %q, missing error line", combined)
	}
	if strings.Contains(string(errs), "pista iniciada") {
		t.Errorf("error.log = %q, want only errors", errs)
	}
	if !strings.Contains(string(errs), "nodo caído") {
		t.Errorf("error.log = %q, missing error line", errs)
	}
	if strings.Contains(string(combined), "\033[") {
		t.Error("file output contains color codes")
	}
}

func TestWebhookFor(t *testing.T) {
	l := &Logger{errorWebhookURL: "err", logsWebhookURL: "logs"}

	tests := []struct {
		level LogLevel
		want  string
	}{
		{LevelCritical, "err"},
		{LevelError, "err"},
		{LevelWarn, "logs"},
		{LevelDebug, "logs"},
	}
	for _, tt := range tests {
		if got := l.webhookFor(tt.level); got != tt.want {
			t.Errorf("webhookFor(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSendToWebhook(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Embeds []struct {
				Title string `json:"title"`
			} `json:"embeds"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		if len(payload.Embeds) > 0 {
			got <- payload.Embeds[0].Title
		}
	}))
	defer srv.Close()

	l := &Logger{logsWebhookURL: srv.URL, httpClient: srv.Client()}
	l.sendToWebhook(LevelInfo, "hola", "Test")

	if title := <-got; title != "[INFO] Test" {
		t.Errorf("title = %v, want %v", title, "[INFO] Test")
	}
}

func TestGlobalLoggerInit(t *testing.T) {
	// Reset the global logger for this test
	logger = nil
	once = sync.Once{}

	l := Init("", "")
	if l == nil {
		t.Fatal("Expected Init to return a logger")
	}

	// Calling Init again should return the same logger
	l2 := Init("different", "different")
	if l != l2 {
		t.Error("Expected Init to return the same logger on subsequent calls")
	}

	// Get should return the same logger
	l3 := Get()
	if l != l3 {
		t.Error("Expected Get to return the same logger")
	}

	l.Close()
}

func TestUnknownLevelStyle(t *testing.T) {
	level := LogLevel(42)
	if level.String() != "UNKNOWN" {
		t.Errorf("String() = %v, want %v", level.String(), "UNKNOWN")
	}
	if level.DiscordColor() != 0xFFFFFF {
		t.Errorf("DiscordColor() = %v, want %v", level.DiscordColor(), 0xFFFFFF)
	}
}

func TestSetLevel(t *testing.T) {
	l := newLogger(t.TempDir(), "", "")
	defer l.Close()

	if err := l.SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel(warn) returned error: %v", err)
	}
	if l.logrus.IsLevelEnabled(logrus.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if err := l.SetLevel("ruidoso"); err == nil {
		t.Error("SetLevel should reject an unknown level")
	}
}
