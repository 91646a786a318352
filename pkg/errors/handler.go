// Package errors counts runtime errors, reports them to a Discord webhook and
// shuts the bot down when too many happen in a short window.
package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/goccy/go-json"
)

// ErrorHandler manages error counting and reporting
type ErrorHandler struct {
	errorCount atomic.Int32
	maxErrors  int32

	webhookURL string
	httpClient *http.Client

	// shutdownFunc ends the voice sessions before exitFunc
	shutdownFunc func()
	exitFunc     func(code int)

	resetInterval time.Duration
	checkInterval time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// ReportErrorOptions is one webhook report
type ReportErrorOptions struct {
	Error   string
	Message string
	Guild   string
}

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookEmbed struct {
	Author      map[string]string `json:"author"`
	Description string            `json:"description"`
	Color       int               `json:"color"`
	Fields      []webhookField    `json:"fields,omitempty"`
	Footer      map[string]string `json:"footer"`
	Timestamp   string            `json:"timestamp"`
}

var (
	handler *ErrorHandler
	once    sync.Once
)

// Init starts the global error handler
func Init(webhookURL string, shutdownFunc func()) *ErrorHandler {
	once.Do(func() {
		handler = NewErrorHandler(webhookURL, shutdownFunc)
	})
	return handler
}

// Get returns the global error handler, nil before Init
func Get() *ErrorHandler {
	return handler
}

func NewErrorHandler(webhookURL string, shutdownFunc func()) *ErrorHandler {
	h := newHandler(webhookURL, shutdownFunc)
	go h.monitor()
	return h
}

func newHandler(webhookURL string, shutdownFunc func()) *ErrorHandler {
	return &ErrorHandler{
		maxErrors:     15,
		webhookURL:    webhookURL,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		shutdownFunc:  shutdownFunc,
		exitFunc:      os.Exit,
		resetInterval: 5 * time.Second,
		checkInterval: 1 * time.Second,
		stopChan:      make(chan struct{}),
	}
}

// monitor resets the counter every resetInterval and crashes once it goes
// over maxErrors.
func (h *ErrorHandler) monitor() {
	reset := time.NewTicker(h.resetInterval)
	check := time.NewTicker(h.checkInterval)
	defer reset.Stop()
	defer check.Stop()

	for {
		select {
		case <-reset.C:
			h.errorCount.Store(0)
		case <-check.C:
			if h.tooManyErrors() {
				h.crash()
				return
			}
		case <-h.stopChan:
			return
		}
	}
}

func (h *ErrorHandler) tooManyErrors() bool {
	return h.errorCount.Load() > h.maxErrors
}

// crash reports, runs the shutdown hook so voice sessions are closed, and
// exits.
func (h *ErrorHandler) crash() {
	start := time.Now()
	logger.Warn("Se detectó un número demasiado alto de errores. Apagando...", "CRITICAL")

	h.Report(ReportErrorOptions{
		Error:   "Critical Error",
		Message: "Número inusual de errores. Apagando...",
	})

	if h.shutdownFunc != nil {
		h.shutdownFunc()
	}

	logger.Warn(fmt.Sprintf("Finalizando proceso... Tiempo total: %v", time.Since(start)), "CRITICAL")
	h.exitFunc(1)
}

// Stop ends the monitor
func (h *ErrorHandler) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

func (h *ErrorHandler) IncrementError() {
	count := h.errorCount.Add(1)
	logger.Error(fmt.Sprintf("Errores en la ventana actual: %d", count), "AntiCrash")
}

// Count returns the errors counted in the current window.
func (h *ErrorHandler) Count() int {
	return int(h.errorCount.Load())
}

// HandlePanic counts a recovered panic and logs its stack
func (h *ErrorHandler) HandlePanic(recovered interface{}) {
	h.IncrementError()
	logger.Debug(string(debug.Stack()), "AntiCrash")
	logger.Error(fmt.Sprintf("%v", recovered), "SYS")
}

// HandleError counts err and reports it with the guild it happened in.
// A nil err is ignored.
func (h *ErrorHandler) HandleError(op, guildID string, err error) {
	if err == nil {
		return
	}
	h.IncrementError()
	logger.Error(fmt.Sprintf("%s: %v", op, err), "AntiCrash")
	go h.Report(ReportErrorOptions{Error: op, Message: err.Error(), Guild: guildID})
}

func reportEmbed(data ReportErrorOptions, now time.Time) webhookEmbed {
	embed := webhookEmbed{
		Author:      map[string]string{"name": "Error " + data.Error},
		Description: data.Message,
		Color:       0xFF0000,
		Footer:      map[string]string{"text": "PancyMusic Go"},
		Timestamp:   now.Format(time.RFC3339),
	}
	if data.Guild != "" {
		embed.Fields = []webhookField{{Name: "Servidor", Value: data.Guild, Inline: true}}
	}
	return embed
}

// Report posts data to the error webhook. Without a webhook it does nothing.
func (h *ErrorHandler) Report(data ReportErrorOptions) {
	if h.webhookURL == "" {
		return
	}

	body, err := json.Marshal(map[string][]webhookEmbed{
		"embeds": {reportEmbed(data, time.Now())},
	})
	if err != nil {
		logger.Error(fmt.Sprintf("No se pudo serializar el reporte: %v", err), "AntiCrash")
		return
	}

	req, err := http.NewRequest(http.MethodPost, h.webhookURL, bytes.NewReader(body))
	if err != nil {
		logger.Error(fmt.Sprintf("No se pudo crear la petición al webhook: %v", err), "AntiCrash")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		logger.Error(fmt.Sprintf("No se pudo enviar el reporte: %v", err), "AntiCrash")
		return
	}
	defer resp.Body.Close()

	logger.Warn(fmt.Sprintf("Reporte de error enviado al webhook, estado: %d", resp.StatusCode), "AntiCrash")
}

// RecoverMiddleware returns a recovery function for use in deferred calls
func RecoverMiddleware() func() {
	return func() {
		if r := recover(); r != nil {
			if handler != nil {
				handler.HandlePanic(r)
			} else {
				logger.Error(fmt.Sprintf("Panic recuperado (sin handler): %v", r), "AntiCrash")
			}
		}
	}
}
