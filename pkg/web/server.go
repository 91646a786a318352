// Package web provides the dashboard HTTP API. It exposes bot status and a
// read-only view of the guild queues.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// Server is the gin engine plus its http.Server once started
type Server struct {
	engine       *gin.Engine
	httpServer   *http.Server
	webhookURL   string
	allowedHosts *regexp.Regexp
}

var server *Server

// Init creates the global web server
func Init(webhookURL, allowedHosts string) *Server {
	server = NewServer(webhookURL, allowedHosts)
	return server
}

func Get() *Server {
	return server
}

// compileHosts parses the allowed hosts expression. An empty or invalid one
// accepts any host.
func compileHosts(expr string) *regexp.Regexp {
	if expr != "" {
		re, err := regexp.Compile(expr)
		if err == nil {
			return re
		}
		logger.Warn(fmt.Sprintf("webAllowedHosts inválido (%v), se aceptan todos los hosts", err), "WebServer")
	}
	return regexp.MustCompile(`.*`)
}

// NewServer creates the engine with host filtering, request logging and
// JSON 404/405 answers. allowedHosts is matched against the Host header.
func NewServer(webhookURL, allowedHosts string) *Server {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:       gin.New(),
		webhookURL:   webhookURL,
		allowedHosts: compileHosts(allowedHosts),
	}

	s.engine.Use(gin.Recovery(), s.hostGuard(), s.requestLogger())
	s.engine.NoRoute(func(c *gin.Context) {
		errorJSON(c, http.StatusNotFound, "La ruta solicitada no existe.")
	})
	s.engine.NoMethod(func(c *gin.Context) {
		errorJSON(c, http.StatusMethodNotAllowed, "El método HTTP no está permitido para esta ruta.")
	})
	return s
}

// Engine returns the underlying Gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Group creates a router group
func (s *Server) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return s.engine.Group(path, handlers...)
}

// errorJSON writes the API's error body and stops the chain
func errorJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   http.StatusText(status),
		"message": message,
		"status":  status,
	})
}

// requestLog is copied out of the gin context before the request finishes,
// since the context is reused afterwards.
type requestLog struct {
	method  string
	path    string
	ip      string
	headers http.Header
	query   string
}

func newRequestLog(c *gin.Context) requestLog {
	return requestLog{
		method:  c.Request.Method,
		path:    c.Request.URL.Path,
		ip:      c.ClientIP(),
		headers: c.Request.Header.Clone(),
		query:   c.Request.URL.RawQuery,
	}
}

// hostGuard rejects requests whose Host does not match allowedHosts
func (s *Server) hostGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.allowedHosts.MatchString(c.Request.Host) {
			c.Next()
			return
		}
		entry := newRequestLog(c)
		logger.Warn(fmt.Sprintf("[LOG] Solicitud Sospechosa: %s %s | %s", entry.method, entry.path, entry.ip), "WebServer")
		go s.sendLogToWebhook(entry, true)
		c.AbortWithStatus(http.StatusForbidden)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := newRequestLog(c)
		logger.Debug(fmt.Sprintf("[LOG] Nueva solicitud: %s %s", entry.method, entry.path), "WebServer")
		go s.sendLogToWebhook(entry, false)
		c.Next()
	}
}

func (s *Server) sendLogToWebhook(entry requestLog, suspicious bool) {
	if s.webhookURL == "" {
		return
	}

	title := fmt.Sprintf("🎵 | Nueva solicitud al servidor web de tipo %s", entry.method)
	color := 0x00AE86
	if suspicious {
		title = fmt.Sprintf("🎵 | Solicitud Sospechosa Rechazada: %s %s", entry.method, entry.path)
		color = 0xFFA500
	}

	headers, _ := json.Marshal(entry.headers)
	query := entry.query
	if query == "" {
		query = "{}"
	}
	description := fmt.Sprintf(
		"> **Ruta:** `%s`\n> **IP:** `%s`\n> **Headers:** ```%s``` \n> **Query:** ```%s```",
		entry.path, entry.ip, headers, query,
	)
	logger.PostEmbed(s.webhookURL, title, description, color)
}

// Start listens on port and blocks until Shutdown
func (s *Server) Start(port string) error {
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info(fmt.Sprintf("🚀 Servidor escuchando en http://localhost:%s", port), "WebServer")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) StartAsync(port string) {
	go func() {
		if err := s.Start(port); err != nil {
			logger.Error(fmt.Sprintf("Error iniciando el servidor web: %v", err), "WebServer")
		}
	}()
}

// Shutdown stops accepting requests and waits for active ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
