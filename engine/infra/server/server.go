package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shopmind/shopmind/engine/chat"
	"github.com/shopmind/shopmind/engine/guardrail"
	"github.com/shopmind/shopmind/engine/infra/monitoring"
	"github.com/shopmind/shopmind/engine/session"
	"github.com/shopmind/shopmind/pkg/logger"
)

type Config struct {
	Host string
	Port int
}

// Server exposes the chat engine over HTTP. The transport stays thin: it
// binds the inbound request contract, maps errors to status codes and
// serves the health snapshot.
type Server struct {
	cfg     Config
	chat    *chat.Service
	monitor *monitoring.Monitor
	http    *http.Server
}

func New(cfg Config, chatService *chat.Service, monitor *monitoring.Monitor) *Server {
	return &Server{cfg: cfg, chat: chatService, monitor: monitor}
}

// chatRequest is the wire shape of one inbound turn.
type chatRequest struct {
	Message           string `json:"message" binding:"required"`
	ConversationID    string `json:"conversation_id"`
	CallerID          string `json:"caller_id"`
	IsAuthenticated   bool   `json:"is_authenticated"`
	CallerAccessToken string `json:"caller_access_token"`
	Provider          string `json:"provider"`
}

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.POST("/api/v0/chat", s.handleChat)
	router.GET("/healthz", s.handleHealth)
	return router
}

func (s *Server) handleChat(c *gin.Context) {
	req := chatRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	response, err := s.chat.HandleMessage(c.Request.Context(), &chat.Request{
		Message:           req.Message,
		ConversationID:    req.ConversationID,
		CallerID:          req.CallerID,
		IsAuthenticated:   req.IsAuthenticated,
		CallerAccessToken: req.CallerAccessToken,
		Provider:          req.Provider,
	})
	if err != nil {
		status, body := mapError(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, response)
}

// mapError keeps rate-limit rejections distinguishable (429) from content
// rejections (400) so clients only back off where it helps.
func mapError(err error) (int, errorResponse) {
	var rejection *guardrail.RejectionError
	if errors.As(err, &rejection) {
		status := http.StatusBadRequest
		if rejection.Category == guardrail.CategoryRateLimit {
			status = http.StatusTooManyRequests
		}
		return status, errorResponse{Error: rejection.Reason, Category: string(rejection.Category)}
	}
	if errors.Is(err, session.ErrNotFound) {
		return http.StatusNotFound, errorResponse{Error: "conversation not found"}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal error"}
}

func (s *Server) handleHealth(c *gin.Context) {
	snapshot := s.monitor.Snapshot()
	status := http.StatusOK
	if snapshot.Status == monitoring.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, snapshot)
}

func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.FromContext(c.Request.Context()).Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
