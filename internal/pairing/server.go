package pairing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusSource reports live bridge state for the status endpoint.
type StatusSource interface {
	ConnectionCount() int
	ModifierDown() bool
}

type StatusResponse struct {
	Connections  int  `json:"connections"`
	LeftCtrlDown bool `json:"left_ctrl_down"`
}

// NewRouter wires the pairing and status routes.
func NewRouter(payload Payload, status StatusSource) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/check-conn", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"message": "bridge is alive",
		})
	})

	r.GET("/pairing", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, payload)
	})

	r.GET("/status", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, StatusResponse{
			Connections:  status.ConnectionCount(),
			LeftCtrlDown: status.ModifierDown(),
		})
	})

	return r
}

// Server serves the info routes over plain HTTP.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		http:   &http.Server{Addr: addr, Handler: handler},
		logger: logger,
	}
}

// Start blocks until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("info_server_listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("info server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
