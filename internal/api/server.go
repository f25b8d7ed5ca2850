// Package api is the HTTP surface of the agent
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"
	"github.com/rs/zerolog"

	onvif "github.com/SridarDhandapani/onvif-media"
)

// MaxDiscoveryTimeout caps the timeout query of GET /api/discovery
const MaxDiscoveryTimeout = 30 * time.Second

type Server struct {
	client    *onvif.Client
	store     onvif.Store
	discovery onvif.DiscoveryOptions
	log       zerolog.Logger

	engine *gin.Engine
}

func NewServer(client *onvif.Client, store onvif.Store, discovery onvif.DiscoveryOptions, log zerolog.Logger) *Server {
	s := &Server{
		client:    client,
		store:     store,
		discovery: discovery,
		log:       log,
		engine:    gin.New(),
	}

	s.engine.Use(gin.Recovery(), requestID(), s.accessLog())

	api := s.engine.Group("/api")
	api.GET("/health", s.health)
	api.GET("/discovery", s.discover)
	api.POST("/profiles", s.profiles)
	api.POST("/streams", s.streams)
	api.GET("/cameras", s.listCameras)
	api.POST("/cameras", s.saveCamera)
	api.DELETE("/cameras/:id", s.deleteCamera)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("[api] listen")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Annotate(err, "api: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Annotate(err, "api: shutdown")
	}
	return nil
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := s.log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = s.log.Warn()
		}
		event.Str("id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("[api] request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
