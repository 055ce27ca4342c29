// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relabs-tech/spdalt/internal/gps"
	"github.com/relabs-tech/spdalt/internal/settings"
	"github.com/relabs-tech/spdalt/internal/tracking"
)

// Server is the HTTP and websocket surface over the tracker and the
// preferences.
type Server struct {
	// base outlives requests; tracking started over HTTP runs under it.
	base    context.Context
	addr    string
	tracker *tracking.Tracker
	prefs   *settings.Settings
	views   *ViewSource
	engine  *gin.Engine
}

func NewServer(base context.Context, addr string, tracker *tracking.Tracker, prefs *settings.Settings, views *ViewSource) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	s := &Server{
		base:    base,
		addr:    addr,
		tracker: tracker,
		prefs:   prefs,
		views:   views,
		engine:  engine,
	}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	api.GET("/state", s.handleState)
	api.POST("/tracking/permission", s.handlePermission)
	api.POST("/tracking/start", s.handleStart)
	api.POST("/tracking/stop", s.handleStop)
	api.POST("/fix", s.handleFix)
	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handlePutSettings)

	s.engine.GET("/ws", s.handleWS)
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.views.View())
}

func (s *Server) handlePermission(c *gin.Context) {
	granted := s.tracker.RequestPermissions(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"granted": granted})
}

func (s *Server) handleStart(c *gin.Context) {
	if err := s.tracker.Start(s.base); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "view": s.views.View()})
		return
	}
	c.JSON(http.StatusOK, s.views.View())
}

func (s *Server) handleStop(c *gin.Context) {
	s.tracker.Stop()
	c.JSON(http.StatusOK, s.views.View())
}

func (s *Server) handleFix(c *gin.Context) {
	if _, err := s.tracker.CurrentFix(c.Request.Context()); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "view": s.views.View()})
		return
	}
	c.JSON(http.StatusOK, s.views.View())
}

func (s *Server) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.prefs.State())
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var p settings.Partial
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := p.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The new value is in effect even if it could not be stored.
	persisted := true
	if err := s.prefs.Update(c.Request.Context(), p); err != nil {
		persisted = false
	}
	c.JSON(http.StatusOK, gin.H{"settings": s.prefs.State(), "persisted": persisted})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, gps.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, gps.ErrAcquisitionTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}
