package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ml-pipeline-nodes/internal/adapters/primary/http/handlers"
	"ml-pipeline-nodes/internal/adapters/primary/http/middleware"
	"ml-pipeline-nodes/internal/app"
	"ml-pipeline-nodes/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	app.InitLogger(cfg)

	svcs, err := app.Wire(context.Background(), cfg)
	if err != nil {
		log.Fatalf("wire services: %v", err)
	}
	defer svcs.Close()

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(svcs.CreateModel, svcs.DataSplit, svcs.Compare, svcs.Prediction, svcs.Runs)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1/pipeline-nodes")
	h.RegisterRoutes(api)

	// Health check, with DB ping when the journal is enabled
	router.GET("/healthz", func(c *gin.Context) {
		if svcs.Pool != nil {
			if err := svcs.Pool.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}
