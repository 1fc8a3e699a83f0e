package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"collegehub/internal/assignment"
	"collegehub/internal/attendance"
	"collegehub/internal/config"
	"collegehub/internal/dashboard"
	"collegehub/internal/directory"
	"collegehub/internal/filestore"
	"collegehub/internal/handler"
	"collegehub/internal/httpmiddleware"
	"collegehub/internal/marks"
	"collegehub/internal/realtime"
	"collegehub/internal/schedule"
	"collegehub/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var broker realtime.Broker
	if cfg.FanoutBackend == "memory" {
		broker = realtime.NewMemory(64)
	} else {
		broker = realtime.NewRedisBroker(redisClient.Client, cfg.FanoutChannel)
	}
	hub := realtime.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx, broker)
	emitter := realtime.NewEmitter(broker)

	dirRepo := directory.NewRepo(db.Client)
	schedRepo := schedule.NewRepo(db.Client)
	attRepo := attendance.NewRepo(db.Client)
	marksRepo := marks.NewRepo(db.Client)
	workRepo := assignment.NewRepo(db.Client)

	dirSvc := directory.NewService(dirRepo, marksRepo, emitter)
	schedSvc := schedule.NewService(schedRepo, emitter)
	attSvc := attendance.NewService(attRepo, schedRepo, emitter)
	marksSvc := marks.NewService(marksRepo, emitter)
	workSvc := assignment.NewService(workRepo, marksRepo, dirSvc, emitter, db.Client)
	dashSvc := dashboard.NewService(dirSvc, schedSvc, attSvc, marksSvc, workSvc)

	// Filestore client (nil methods are safe when not configured)
	files := filestore.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if files.Enabled() {
		log.Println("file storage configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("file storage not configured, multipart submissions disabled")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware(cfg.AllowedOrigin))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	handler.New(cfg, dirSvc, schedSvc, attSvc, marksSvc, workSvc, dashSvc, files, hub).Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}

// CORS middleware for browser requests. An empty allowedOrigin reflects
// the caller's origin, for dev.
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigin != "" {
			origin = allowedOrigin
		} else if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
