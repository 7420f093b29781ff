package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MamaCare/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	Port            string
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
	ShutdownTimeout time.Duration

	MigrationEnabled bool
	MigrationHandler func()

	JobsEnabled bool
	JobsHandler func()

	WebServerEnabled    bool
	WebServerPreHandler func(r *gin.Engine)

	// OnShutdown runs after the HTTP server stopped accepting requests.
	OnShutdown func(ctx context.Context)
}

func GetDefaultOptions() Options {
	return Options{
		Port:             "8080",
		ShutdownTimeout:  10 * time.Second,
		MigrationEnabled: true,
		JobsEnabled:      true,
		WebServerEnabled: true,
	}
}

/*
* Request logging wraps recovery so panics are logged as 500
* Metrics come next
* The pre handler then adds cors and the application routes
 */
func NewEngine(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(RequestLogger(log))
	r.Use(gin.Recovery())
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	if opts.WebServerPreHandler != nil {
		opts.WebServerPreHandler(r)
	}
	return r
}

/*
* Run the migrations, start the jobs and serve until SIGINT or SIGTERM
* Shutdown waits for in flight requests up to the shutdown timeout
 */
func Start(opts Options) error {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MigrationEnabled && opts.MigrationHandler != nil {
		opts.MigrationHandler()
	}
	if opts.JobsEnabled && opts.JobsHandler != nil {
		opts.JobsHandler()
	}
	if !opts.WebServerEnabled {
		return nil
	}

	srv := &http.Server{
		Addr:              ":" + opts.Port,
		Handler:           NewEngine(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serveErr:
		if ok {
			log.Error("server error", zap.Error(err))
			return err
		}
		return nil
	case <-quit:
	}

	log.Info("shutting down server")
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	if opts.OnShutdown != nil {
		opts.OnShutdown(ctx)
	}
	if err != nil {
		log.Error("server shutdown failed", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}

// RequestLogger writes one structured line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("clientIp", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
