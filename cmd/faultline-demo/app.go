package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"faultline/internal/config"
	"faultline/internal/constants"
	"faultline/internal/logger"
	"faultline/pkg/capture"
	"faultline/pkg/health"
	"faultline/pkg/metrics"
	"faultline/pkg/middleware"
	"faultline/pkg/pipeline"
	"faultline/pkg/sink"
	"faultline/pkg/sink/breaker"
	"faultline/pkg/sink/console"
	"faultline/pkg/sink/noop"
	"faultline/pkg/sink/throttle"
	"faultline/pkg/tracing"
)

type App struct {
	config         *config.Config
	logger         logger.Logger
	configPath     string
	watch          bool
	sink           sink.Sink
	pipeline       *pipeline.Pipeline
	capturer       *capture.Capturer
	outbound       *http.Client
	watcher        *config.Watcher
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger, configPath string, watch bool) *App {
	return &App{
		config:     cfg,
		logger:     log,
		configPath: configPath,
		watch:      watch,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initSink(); err != nil {
		return fmt.Errorf("failed to initialize sink: %w", err)
	}

	if err := a.initPipeline(); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	tp, err := tracing.Init(a.config.Tracing, "faultline-demo")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if a.watch {
		a.watcher = config.NewWatcher(a.configPath, a.config, a.logger, a.applyConfigUpdate)
	}

	return nil
}

func (a *App) initSink() error {
	var s sink.Sink
	switch a.config.Sink.Type {
	case "noop":
		s = noop.New()
	default:
		s = console.New(os.Stdout)
	}

	if a.config.Sink.Throttle.Enabled {
		s = throttle.New(s, a.config.Sink.Throttle.EventsPerSecond, a.config.Sink.Throttle.Burst)
		a.logger.InfowCtx(context.Background(), "Sink throttle enabled",
			"events_per_second", a.config.Sink.Throttle.EventsPerSecond,
			"burst", a.config.Sink.Throttle.Burst,
		)
	}

	if a.config.Sink.Breaker.Enabled {
		s = breaker.New(s, breaker.Config{
			MaxRequests:         a.config.Sink.Breaker.MaxRequests,
			Interval:            a.config.Sink.Breaker.Interval,
			Timeout:             a.config.Sink.Breaker.Timeout,
			ConsecutiveFailures: a.config.Sink.Breaker.ConsecutiveFailures,
		})
		a.logger.InfowCtx(context.Background(), "Circuit breaker enabled for sink writes")
	}

	a.sink = s
	return nil
}

func (a *App) initPipeline() error {
	opts := []pipeline.Option{
		pipeline.WithSink(a.sink),
		pipeline.WithLogger(a.logger),
		pipeline.WithConfig(pipelineConfig(a.config.Pipeline)),
		pipeline.WithRuntimeConfig(runtimeConfig(a.config.Client)),
		pipeline.WithDropRules(a.config.Filtering.Fallback.OnError, dropRules(a.config.Filtering.Rules)...),
	}
	if a.config.Tracing.Enabled {
		opts = append(opts, pipeline.WithTracer(tracing.GetTracer("faultline-demo")))
	}

	p, err := pipeline.New(opts...)
	if err != nil {
		return err
	}
	a.pipeline = p
	a.capturer = capture.New(p, a.logger)
	a.outbound = &http.Client{
		Transport: otelhttp.NewTransport(a.capturer.Transport(nil)),
		Timeout:   10 * time.Second,
	}
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("faultline-demo"))
	}

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(a.capturer.GinReportErrors())
	router.Use(a.capturer.GinRecovery())

	metrics.RegisterPipelineMetrics()
	metrics.RegisterFilterMetrics()
	metrics.RegisterSinkMetrics()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewDispatchQueueChecker(a.pipeline))
	healthRegistry.Register(health.NewSinkChecker(a.sink))
	healthRegistry.Register(health.NewConfigChecker(a.pipeline.Store()))

	router.GET("/healthz", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.registerDemoRoutes(router)

	a.router = router
	return nil
}

// registerDemoRoutes mounts one trigger route per capture path so every
// event kind can be produced with curl.
func (a *App) registerDemoRoutes(router *gin.Engine) {
	demo := router.Group("/demo")

	// Recovered by GinRecovery, reported as runtime_error.
	demo.GET("/panic", func(c *gin.Context) {
		panic("demo: intentional panic")
	})

	// Attached context error, reported as explicit_rejection.
	demo.GET("/error", func(c *gin.Context) {
		_ = c.Error(errors.New("demo: upstream validation failed"))
		c.JSON(http.StatusBadGateway, gin.H{"error": "bad gateway"})
	})

	// Unexplained 5xx, reported as http_error.
	demo.GET("/fail", func(c *gin.Context) {
		c.String(http.StatusInternalServerError, "demo failure")
	})

	demo.GET("/capture", func(c *gin.Context) {
		a.capturer.CaptureError(c.Request.Context(), errors.New("demo: explicitly captured error"))
		c.JSON(http.StatusOK, gin.H{"status": "captured"})
	})

	demo.GET("/message", func(c *gin.Context) {
		a.capturer.CaptureMessage(c.Request.Context(), "demo: message without an error value")
		c.JSON(http.StatusOK, gin.H{"status": "captured"})
	})

	// Panic in a fire-and-forget goroutine, reported as unhandled_rejection.
	demo.GET("/goroutine", func(c *gin.Context) {
		a.capturer.Go(c.Request.Context(), func(ctx context.Context) {
			panic("demo: goroutine panic")
		})
		c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
	})

	// Outbound call through the capturing transport. The default target is
	// this server's own /demo/fail route, so the client side reports an
	// http_error; ?target=down aims at a closed port for a network_error.
	demo.GET("/outbound", func(c *gin.Context) {
		target := fmt.Sprintf("http://127.0.0.1:%d/demo/fail", a.config.Server.Port)
		if c.Query("target") == "down" {
			target = "http://127.0.0.1:9/unreachable"
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		resp, err := a.outbound.Do(req)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"status": "transport error captured", "error": err.Error()})
			return
		}
		defer resp.Body.Close()
		c.JSON(http.StatusOK, gin.H{"status": "upstream called", "upstream_status": resp.StatusCode})
	})
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds * time.Second,
	}
	return nil
}

// applyConfigUpdate is the watcher callback. Only the hot-reloadable parts
// of the file take effect here; server, sink and tracing changes need a
// restart.
func (a *App) applyConfigUpdate(cfg *config.Config) {
	ctx := context.Background()

	a.pipeline.SetRuntimeConfig(runtimeConfig(cfg.Client))

	if err := a.pipeline.ReloadDropRules(ctx, dropRules(cfg.Filtering.Rules)); err != nil {
		a.logger.WarnwCtx(ctx, "Drop rule reload rejected, keeping previous rules", "error", err)
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(ctx, "HTTP server starting", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if a.watcher != nil {
		g.Go(func() error {
			a.logger.InfowCtx(gCtx, "Config watcher starting", "path", a.configPath)
			return a.watcher.Watch(gCtx)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down demo server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.pipeline != nil {
		if err := a.pipeline.Flush(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("pipeline flush error: %w", err))
		}
		if err := a.pipeline.Close(); err != nil {
			errs = append(errs, fmt.Errorf("pipeline close error: %w", err))
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Demo server exited successfully")
	return nil
}

func pipelineConfig(cfg config.PipelineConfig) pipeline.Config {
	return pipeline.Config{
		DedupTTL:        cfg.DedupTTL,
		RateLimitWindow: cfg.RateLimitWindow,
		RateLimitCap:    cfg.RateLimitCap,
		QueueSize:       cfg.QueueSize,
		MaxMessageLen:   cfg.MaxMessageLen,
		MaxStackLen:     cfg.MaxStackLen,
		MaxSourceLen:    cfg.MaxSourceLen,
	}
}

func runtimeConfig(cfg config.ClientConfig) pipeline.RuntimeConfig {
	return pipeline.RuntimeConfig{
		Environment:    cfg.Environment,
		SampleRate:     cfg.SampleRate,
		MaxBreadcrumbs: cfg.MaxBreadcrumbs,
	}
}

func dropRules(rules []config.RuleConfig) []pipeline.DropRule {
	out := make([]pipeline.DropRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, pipeline.DropRule{ID: r.ID, Name: r.Name, Expression: r.Expression})
	}
	return out
}
