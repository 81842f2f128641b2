// Package main is the entry point for the payment coordination API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hmkhan10/routebase-payments/internal/api"
	"github.com/hmkhan10/routebase-payments/internal/config"
	"github.com/hmkhan10/routebase-payments/internal/health"
	"github.com/hmkhan10/routebase-payments/internal/idempotency"
	"github.com/hmkhan10/routebase-payments/internal/kv"
	"github.com/hmkhan10/routebase-payments/internal/lock"
	"github.com/hmkhan10/routebase-payments/internal/merchant"
	"github.com/hmkhan10/routebase-payments/internal/middleware"
	"github.com/hmkhan10/routebase-payments/internal/payment"
	"github.com/hmkhan10/routebase-payments/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("RouteBase Payment Coordination Service")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	for key, val := range cfg.LogSummary() {
		logger.Debug("config", key, val)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	store := kv.NewRedisStore(redisClient, cfg.KeyPrefix)
	locks := lock.NewManager(store)
	cache := idempotency.NewCache(store)
	sessions := session.NewStore(store, time.Duration(cfg.SessionTTLSeconds)*time.Second)
	backend := merchant.NewClient(cfg.BackendURL, 10*time.Second)

	var gateway payment.Gateway
	switch cfg.Gateway {
	case config.GatewayStripe:
		gateway = payment.NewStripeGateway(cfg.StripeAPIKey, cfg.Currency)
	default:
		sim := payment.NewSimulatedGateway()
		sim.FailureRate = cfg.SimFailureRate
		gateway = sim
	}

	registry := prometheus.NewRegistry()
	paymentMetrics := payment.NewMetrics()
	httpMetrics := middleware.NewHTTPMetrics()
	if err := paymentMetrics.Register(registry); err != nil {
		logger.Error("failed to register payment metrics", "error", err)
		os.Exit(1)
	}
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}

	coordinator := payment.NewCoordinator(
		locks,
		cache,
		gateway,
		paymentMetrics,
		time.Duration(cfg.LockTTLSeconds)*time.Second,
		time.Duration(cfg.ResultTTLSeconds)*time.Second,
	)

	paymentHandlers := api.NewPaymentHandlers(coordinator)
	cartHandlers := api.NewCartHandlers(sessions, backend)
	checkoutHandlers := api.NewCheckoutHandlers(backend)
	healthHandlers := api.NewHealthHandlers(health.NewRedisChecker(redisClient))

	rateLimits := middleware.NewRedisRateLimitStore(redisClient)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	// The payment endpoint gets a tighter limit than the rest of the API,
	// counted separately from the global window.
	paymentKey := func(r *http.Request) string { return "payments:" + middleware.IPKeyFunc()(r) }
	mux.Handle("/api/payments", middleware.RateLimiter(rateLimits, middleware.DefaultPaymentLimit(), paymentKey)(paymentHandlers.Routes()))
	mux.Handle("/api/cart", cartHandlers.Routes())
	mux.Handle("/api/checkout/session", checkoutHandlers.Routes())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			api.WriteError(w, r.Context(), http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"routebase-payments","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	var handler http.Handler = mux
	handler = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins))(handler)
	handler = middleware.RateLimiter(rateLimits, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc())(handler)
	handler = middleware.Metrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "gateway", cfg.Gateway)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
