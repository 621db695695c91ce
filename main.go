// Package main is the entry point for the demo server guarding its routes
// with call rate limiters.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	ratelimiter "learn.callratelimit/api"
	"learn.callratelimit/metrics"
	"learn.callratelimit/middleware"
)

// main parses flags, loads configuration, initializes rate limiters, sets up
// HTTP routes with middleware, and starts the HTTP server.
func main() {
	// Configure zerolog for console output
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	port := flag.Int("p", 8080, "Port to run the HTTP server on")
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	logLevelStr := flag.String("log-level", "info", "Logging level (trace, debug, info, warn, error, fatal, panic)")
	flag.Parse()

	logLevel, err := zerolog.ParseLevel(*logLevelStr)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", *logLevelStr).Msg("Invalid log level provided")
	}
	zerolog.SetGlobalLevel(logLevel)

	log.Info().Str("config_path", *configPath).Msg("Starting application initialization")

	limiters, err := ratelimiter.NewLimitersFromConfigPath(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config_path", *configPath).Msg("Application startup failed: Error initializing rate limiters from config")
	}

	apiRateLimiterKey := "api_rate_limit"
	apiRateLimiter, ok := limiters[apiRateLimiterKey]
	if !ok {
		log.Fatal().Str("limiter_key", apiRateLimiterKey).Msg("Application startup failed: Rate limiter key not found in config")
	}

	userLoginRateLimiterKey := "user_login_rate_limit"
	userLoginRateLimiter, ok := limiters[userLoginRateLimiterKey]
	if !ok {
		log.Fatal().Str("limiter_key", userLoginRateLimiterKey).Msg("Application startup failed: Rate limiter key not found in config")
	}

	rateLimitMetrics := metrics.NewRateLimitMetrics()
	rateLimitMetrics.MustRegister()

	apiRateLimitMiddleware := middleware.NewRateLimitMiddleware(apiRateLimiter, rateLimitMetrics, apiRateLimiterKey)
	userLoginRateLimitMiddleware := middleware.NewRateLimitMiddleware(userLoginRateLimiter, rateLimitMetrics, userLoginRateLimiterKey)

	http.HandleFunc("/unlimited", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "Unlimited! Let's Go!")
	})

	// Rate limited per client IP by the 'api_rate_limit' limiter
	http.HandleFunc("/limited", apiRateLimitMiddleware.Handle(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "Limited, don't over use me!")
	}, getClientIP))

	http.HandleFunc("/login", userLoginRateLimitMiddleware.Handle(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "Login attempt processed!")
	}, getClientIP))

	// Expose Prometheus metrics endpoint
	http.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", *port)
	log.Info().Str("address", addr).Msg("Starting HTTP server")
	log.Fatal().Err(http.ListenAndServe(addr, nil)).Str("address", addr).Msg("HTTP server stopped")
}

// getClientIP extracts the client's IP address from the request.
// It checks X-Forwarded-For, X-Real-IP headers, and finally the request's RemoteAddr.
func getClientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		return strings.Split(ip, ",")[0]
	}

	ip = r.Header.Get("X-Real-IP")
	if ip != "" {
		return ip
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
