// Command revtrack-server runs the revtrack HTTP server standalone,
// pointed at an existing repository directory.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mkalnins/revtrack/internal/config"
	"github.com/mkalnins/revtrack/internal/server"
	"github.com/mkalnins/revtrack/internal/store"
)

func main() {
	listen := flag.String("listen", envOrDefault("REVTRACK_LISTEN", "0.0.0.0:8730"), "Listen address")
	repoDir := flag.String("repo", envOrDefault("REVTRACK_REPO", "."), "Repository directory (containing "+config.Dir+")")
	logLevel := flag.String("log-level", envOrDefault("REVTRACK_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", envOrDefault("REVTRACK_LOG_FORMAT", "json"), "Log format (json, text)")
	tlsCert := flag.String("tls-cert", os.Getenv("REVTRACK_TLS_CERT"), "TLS certificate file")
	tlsKey := flag.String("tls-key", os.Getenv("REVTRACK_TLS_KEY"), "TLS key file")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	cfg, err := config.LoadFrom(filepath.Join(*repoDir, config.Dir))
	if err != nil {
		logger.Error("failed to load config", "error", err, "repo", *repoDir)
		os.Exit(1)
	}

	reg, err := cfg.Registry()
	if err != nil {
		logger.Error("invalid tracked type configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		logger.Error("failed to open store", "error", err, "db", cfg.DatabasePath())
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              *listen,
		Handler:           server.Handler(st, reg, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return context.Background() },
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting revtrack server", "listen", *listen, "db", cfg.DatabasePath())
		var err error
		if *tlsCert != "" && *tlsKey != "" {
			err = srv.ListenAndServeTLS(*tlsCert, *tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// envOrDefault returns the value of the environment variable key, or defaultVal if unset.
func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
