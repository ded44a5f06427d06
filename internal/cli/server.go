package cli

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkalnins/revtrack/internal/server"
	"github.com/spf13/cobra"
)

var (
	serverListen    string
	serverLogLevel  string
	serverLogFormat string
	serverTLSCert   string
	serverTLSKey    string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the revtrack HTTP server",
	Long: `Run the revtrack HTTP server for the repository in the current
directory. The server exposes object state, revision history, diffs,
and revert over a JSON API.

Examples:
  revtrack server
  revtrack server --listen 0.0.0.0:8730 --log-format text
  revtrack server --tls-cert server.crt --tls-key server.key`,
	Run: runServer,
}

func init() {
	f := serverCmd.Flags()
	f.StringVar(&serverListen, "listen", envOrDefault("REVTRACK_LISTEN", "127.0.0.1:8730"), "Listen address (host:port)")
	f.StringVar(&serverLogLevel, "log-level", envOrDefault("REVTRACK_LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	f.StringVar(&serverLogFormat, "log-format", envOrDefault("REVTRACK_LOG_FORMAT", "json"), "Log format (json|text)")
	f.StringVar(&serverTLSCert, "tls-cert", os.Getenv("REVTRACK_TLS_CERT"), "TLS certificate file")
	f.StringVar(&serverTLSKey, "tls-key", os.Getenv("REVTRACK_TLS_KEY"), "TLS key file")
}

func runServer(_ *cobra.Command, _ []string) {
	logger := newLogger(serverLogLevel, serverLogFormat)

	c := initContext()
	defer c.Close()

	srv := &http.Server{
		Addr:              serverListen,
		Handler:           server.Handler(c.Store, c.Registry, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return context.Background() },
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting revtrack server", "listen", serverListen, "db", c.Config.DatabasePath())
		var err error
		if serverTLSCert != "" && serverTLSKey != "" {
			err = srv.ListenAndServeTLS(serverTLSCert, serverTLSKey)
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

// newLogger builds an slog logger from level and format names.
func newLogger(levelName, format string) *slog.Logger {
	var level slog.Level
	switch levelName {
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
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// envOrDefault returns the value of the environment variable key, or defaultVal if unset.
func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
