package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"smartnotes/internal/assistant"
	"smartnotes/internal/config"
	mcpserver "smartnotes/internal/mcp"
	"smartnotes/internal/notes"
	"smartnotes/internal/tui"
)

//go:embed static
var staticFS embed.FS

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "smartnotes",
		Short:        "Notes workspace with an assistant chat",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SMARTNOTES_CONFIG"), "TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")

	serve := serveCmd()
	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(tuiCmd())
	rootCmd.RunE = serve.RunE
	rootCmd.Flags().AddFlagSet(serve.Flags())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the config file and environment, then flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		lvl, err := config.ParseLevel(logLevel)
		if err != nil {
			return config.Config{}, err
		}
		cfg.LogLevel = lvl
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		cfg.Port = f.Value.String()
	}
	if f := cmd.Flags().Lookup("reply-delay"); f != nil && f.Changed {
		d, err := time.ParseDuration(f.Value.String())
		if err != nil || d < 0 {
			return config.Config{}, fmt.Errorf("invalid --reply-delay %q", f.Value.String())
		}
		cfg.ReplyDelay = d
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI, REST API and MCP endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
	cmd.Flags().String("port", "", "listen port or host:port")
	cmd.Flags().Duration("reply-delay", assistant.DefaultDelay, "delay before the assistant replies")
	return cmd
}

func runServer(cfg config.Config) error {
	// Logger
	logger := cfg.NewLogger(os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire dependencies
	replies := assistant.NewScheduler(assistant.NewCanned(), cfg.ReplyDelay, logger)
	defer replies.Close()

	sessions := notes.NewSessions(replies, cfg.SessionTTL, logger)
	defer sessions.Close()
	go sessions.Run(ctx)

	noteHandler := notes.NewHandler(sessions, logger)

	// Create MCP server
	mcpSrv := mcpserver.NewServer(sessions)

	// HTTP router
	mux := http.NewServeMux()

	// Static files
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return fmt.Errorf("static fs: %w", err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))

	// Web UI and REST API
	noteHandler.Register(mux)

	// MCP endpoint (HTTP transport)
	// MCP uses POST for requests and GET for SSE streams
	mcpHTTP := server.NewStreamableHTTPServer(mcpSrv)
	mux.Handle("POST /mcp", mcpHTTP)
	mux.Handle("GET /mcp", mcpHTTP)
	mux.Handle("DELETE /mcp", mcpHTTP)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Start server
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down server...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("server starting", "addr", cfg.Addr(), "reply_delay", cfg.ReplyDelay)
	base := baseURL(cfg.Addr())
	logger.Info("endpoints available",
		"web", base,
		"api", base+"/api",
		"mcp", base+"/mcp",
	)

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func baseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func tuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the notes UI in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runTUI(cfg)
		},
	}
	cmd.Flags().Duration("reply-delay", assistant.DefaultDelay, "delay before the assistant replies")
	return cmd
}

func runTUI(cfg config.Config) error {
	// The terminal owns stdout, so logs go to a file.
	path := cfg.LogFile
	if path == "" {
		path = filepath.Join(os.TempDir(), "smartnotes.log")
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := cfg.NewLogger(logFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	replies := assistant.NewScheduler(assistant.NewCanned(), cfg.ReplyDelay, logger)
	defer replies.Close()

	ctrl := notes.NewController("tui", replies, notes.WithLogger(logger))
	defer ctrl.Close()

	logger.Info("terminal session started", "reply_delay", cfg.ReplyDelay)
	if err := tui.Run(ctx, ctrl); err != nil {
		logger.Error("terminal session failed", "error", err)
		return err
	}
	logger.Info("terminal session ended")
	return nil
}
