package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/onec-mcp/bridge/internal/config"
	"github.com/onec-mcp/bridge/internal/logging"
	"github.com/onec-mcp/bridge/internal/server"
	"github.com/onec-mcp/bridge/internal/signal"
	"github.com/spf13/cobra"
)

var (
	servePort         int
	serveAwaitTimeout time.Duration
	servePollTimeout  time.Duration
	serveLogLevel     string
	serveDebug        bool
	serveHealthDetail bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge HTTP server",
	Long: `Run the bridge's HTTP server.

Endpoints:
  GET/POST/DELETE /mcp            MCP transport (modern + legacy SSE)
  POST            /mcp/message    Legacy SSE back-channel
  GET             /1c/poll        Business-client long-poll
  POST            /1c/result      Business-client result submit
  POST            /api/<tool>     REST mirror of the MCP tools
  GET             /health         Health summary`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port (env PORT, default 8787)")
	serveCmd.Flags().DurationVar(&serveAwaitTimeout, "timeout", 0, "Submitter await timeout (env TIMEOUT, default 180s)")
	serveCmd.Flags().DurationVar(&servePollTimeout, "poll-timeout", 0, "Default long-poll wait (env POLL_TIMEOUT, default 0 = non-blocking)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "Log level: debug|info|warn|error (env LOG_LEVEL)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Verbose logging (env DEBUG)")
	serveCmd.Flags().BoolVar(&serveHealthDetail, "health-detail", false, "Include per-channel detail in /health")
}

func runServe(cmd *cobra.Command, args []string) error {
	ov := config.Overrides{}
	if cmd.Flags().Changed("port") {
		ov.Port = &servePort
	}
	if cmd.Flags().Changed("timeout") {
		ov.AwaitTimeout = &serveAwaitTimeout
	}
	if cmd.Flags().Changed("poll-timeout") {
		ov.PollTimeout = &servePollTimeout
	}
	if cmd.Flags().Changed("log-level") {
		ov.LogLevel = &serveLogLevel
	}
	if cmd.Flags().Changed("debug") {
		ov.Debug = &serveDebug
	}
	if cmd.Flags().Changed("health-detail") {
		ov.HealthDetail = &serveHealthDetail
	}

	cfg, err := config.Load(ov)
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.LogLevel, cfg.Debug)

	ctx, stop := signal.NotifyContext()
	defer stop()

	srv := server.New(cfg, logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	logger.Info("bridge listening", "port", cfg.Port)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
