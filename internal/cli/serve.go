package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cookchat-oss/cookchat/internal/chat"
	"github.com/cookchat-oss/cookchat/internal/config"
	"github.com/cookchat-oss/cookchat/internal/server"
	"github.com/cookchat-oss/cookchat/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat relay",
	Long:  `Start the HTTP relay serving the chat API, the memory endpoints, and the embedded frontend.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to bind to (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}

	logger := telemetry.NewLogger(verbose)
	defer logger.Close()
	if cfg.Logging.File != "" {
		if err := logger.WithFile(cfg.Logging.File); err != nil {
			return err
		}
	}

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	llm, err := newProvider(cfg)
	if err != nil {
		return err
	}

	orchestrator := chat.New(store, llm, cfg.Provider.Model, cfg.Provider.MaxTokens, cfg.Chat.SystemPrompt, logger)
	srv := server.New(cfg, orchestrator, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return srv.Start(ctx, addr)
}
