/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/pcapbend/pkg/api"
	"github.com/ssargent/pcapbend/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the pcapbend REST API server. Captures uploaded to the server are
held in memory as editing sessions until deleted or the server stops.

Flags override values from the config file. An empty API key disables
authentication; run 'pcapbend init' to generate a config with a key.

Examples:
  pcapbend serve
  pcapbend serve --bind 0.0.0.0 --port 9000 --api-key mysecretkey`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}
		cfg := configFrom(cmd)
		applyServeFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		logger := loggerFrom(cmd)
		if cfg.Server.APIKey == "" {
			logger.Warn("API key authentication disabled")
		}

		sessions := container.GetSessionStoreFactory().CreateSessionStore(cfg.Limits.MaxSessions)
		starter := container.GetServerFactory().CreateServerStarter()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cmd.Printf("Starting pcapbend server on %s\n", cfg.Server.Address())
		cmd.Printf("Metrics available at: http://%s/metrics\n", cfg.Server.Address())
		return starter.StartServer(ctx, sessions, serverConfig(cfg), logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	registerServeFlags(serveCmd)
}

func registerServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("bind", "", "Address to bind server to")
	cmd.Flags().IntP("port", "p", 0, "Port to listen on")
	cmd.Flags().String("api-key", "", "API key for authentication")
	cmd.Flags().Int64("max-capture-bytes", 0, "Largest capture accepted by the API")
	cmd.Flags().Int("max-sessions", 0, "Most editing sessions held at once")
}

// applyServeFlags overrides config values with explicitly set flags
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("bind") {
		cfg.Server.Bind, _ = flags.GetString("bind")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("api-key") {
		cfg.Server.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("max-capture-bytes") {
		cfg.Limits.MaxCaptureBytes, _ = flags.GetInt64("max-capture-bytes")
	}
	if flags.Changed("max-sessions") {
		cfg.Limits.MaxSessions, _ = flags.GetInt("max-sessions")
	}
}

func serverConfig(cfg *config.Config) api.ServerConfig {
	return api.ServerConfig{
		Bind:            cfg.Server.Bind,
		Port:            cfg.Server.Port,
		APIKey:          cfg.Server.APIKey,
		MaxCaptureBytes: cfg.Limits.MaxCaptureBytes,
		TransportKind:   cfg.Transport.Kind,
		TransportTarget: cfg.Transport.Target(),
	}
}
