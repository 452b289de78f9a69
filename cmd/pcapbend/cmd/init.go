/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/pcapbend/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a pcapbend configuration file",
	Long: `Create a configuration file with defaults and a freshly generated API key.

This command will:
- Create the configuration directory
- Generate a secure API key for the REST API
- Write the configuration with owner-only permissions

Examples:
  pcapbend init
  pcapbend init --config ./pcapbend.yaml --pipe-path /tmp/wireshark.fifo --print-key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		pipePath, _ := cmd.Flags().GetString("pipe-path")
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		cfg, created, err := initializeConfig(configPath, pipePath, force)
		if err != nil {
			return err
		}
		if !created {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", configPath)
			return nil
		}

		cmd.Printf("✅ Configuration created at %s\n", configPath)
		if printKey {
			cmd.Printf("\n🔑 API Key: %s\n", cfg.Server.APIKey)
			cmd.Printf("⚠️  Store this key securely! It is also saved in %s\n", configPath)
		}
		cmd.Printf("\nYou can now start the server with:\n")
		cmd.Printf("  pcapbend serve --config %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("pipe-path", "", "Default named pipe for send (optional)")
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
	// The root command would otherwise try to load the file we are about to create.
	initCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return nil }
}

// initializeConfig bootstraps the config at configPath. It reports false
// when a config exists and force is not set.
func initializeConfig(configPath, pipePath string, force bool) (*config.Config, bool, error) {
	if config.ConfigExists(configPath) && !force {
		return nil, false, nil
	}
	cfg, err := config.BootstrapConfig(configPath, pipePath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to bootstrap config: %w", err)
	}
	return cfg, true, nil
}
