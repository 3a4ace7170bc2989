// Command sendctl runs and previews send campaigns from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bulksender/internal/config"
	"bulksender/internal/logger"
)

var (
	verbose bool
	log     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "sendctl",
	Short: "Send personalized messages to every row of a contact list",
	Long: `sendctl renders a message template against each row of a CSV file or a
database table and sends it through the configured messaging session, one row
at a time with a fixed pause between rows.

Connection settings come from the environment (and .env), see the README.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		level := "warn"
		if verbose {
			level = "debug"
		}
		l, err := logger.New("development", level)
		if err != nil {
			return err
		}
		log = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment configuration, letting --transport override it
func loadConfig(transport string) (*config.Config, error) {
	if transport != "" {
		os.Setenv("TRANSPORT", transport)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
