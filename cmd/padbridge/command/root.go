package command

// root.go defines the root command for padbridge and the flags shared by subcommands.

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"padbridge/internal/config"
)

var (
	host string // listener host, overrides PAD_HOST
	port int    // listener port, overrides PAD_PORT
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "padbridge",
	Short: "padbridge - keyboard bridge for the Helldivers pad app",
	Long: `padbridge listens for commands from the pad app on the local network and
turns them into key presses on this machine.

- "padbridge serve" runs the bridge
- "padbridge pairing" prints the host/port to enter in the app
- "padbridge send" sends test commands to a running bridge

Settings come from the environment or a .env file (PAD_HOST, PAD_PORT,
INFO_PORT, KEY_DELAY, LOG_LEVEL, LOG_FORMAT, ...). Flags override them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err) // Print error to standard error
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags = available to all subcommands
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "bridge host (default from PAD_HOST or 0.0.0.0)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "bridge port (default from PAD_PORT or 50555)")
}

// loadConfig loads the environment config and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
