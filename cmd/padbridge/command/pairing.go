package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"padbridge/internal/pairing"
)

var pairingCmd = &cobra.Command{
	Use:   "pairing",
	Short: "Print the pairing payload for the app",
	Long:  `Print the {"host", "port"} document the app needs to reach this machine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		data, err := json.Marshal(pairing.NewPayload(cfg.Host, cfg.Port))
		if err != nil {
			return fmt.Errorf("failed to encode pairing payload: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pairingCmd)
}
