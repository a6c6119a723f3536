package command

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"padbridge/cmd/padbridge/command/client"
	interp "padbridge/internal/command"
)

var strategemName string

// sendCmd groups the test commands
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send test commands to a running bridge",
	Long: `Send a single command to a running bridge, the same way the app does.
Check the bridge log for the result, the protocol sends no reply.`,
}

var sendStrategemCmd = &cobra.Command{
	Use:   "strategem [keys...]",
	Short: "Press and release a sequence of keys",
	Example: `  padbridge send strategem w s d a --name test_orbital`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sequence := args
		if len(sequence) == 0 {
			sequence = []string{"w", "s", "d", "a"}
		}
		return send(cmd, interp.Message{
			Type:     interp.TypeStrategem,
			Name:     strategemName,
			Sequence: sequence,
		})
	},
}

var sendCtrlCmd = &cobra.Command{
	Use:       "ctrl [toggle|down|up]",
	Short:     "Toggle or force Left Ctrl",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"toggle", "down", "up"},
	RunE: func(cmd *cobra.Command, args []string) error {
		msgType := interp.TypeToggleLeftCtrl
		if len(args) == 1 {
			switch args[0] {
			case "down":
				msgType = interp.TypeCtrlDown
			case "up":
				msgType = interp.TypeCtrlUp
			}
		}
		return send(cmd, interp.Message{Type: msgType})
	},
}

var sendDirectionCmd = &cobra.Command{
	Use:   "direction <up|down|left|right> [down|up]",
	Short: "Hold or release a direction key",
	Long: `Send direction_down (default) or direction_up for one direction.
Unknown directions are accepted here and ignored by the bridge.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		msgType := interp.TypeDirectionDown
		if len(args) == 2 {
			switch strings.ToLower(args[1]) {
			case "down":
			case "up":
				msgType = interp.TypeDirectionUp
			default:
				return fmt.Errorf("invalid state %q, expected down or up", args[1])
			}
		}
		return send(cmd, interp.Message{Type: msgType, Direction: args[0]})
	},
}

func send(cmd *cobra.Command, msg interp.Message) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// a wildcard listen address is not dialable everywhere
	target := cfg.Host
	if ip := net.ParseIP(target); ip != nil && ip.IsUnspecified() {
		target = "127.0.0.1"
	}
	addr := net.JoinHostPort(target, strconv.Itoa(cfg.Port))

	if err := client.NewTCPClient(addr).Send(msg); err != nil {
		return err
	}
	color.Green("Sent %s to %s", msg.Type, addr)
	return nil
}

func init() {
	sendStrategemCmd.Flags().StringVar(&strategemName, "name", "test_orbital", "strategem name shown in the bridge log")

	sendCmd.AddCommand(sendStrategemCmd, sendCtrlCmd, sendDirectionCmd)
	rootCmd.AddCommand(sendCmd)
}
