package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"padbridge/internal/bridge"
	interp "padbridge/internal/command"
	"padbridge/internal/keys"
	"padbridge/internal/pairing"
)

var infoPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge",
	Long: `Start the TCP listener that turns pad commands into key presses.

When an info port is set, an HTTP endpoint also serves:
  GET /check-conn  liveness
  GET /pairing     {"host": ..., "port": ...}
  GET /status      live connections and Left Ctrl state

Press Ctrl+C to stop. A held Left Ctrl is released on the way out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("info-port") {
			cfg.InfoPort = infoPort
		}

		logger := cfg.NewLogger()
		slog.SetDefault(logger)

		keyboard := keys.NewKeyboard(keys.NewSystemActuator(logger), logger)
		interpreter := interp.NewInterpreter(keyboard, cfg.KeyDelay, logger)
		server := bridge.NewServer(cfg.Addr(), interpreter, bridge.ConnOptions{
			IdleTimeout:    cfg.IdleTimeout,
			MaxMessageSize: cfg.MaxMessageSize,
			RateLimit:      cfg.RateLimit,
			RateBurst:      cfg.RateBurst,
		}, logger)

		// bind first so a busy port is reported before anything else starts
		if err := server.Listen(); err != nil {
			return err
		}

		boundPort := cfg.Port
		if addr, ok := server.ListenAddr().(*net.TCPAddr); ok {
			boundPort = addr.Port
		}
		payload := pairing.NewPayload(cfg.Host, boundPort)
		color.Green("Listening on %s:%d", payload.Host, payload.Port)
		color.HiBlack("Enter this host and port in the pad app settings.")

		errChan := make(chan error, 2)
		go func() {
			errChan <- server.Serve()
		}()

		var info *pairing.Server
		if cfg.InfoPort != 0 {
			infoAddr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.InfoPort))
			info = pairing.NewServer(infoAddr, pairing.NewRouter(payload, server), logger)
			go func() {
				if err := info.Start(); err != nil {
					errChan <- err
				}
			}()
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		var runErr error
		select {
		case <-sigChan:
			logger.Info("received_shutdown_signal")
		case runErr = <-errChan:
			if runErr != nil {
				logger.Error("server_error", "error", runErr.Error())
			}
		}

		if info != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := info.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				logger.Warn("info_server_shutdown_failed", "error", err.Error())
			}
		}
		server.Stop()

		if runErr != nil {
			return fmt.Errorf("bridge stopped: %w", runErr)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&infoPort, "info-port", 0, "HTTP port for pairing/status info, 0 disables it (default from INFO_PORT)")
	rootCmd.AddCommand(serveCmd)
}
