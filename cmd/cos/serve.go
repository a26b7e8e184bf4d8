package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/autohaus/cos/internal/config"
	"github.com/autohaus/cos/internal/db"
	"github.com/autohaus/cos/internal/hub"
	"github.com/autohaus/cos/internal/notify"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the C-OS hub server",
		Long:  "Launches the hub: the WebSocket chat channel, the REST surfaces, and the ambient recon sweep.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cos.yaml", "path to C-OS config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, err := loadConfig(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}

	notifier, err := notify.NewMulti(cfg.Notify)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	return hub.Start(ctx, hub.StartOpts{
		DB:       gdb,
		Config:   cfg,
		Notifier: notifier,
		Out:      cmd.OutOrStdout(),
	})
}

// loadConfig reads the config file at path. When the default path does not
// exist the built-in defaults apply; an explicitly flagged path must exist.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return config.Load(path)
}
