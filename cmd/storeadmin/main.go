// ABOUTME: Entry point for the storeadmin dashboard server
// ABOUTME: Cobra root command with serve, init, bootstrap, token and health subcommands

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389/storeadmin/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
     _                              _           _
 ___| |_ ___  _ __ ___  __ _  __| |_ __ ___ (_)_ __
/ __| __/ _ \| '__/ _ \/ _' |/ _' | '_ ' _ \| | '_ \
\__ \ || (_) | | |  __/ (_| | (_| | | | | | | | | | |
|___/\__\___/|_|  \___|\__,_|\__,_|_| |_| |_|_|_| |_|
`

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storeadmin",
		Short:         "Store admin dashboard",
		Long:          "storeadmin serves the store dashboard API and admin UI over a SQL store.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to config file (env STOREADMIN_CONFIG)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newBootstrapCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newHealthCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
