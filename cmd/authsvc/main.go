// Command authsvc runs the token authentication service.
//
//	authsvc serve --config ./configs --port 8080
//	authsvc migrate --config ./configs
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KOMKZ/go-yogan-auth/application"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:           "authsvc",
		Short:         "Access/refresh token authentication service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config", "./configs", "directory holding config.yaml and <APP_ENV>.yaml")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until SIGINT/SIGTERM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := application.Load(application.LoadOptions{ConfigDir: configDir, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			if cfg.App.Version == "" || version != "dev" {
				cfg.App.Version = version
			}
			return application.New(cfg).Run(cmd.Context())
		},
	}
	application.BindFlags(serve.Flags())

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users and auth_history tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := application.Load(application.LoadOptions{ConfigDir: configDir})
			if err != nil {
				return err
			}
			return application.New(cfg).Migrate(cmd.Context())
		},
	}

	root.AddCommand(serve, migrate)
	return root
}
