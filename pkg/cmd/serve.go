package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/drivemini/pkg/app"
	"github.com/yeisme/drivemini/pkg/configs"
)

var (
	servePort int

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if servePort > 0 {
				cfg := configs.GetConfig()
				cfg.Server.Port = servePort
				configs.SetConfig(*cfg)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.NewApp(ctx)
			if err != nil {
				return err
			}

			return a.Run(ctx)
		},
	}
)

// registerServeCommands 注册 serve 命令.
func registerServeCommands() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "override server.port")

	rootCmd.AddCommand(serveCmd)
}
