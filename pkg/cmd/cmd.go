// Package cmd 提供 drivemini 的命令行入口.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/log"
)

var (
	cfgPath string
	debug   bool

	rootCmd = &cobra.Command{
		Use:           configs.AppName,
		Short:         "A small cloud drive with bounded storage usage estimation",
		Version:       configs.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.InitConfig(cfgPath); err != nil {
				return err
			}

			if debug {
				cfg := configs.GetConfig()
				cfg.Server.Debug = true
				configs.SetConfig(*cfg)
			}

			log.Init()

			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug mode")

	registerServeCommands()
	registerUsageCommands()
	registerConfigsCommands()
	registerKVCommands()
	registerDBCommands()
	registerMQCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
