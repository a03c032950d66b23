package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/storage/mq"
	"github.com/yeisme/drivemini/pkg/queue"
)

var (
	mqCmd = &cobra.Command{
		Use:   "mq",
		Short: "message queue backends and event topics",
	}

	mqListCmd = &cobra.Command{
		Use:     "ls",
		Short:   "list registered mq backends",
		Aliases: []string{"list"},
		Run: func(cmd *cobra.Command, args []string) {
			current := configs.GetConfig().MQ.GetMQType()

			rows := [][]string{}
			for _, t := range mq.GetRegisteredMQTypes() {
				rows = append(rows, []string{string(t), mark(t == current)})
			}

			printTable(cmd.OutOrStdout(), []string{"type", "active"}, rows)
		},
	}

	mqTopicsCmd = &cobra.Command{
		Use:   "topics",
		Short: "list published event topics",
		Run: func(cmd *cobra.Command, args []string) {
			rows := [][]string{}
			for _, t := range queue.AllTopics() {
				rows = append(rows, []string{t})
			}

			printTable(cmd.OutOrStdout(), []string{"topic"}, rows)
		},
	}
)

// registerMQCommands 注册 mq 命令.
func registerMQCommands() {
	mqCmd.AddCommand(mqListCmd, mqTopicsCmd)
	rootCmd.AddCommand(mqCmd)
}
