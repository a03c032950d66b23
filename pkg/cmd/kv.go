package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:   "kv",
		Short: "key-value backends",
	}

	kvListCmd = &cobra.Command{
		Use:     "ls",
		Short:   "list registered kv backends",
		Aliases: []string{"list"},
		Run: func(cmd *cobra.Command, args []string) {
			current := kv.KVType(configs.GetConfig().KV.Type)

			kinds := kv.GetRegisteredKVTypes()
			rows := make([][]string, 0, len(kinds))
			for _, t := range kinds {
				rows = append(rows, []string{string(t), mark(t == current)})
			}

			printTable(cmd.OutOrStdout(), []string{"type", "active"}, rows)
		},
	}
)

// mark 在选中项上显示星号.
func mark(active bool) string {
	if active {
		return "*"
	}

	return ""
}

// registerKVCommands 注册 kv 命令.
func registerKVCommands() {
	kvCmd.AddCommand(kvListCmd)
	rootCmd.AddCommand(kvCmd)
}
