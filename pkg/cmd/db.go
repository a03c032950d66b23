package cmd

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/storage/db"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "usage history database drivers",
	}

	dbListCmd = &cobra.Command{
		Use:     "ls",
		Short:   "list registered database drivers",
		Aliases: []string{"list"},
		Run: func(cmd *cobra.Command, args []string) {
			cfg := configs.GetConfig().DB

			kinds := db.GetRegisteredDBTypes()
			slices.Sort(kinds)

			rows := make([][]string, 0, len(kinds))
			for _, t := range kinds {
				rows = append(rows, []string{string(t), mark(cfg.Enabled && t == cfg.Type)})
			}

			printTable(cmd.OutOrStdout(), []string{"driver", "active"}, rows)
		},
	}
)

// registerDBCommands 注册 db 命令.
func registerDBCommands() {
	dbCmd.AddCommand(dbListCmd)
	rootCmd.AddCommand(dbCmd)
}
