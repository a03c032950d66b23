package cmd

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yeisme/drivemini/pkg/app"
	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/storage"
	"github.com/yeisme/drivemini/pkg/internal/types"
)

var (
	usageRefresh bool
	usageSkips   bool

	usageCmd = &cobra.Command{
		Use:   "usage",
		Short: "estimate storage usage once and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configs.GetConfig()

			mgr, err := storage.New(ctx, *cfg)
			if err != nil {
				return err
			}
			defer func() { _ = mgr.Close() }()

			usage, err := app.NewUsage(ctx, cfg, mgr, nil)
			if err != nil {
				return err
			}

			get := usage.Current
			if usageRefresh {
				get = usage.Refresh
			}

			report, err := get(ctx)
			if err != nil {
				return fmt.Errorf("estimate usage: %w", err)
			}

			printUsage(cmd, report)

			return nil
		},
	}
)

func printUsage(cmd *cobra.Command, r *types.UsageResponse) {
	out := cmd.OutOrStdout()

	printTable(out, nil, [][]string{
		{"used", humanize.IBytes(uint64(r.UsedBytes))},
		{"total", humanize.IBytes(uint64(r.TotalBytes))},
		{"remaining", humanize.IBytes(uint64(r.RemainingBytes))},
		{"percent", strconv.FormatFloat(r.PercentUsed, 'f', 1, 64) + "%"},
		{"objects", humanize.Comma(int64(r.Stats.Objects))},
		{"folders", humanize.Comma(int64(r.Stats.Folders))},
		{"skipped", strconv.Itoa(r.Stats.Skipped)},
		{"files left", "~" + humanize.Comma(r.FilesRemaining)},
		{"level", string(r.Recommendation.Level)},
		{"computed", humanize.Time(r.ComputedAt)},
	})

	if r.Recommendation.Message != "" {
		fmt.Fprintln(out, r.Recommendation.Message)
	}

	if !usageSkips || len(r.Stats.Skips) == 0 {
		return
	}

	rows := make([][]string, 0, len(r.Stats.Skips))
	for _, s := range r.Stats.Skips {
		rows = append(rows, []string{s.Path, string(s.Reason)})
	}

	fmt.Fprintln(out)
	printTable(out, []string{"path", "reason"}, rows)
}

// registerUsageCommands 注册 usage 命令.
func registerUsageCommands() {
	usageCmd.Flags().BoolVarP(&usageRefresh, "refresh", "r", false, "bypass the snapshot cache")
	usageCmd.Flags().BoolVar(&usageSkips, "skips", false, "list skipped paths")

	rootCmd.AddCommand(usageCmd)
}
