package cli

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

var metricsReset bool

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show cache and messaging metrics",
	Long: `Print the cache and messaging counters of this process as JSON.

Examples:
  taskcore metrics
  taskcore metrics --reset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Cache == nil || app.MessagingMetrics == nil {
			return fmt.Errorf("application not initialized")
		}

		report := map[string]any{
			"cache": map[string]any{
				"counters":       app.Cache.Metrics().Snapshot(),
				"averageTimesMs": app.Cache.Metrics().AverageOperationTimes(),
			},
			"messaging": map[string]any{
				"counters":              app.MessagingMetrics.Snapshot(),
				"averagePublishTimesMs": app.MessagingMetrics.AveragePublishTimes(),
				"averageConsumeTimesMs": app.MessagingMetrics.AverageConsumptionTimes(),
			},
		}
		data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		if metricsReset {
			app.Cache.Metrics().Reset()
			app.MessagingMetrics.Reset()
		}
		return nil
	},
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsReset, "reset", false, "reset counters after printing")
	rootCmd.AddCommand(metricsCmd)
}
