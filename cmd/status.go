package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ingestion status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		count, err := st.CountOpportunities(ctx)
		if err != nil {
			return err
		}
		last, err := st.LastCreatedAt(ctx)
		if err != nil {
			return err
		}

		fields := []zap.Field{
			zap.String("driver", cfg.Store.Driver),
			zap.Int("opportunities", count),
		}
		if last != nil {
			fields = append(fields, zap.Time("last_ingested_at", *last))
		}
		zap.L().Info("store status", fields...)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
