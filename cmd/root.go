package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bid-evaluator/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bid-evaluator",
	Short: "Contractor bid evaluation engine",
	Long: "Gathers public evidence about the contractors bidding on a reconstruction project, " +
		"scores and ranks them, and writes a short recommendation for the homeowner.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
