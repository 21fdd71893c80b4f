package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	logr    *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "schedulerctl",
		Short: "Offline tooling for the academy scheduling engine",
		Long:  `Validates engine configuration patches and runs the optimizer against local decision files without a database.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				logr = zap.NewNop()
				return nil
			}
			var err error
			logr, err = zap.NewDevelopment()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logr != nil {
				_ = logr.Sync()
			}
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine activity to stderr")

	rootCmd.AddCommand(validateConfigCmd())
	rootCmd.AddCommand(optimizeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
