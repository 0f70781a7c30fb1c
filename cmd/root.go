package main

import (
	"os"

	"github.com/spf13/cobra"

	"gramfix/internal/config"
	"gramfix/internal/platform/logger"
	"gramfix/internal/version"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gramfix",
	Short: "English grammar and spelling correction",
	Long: `gramfix runs the two-stage correction pipeline (grammar model, then
dictionary) from the command line and manages its resources: the frequency
dictionary file and the custom word set in Redis.`,
	Version:      version.GitRelease,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Annotations["config"] == "none" {
			return nil
		}
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
		// stdout carries results, logs go to stderr
		logger.Init(logger.Options{Level: cfg.Log.Level, Format: "console", Writer: os.Stderr})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./gramfix.yaml or ~/.gramfix/gramfix.yaml)",
	)
	rootCmd.AddCommand(checkCmd, lookupCmd, wordsCmd, dictCmd, configCmd, versionCmd)
}
