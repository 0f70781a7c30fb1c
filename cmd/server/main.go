// Command gramfix-server serves the correction API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gramfix/internal/app"
	"gramfix/internal/config"
	"gramfix/internal/platform/logger"
	"gramfix/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gramfix-server",
	Short: "Serve the grammar and spelling correction API",
	Long: `gramfix-server loads the frequency dictionary and the grammar model once,
then serves POST /spellcheck and POST /api/v1/correct until interrupted.

Configuration comes from gramfix.yaml (./ or ~/.gramfix/), GRAMFIX_* environment
variables and the flags below. PORT is honoured when no address is set.`,
	Version:      version.GitRelease,
	SilenceUsage: true,
	RunE:         serve,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file (default: ./gramfix.yaml or ~/.gramfix/gramfix.yaml)")
	f.String("addr", "", "listen address, e.g. 0.0.0.0:8000")
	f.String("log-level", "", "log level: trace, debug, info, warn, error")
	f.String("profile", "", "generator profile: bart-gec, t5-fix, t5-fix-spell-first")
	f.String("backend", "", "generator backend: hf, openai, echo")
}

func serve(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return err
	}
	for key, flag := range map[string]string{
		"server.addr":       "addr",
		"log.level":         "log-level",
		"generator.profile": "profile",
		"generator.backend": "backend",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "gramfix"})
	log := logger.Named("main")
	log.Info().
		Str("version", version.GitRelease).
		Str("commit", version.GitCommit).
		Str("profile", cfg.Generator.Profile).
		Str("order", cfg.Pipeline.Order).
		Msg("starting")

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, app.WithVersion(version.GitRelease))
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
		log.Info().Msg("stopped")
	}()
	return a.Run(ctx)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
