package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"pricetrack"
	"pricetrack/config"
)

// app is the state shared by all commands once the root pre-run has set it up.
type app struct {
	cfg    config.Config
	tag    language.Tag
	logger *slog.Logger
	store  *pricetrack.SQLiteStore
	ledger *pricetrack.Ledger
}

// noDatabase marks commands that run without opening the store.
const noDatabase = "no-database"

var (
	configPath string
	state      app

	rootCmd = &cobra.Command{
		Use:           "pricetrack",
		Short:         "Track what things cost where you buy them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return teardown()
		},
	}
)

func setup(cmd *cobra.Command) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	tag, _ := cfg.Tag()

	state = app{cfg: cfg, tag: tag, logger: logger}
	if cmd.Annotations[noDatabase] != "" {
		return nil
	}
	store, err := pricetrack.OpenSQLite(cfg.Database, logger)
	if err != nil {
		return err
	}
	state.store = store
	state.ledger = pricetrack.NewLedger(store, logger)
	return nil
}

func teardown() error {
	if state.cfg.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(state.cfg.MetricsTextfile, prometheus.DefaultGatherer); err != nil {
			state.logger.Warn("write metrics textfile", "path", state.cfg.MetricsTextfile, "err", err)
		}
	}
	if state.store != nil {
		return state.store.Close()
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "pricetrack.yaml", "path to the config file")

	rootCmd.AddCommand(dataSetCmd, itemCmd, sourceCmd, priceCmd, analyseCmd, unitsCmd, exportCmd, inspectCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if pricetrack.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, "pricetrack:", err)
		} else {
			fmt.Fprintln(os.Stderr, "pricetrack: error:", err)
		}
		if state.store != nil {
			state.store.Close()
		}
		os.Exit(1)
	}
}
