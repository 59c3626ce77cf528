package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"exnotify/payloadhub/internal/bootstrap"
	"exnotify/payloadhub/internal/config"
)

type globalOptions struct {
	ConfigPath string
	Timeout    time.Duration
	Verbose    bool
}

var (
	globalOpts globalOptions
	cfg        *config.Config
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "payloadctl",
	Short: "Operate the payload store directly",
	Long: `payloadctl talks to the configured primary and replica backends without
going through the HTTP server. It reads the same config file as the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(globalOpts.ConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if globalOpts.Verbose {
			// stdout carries command output, so logs go to stderr.
			logger, err = zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
		} else {
			logger = zap.NewNop()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalOpts.ConfigPath, "config", "c", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().DurationVar(&globalOpts.Timeout, "timeout", 30*time.Second, "overall command timeout")
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "log storage activity to stderr")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(linkCmd)
}

// withStorage opens the storage stack for one command and closes it after
// fn returns, which also waits for detached replica writes.
func withStorage(cmd *cobra.Command, fn func(store *bootstrap.Storage) error) error {
	store, err := bootstrap.NewStorage(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	runErr := fn(store)
	if err := store.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close storage: %w", err)
	}
	return runErr
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
