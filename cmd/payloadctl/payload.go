package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"exnotify/payloadhub/internal/bootstrap"
	"exnotify/payloadhub/internal/service"
)

var putFile string

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the payload stored under a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(store *bootstrap.Storage) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), globalOpts.Timeout)
			defer cancel()
			value, err := service.NewAdminService(store, logger).GetPayload(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		})
	},
}

var putCmd = &cobra.Command{
	Use:   "put [payload]",
	Short: "Store a payload and print its content key",
	Long: `Store a payload the same way POST /api/compress does. The payload is
taken from the argument, from --file, or from stdin when neither is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(cmd, args)
		if err != nil {
			return err
		}
		return withStorage(cmd, func(store *bootstrap.Storage) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), globalOpts.Timeout)
			defer cancel()
			key, err := service.NewPayloadService(store, logger).Compress(ctx, payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List unexpired records held by the replica",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(store *bootstrap.Storage) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), globalOpts.Timeout)
			defer cancel()
			return printJSON(cmd, service.NewAdminService(store, logger).ListPayloads(ctx))
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a key from both backends",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(store *bootstrap.Storage) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), globalOpts.Timeout)
			defer cancel()
			return service.NewAdminService(store, logger).DeletePayload(ctx, args[0])
		})
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired rows from the replica",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(store *bootstrap.Storage) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), globalOpts.Timeout)
			defer cancel()
			n, err := service.NewAdminService(store, logger).PurgeExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired record(s)\n", n)
			return nil
		})
	},
}

func init() {
	putCmd.Flags().StringVarP(&putFile, "file", "f", "", "read the payload from a file")
}

func readPayload(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case putFile != "":
		raw, err := os.ReadFile(putFile)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	default:
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}
