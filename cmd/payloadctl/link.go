package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"exnotify/payloadhub/pkg/analysislink"
)

var linkPageURL string

var linkCmd = &cobra.Command{
	Use:   "link <json-file>",
	Short: "Store an exception report through a running server and print its analysis link",
	Long: `Read a JSON exception report (use - for stdin), encode it the way the
notifiers do, post it to <page-url>/api/compress and print
<page-url>?payload=<key>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var src io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			src = f
		}

		var report json.RawMessage
		if err := json.NewDecoder(src).Decode(&report); err != nil {
			return fmt.Errorf("parse report: %w", err)
		}

		client, err := analysislink.New(linkPageURL, nil)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), globalOpts.Timeout)
		defer cancel()
		link, err := client.BuildLink(ctx, report)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}

func init() {
	linkCmd.Flags().StringVar(&linkPageURL, "page-url", "http://localhost:8080/analysis", "analysis page URL")
}
