package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwtpkg "exnotify/payloadhub/pkg/jwt"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint an admin bearer token",
	Long: `Mint an HS256 admin token signed with jwt.signing_key. The subject must
also appear in admin.subjects for the server to accept it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl := cfg.JWT.AdminTokenTTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}
		manager, err := jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, ttl)
		if err != nil {
			return err
		}
		token, err := manager.GenerateAdminToken(args[0])
		if err != nil {
			return err
		}

		allowed := false
		for _, s := range cfg.Admin.Subjects {
			if s == args[0] {
				allowed = true
				break
			}
		}
		if !allowed {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q is not in admin.subjects\n", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default jwt.admin_token_ttl)")
}
