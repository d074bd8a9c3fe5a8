// cmd/portal/token.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/yanizio/portal/internal/auth"
)

const defaultTokenTTL = 8 * time.Hour

// tokenCommand mints a bearer token signed with auth.jwt_secret.  Intended
// for local testing; production tokens come from the identity provider.
func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "mint a bearer token for local testing",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "subject (user id)"},
			&cli.StringFlag{Name: "role", Value: string(auth.RoleClient), Usage: "client or admin"},
			&cli.DurationFlag{Name: "ttl", Value: defaultTokenTTL, Usage: "token lifetime"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			role := auth.Role(cmd.String("role"))
			if !role.Valid() {
				return fmt.Errorf("token: unknown role %q", role)
			}
			v := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
			tok, err := v.Issue(auth.Actor{ID: cmd.String("user"), Role: role}, cmd.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, tok)
			return nil
		},
	}
}
