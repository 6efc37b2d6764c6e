package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"freakfest/internal/auth"
)

var passwordFlag string

// tokenCmd signs an admin token with the configured secret, for scripts
// calling the admin API.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed admin token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ts := auth.TokenService{
			Secret:   []byte(cfg.Auth.JWTSecret),
			Issuer:   cfg.Auth.JWTIssuer,
			Duration: cfg.Auth.JWTDuration,
		}
		tok, exp, err := ts.Sign(auth.AdminSubject)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

// hashPasswordCmd prints the bcrypt hash to put in auth.admin_password_hash.
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash an admin password for auth.admin_password_hash",
	Long: `Hash an admin password with bcrypt. The password is taken from --password
or, when that is empty, from the first line of stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pw := passwordFlag
		if pw == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no password given")
			}
			pw = strings.TrimRight(line, "\r\n")
		}
		hash, err := auth.HashPassword(pw)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	hashPasswordCmd.Flags().StringVar(&passwordFlag, "password", "", "password to hash (default: read stdin)")
}
