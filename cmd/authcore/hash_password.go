package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/bookwell/authcore/password"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for DEMO_ACCOUNTS",
		Long:  `Read a password from the first line of stdin and print its argon2id hash.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return oops.Code("INPUT_INVALID").Errorf("no password on stdin")
			}
			plaintext := strings.TrimRight(line, "\r\n")

			hasher, err := password.NewHasher(password.DefaultConfig())
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			encoded, err := hasher.Hash(plaintext)
			if err != nil {
				return oops.Code("HASH_FAILED").Wrap(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
}
