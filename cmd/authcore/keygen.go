package main

import (
	"encoding/base64"
	"fmt"

	"github.com/bookwell/authcore/internal"
	"github.com/bookwell/authcore/keyring"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewKeygenCmd creates the keygen subcommand.
func NewKeygenCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing secret",
		Long:  `Print a random secret in the "base64:" form accepted by AUTH_SECRET_CURRENT and AUTH_SECRET_PREVIOUS.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if size < keyring.MinSecretLength {
				return oops.Code("CONFIG_INVALID").With("bytes", size).Errorf("secret must be at least %d bytes", keyring.MinSecretLength)
			}
			secret, err := internal.NewSecret(size)
			if err != nil {
				return oops.Code("KEYGEN_FAILED").Wrap(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "base64:" + base64.StdEncoding.EncodeToString(secret))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "bytes", 32, "secret size in bytes")

	return cmd
}
