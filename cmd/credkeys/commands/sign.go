package commands

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58/base58"
	"github.com/spf13/cobra"

	"credkeys/pkg/keymanager"
)

var errSignatureMismatch = errors.New("signature does not verify")

func (c *cli) signCmd() *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a message with the credential signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.manager(cmd)
			if err != nil {
				return err
			}
			defer m.Wipe()
			msg, err := in.read(c)
			if err != nil {
				return err
			}
			sig, err := m.Sign(msg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), base58.Encode(sig))
			return err
		},
	}
	in.register(cmd, "message")
	return cmd
}

func (c *cli) verifyCmd() *cobra.Command {
	var (
		in         inputFlags
		identifier string
		signature  string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signature against a signing identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := decodeBase58("signature", signature)
			if err != nil {
				return err
			}
			msg, err := in.read(c)
			if err != nil {
				return err
			}
			ok, err := keymanager.VerifyWithIdentifier(msg, sig, identifier)
			if err != nil {
				return err
			}
			if !ok {
				return errSignatureMismatch
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "signature valid")
			return err
		},
	}
	in.register(cmd, "message")
	cmd.Flags().StringVar(&identifier, "identifier", "", "signer identifier")
	cmd.Flags().StringVar(&signature, "signature", "", "base58 signature")
	_ = cmd.MarkFlagRequired("identifier")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}
