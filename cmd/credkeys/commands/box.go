package commands

import (
	"fmt"

	"github.com/mr-tron/base58/base58"
	"github.com/spf13/cobra"

	"credkeys/pkg/keyid"
	"credkeys/pkg/keymanager"
)

func (c *cli) encryptCmd() *cobra.Command {
	var (
		in        inputFlags
		to        string
		anonymous bool
	)
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a message to an encryption identifier (default: yourself)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var recipient []byte
			if to != "" {
				pub, err := keyid.DecodeKind(keyid.KindEncryption, to)
				if err != nil {
					return err
				}
				recipient = pub
			}

			var ct []byte
			if anonymous && recipient != nil {
				msg, err := in.read(c)
				if err != nil {
					return err
				}
				if ct, err = keymanager.EncryptAnonymous(msg, recipient); err != nil {
					return err
				}
			} else {
				m, err := c.manager(cmd)
				if err != nil {
					return err
				}
				defer m.Wipe()
				msg, err := in.read(c)
				if err != nil {
					return err
				}
				if anonymous {
					ct, err = m.EncryptAnonymous(msg, nil)
				} else {
					ct, err = m.Encrypt(msg, recipient)
				}
				if err != nil {
					return err
				}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), base58.Encode(ct))
			return err
		},
	}
	in.register(cmd, "message")
	cmd.Flags().StringVar(&to, "to", "", "recipient encryption identifier")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "do not reveal the sender; needs no credentials when --to is set")
	return cmd
}

func (c *cli) decryptCmd() *cobra.Command {
	var (
		in         inputFlags
		showSender bool
	)
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a base58 ciphertext addressed to the credential encryption key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.manager(cmd)
			if err != nil {
				return err
			}
			defer m.Wipe()
			text, err := in.readText(c)
			if err != nil {
				return err
			}
			ct, err := decodeBase58("ciphertext", text)
			if err != nil {
				return err
			}
			pt, sender, err := m.DecryptFrom(ct)
			if err != nil {
				return err
			}
			if showSender {
				from := "anonymous"
				if sender != nil {
					if from, err = keyid.Encode(keyid.KindEncryption, sender); err != nil {
						return err
					}
				}
				if err := printField(cmd.ErrOrStderr(), "sender", from); err != nil {
					return err
				}
			}
			_, err = cmd.OutOrStdout().Write(pt)
			return err
		},
	}
	in.register(cmd, "base58 ciphertext")
	cmd.Flags().BoolVar(&showSender, "show-sender", false, "print the sender's encryption identifier to stderr")
	return cmd
}
