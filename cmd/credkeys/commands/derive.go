package commands

import (
	"github.com/mr-tron/base58/base58"
	"github.com/spf13/cobra"

	"credkeys/pkg/keymanager"
)

func (c *cli) deriveCmd() *cobra.Command {
	var showMnemonic bool
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive keys from credentials and print the public identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !showMnemonic {
				m, err := c.manager(cmd)
				if err != nil {
					return err
				}
				defer m.Wipe()
				return printIdentity(cmd, m)
			}

			cred, err := c.credentials()
			if err != nil {
				return err
			}
			seed, err := c.deriver.DeriveSeed(cmd.Context(), cred.appContext, cred.email, cred.password)
			if err != nil {
				return err
			}
			defer seed.Wipe()
			m, err := keymanager.New(seed, keymanager.WithLogger(c.logger))
			if err != nil {
				return err
			}
			defer m.Wipe()
			if err := printIdentity(cmd, m); err != nil {
				return err
			}
			phrase, err := seed.Mnemonic()
			if err != nil {
				return err
			}
			return printField(cmd.OutOrStdout(), "recovery phrase", phrase)
		},
	}
	cmd.Flags().BoolVar(&showMnemonic, "mnemonic", false, "also print the 24-word recovery phrase for the seed")
	return cmd
}

func (c *cli) restoreCmd() *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Rebuild the public identity from a recovery phrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			phrase, err := in.readText(c)
			if err != nil {
				return err
			}
			seed, err := keymanager.SeedFromMnemonic(phrase)
			if err != nil {
				return err
			}
			defer seed.Wipe()
			m, err := keymanager.New(seed, keymanager.WithLogger(c.logger))
			if err != nil {
				return err
			}
			defer m.Wipe()
			return printIdentity(cmd, m)
		},
	}
	in.register(cmd, "recovery phrase")
	return cmd
}

func printIdentity(cmd *cobra.Command, m *keymanager.Manager) error {
	w := cmd.OutOrStdout()
	fields := [][2]string{
		{"identifier", m.Identifier()},
		{"encryption identifier", m.EncryptionIdentifier()},
		{"signing public key", base58.Encode(m.SigningPublicKey())},
		{"encryption public key", base58.Encode(m.EncryptionPublicKey())},
	}
	for _, f := range fields {
		if err := printField(w, f[0], f[1]); err != nil {
			return err
		}
	}
	return nil
}
