package commands

import (
	"encoding/hex"

	"github.com/mr-tron/base58/base58"
	"github.com/spf13/cobra"

	"credkeys/pkg/keyid"
)

func (c *cli) identifierCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identifier",
		Short: "Inspect public identifiers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "decode <identifier>",
		Short: "Validate an identifier and print the key it carries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, key, err := keyid.Decode(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, f := range [][2]string{
				{"kind", kind.String()},
				{"public key", base58.Encode(key)},
				{"public key hex", hex.EncodeToString(key)},
				{"fingerprint", keyid.Fingerprint(key)},
			} {
				if err := printField(w, f[0], f[1]); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return cmd
}
