package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/spf13/cobra"
)

type inputFlags struct {
	message string
	inPath  string
}

func (f *inputFlags) register(cmd *cobra.Command, what string) {
	cmd.Flags().StringVarP(&f.message, "message", "m", "", what+" as a literal string")
	cmd.Flags().StringVar(&f.inPath, "in", "", "read "+what+" from this file")
	cmd.MarkFlagsMutuallyExclusive("message", "in")
}

// read returns the input from --message, --in or the remainder of stdin, in
// that order. With --password-stdin the password line has already been
// consumed.
func (f *inputFlags) read(c *cli) ([]byte, error) {
	switch {
	case f.message != "":
		return []byte(f.message), nil
	case f.inPath != "":
		return os.ReadFile(f.inPath)
	default:
		return io.ReadAll(c.stdin)
	}
}

// readText is read for base58 payloads, with surrounding whitespace removed.
func (f *inputFlags) readText(c *cli) (string, error) {
	b, err := f.read(c)
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", errors.New("empty input")
	}
	return s, nil
}

func decodeBase58(name, s string) ([]byte, error) {
	b, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%s is not base58: %w", name, err)
	}
	return b, nil
}

func trimLineEnding(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

func printField(w io.Writer, name, value string) error {
	_, err := fmt.Fprintf(w, "%-22s %s\n", name+":", value)
	return err
}
