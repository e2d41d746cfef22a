package commands

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"credkeys/internal/config"
	"credkeys/internal/derivation"
	"credkeys/internal/platform/privacylog"
	"credkeys/internal/platform/ratelimiter"
	"credkeys/pkg/keymanager"
)

const passwordEnv = "CREDKEYS_PASSWORD"

type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

type cli struct {
	configPath    string
	contextText   string
	contextHex    string
	email         string
	passwordStdin bool
	metricsOut    string

	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	deriver  *derivation.Service
	stdin    *bufio.Reader
}

func Execute(ctx context.Context, info BuildInfo) error {
	return NewRootCommand(info).ExecuteContext(ctx)
}

func NewRootCommand(info BuildInfo) *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "credkeys",
		Short:        "Deterministic signing and encryption keys from email and password",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.metricsOut == "" || c.registry == nil {
				return nil
			}
			return prometheus.WriteToTextfile(c.metricsOut, c.registry)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to credkeys.yaml (optional)")
	flags.StringVar(&c.contextText, "context", "", "application context as text (overrides config)")
	flags.StringVar(&c.contextHex, "context-hex", "", "application context as hex (overrides config)")
	flags.StringVarP(&c.email, "email", "e", os.Getenv("CREDKEYS_EMAIL"), "account email")
	flags.BoolVar(&c.passwordStdin, "password-stdin", false, "read the password from the first line of stdin (default: $"+passwordEnv+")")
	flags.StringVar(&c.metricsOut, "metrics-out", "", "write derivation metrics to this file in Prometheus text format")
	root.MarkFlagsMutuallyExclusive("context", "context-hex")

	root.AddCommand(
		c.deriveCmd(),
		c.restoreCmd(),
		c.identifierCmd(),
		c.signCmd(),
		c.verifyCmd(),
		c.encryptCmd(),
		c.decryptCmd(),
		versionCmd(info),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	logger, err := privacylog.NewLogger(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	limit := cfg.Derivation.RateLimit
	c.registry = prometheus.NewRegistry()
	deriver, err := derivation.New(derivation.Options{
		Concurrency: cfg.Derivation.Concurrency,
		Timeout:     cfg.Derivation.Timeout,
		Limiter:     ratelimiter.New(limit.RPS, limit.Burst, limit.IdleTTL),
		Registerer:  c.registry,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	c.deriver = deriver
	c.stdin = bufio.NewReader(cmd.InOrStdin())
	return nil
}

func (c *cli) appContext() ([]byte, error) {
	switch {
	case c.contextHex != "":
		b, err := hex.DecodeString(c.contextHex)
		if err != nil {
			return nil, fmt.Errorf("--context-hex: %w", err)
		}
		return b, nil
	case c.contextText != "":
		return []byte(c.contextText), nil
	case len(c.cfg.Context) > 0:
		return c.cfg.Context, nil
	default:
		return nil, errors.New("application context required (--context, --context-hex or config)")
	}
}

// password returns the password verbatim. With --password-stdin it is the
// first stdin line without its line terminator.
func (c *cli) password() (string, error) {
	if !c.passwordStdin {
		pw := os.Getenv(passwordEnv)
		if pw == "" {
			return "", fmt.Errorf("password required (--password-stdin or $%s)", passwordEnv)
		}
		return pw, nil
	}
	line, err := c.stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = trimLineEnding(line)
	if line == "" {
		return "", errors.New("password required: stdin line is empty")
	}
	return line, nil
}

type credentials struct {
	appContext []byte
	email      string
	password   string
}

func (c *cli) credentials() (credentials, error) {
	appCtx, err := c.appContext()
	if err != nil {
		return credentials{}, err
	}
	if c.email == "" {
		return credentials{}, errors.New("email required (--email or $CREDKEYS_EMAIL)")
	}
	pw, err := c.password()
	if err != nil {
		return credentials{}, err
	}
	return credentials{appContext: appCtx, email: c.email, password: pw}, nil
}

func (c *cli) manager(cmd *cobra.Command) (*keymanager.Manager, error) {
	cred, err := c.credentials()
	if err != nil {
		return nil, err
	}
	return c.deriver.NewManager(cmd.Context(), cred.appContext, cred.email, cred.password, keymanager.WithLogger(c.logger))
}

func versionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "credkeys version=%s commit=%s build_date=%s\n", info.Version, info.Commit, info.BuildDate)
			return err
		},
	}
}
