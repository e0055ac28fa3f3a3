package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/kvstore/internal/config"
	"github.com/unkn0wn-root/kvstore/internal/logging"
)

// cli holds what the persistent pre-run resolved for the subcommands.
type cli struct {
	configPath string
	envFile    string
	url        string
	logLevel   string

	cfg  *config.Config
	logs *logging.Loggers
}

func RootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "kvstore",
		Short:         "Key-value storage over MongoDB, Redis and local stores",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.logs != nil {
				_ = c.logs.Sync()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading KVSTORE_* variables")
	pf.StringVar(&c.url, "url", "", "backend URL, overrides store.url")
	pf.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		serveCmd(c),
		getCmd(c),
		setCmd(c),
		delCmd(c),
		expireCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", c.envFile, err)
		}
	}

	overrides := map[string]any{}
	if c.url != "" {
		overrides["store.url"] = c.url
	}
	if c.logLevel != "" {
		overrides["log.level"] = c.logLevel
	}
	cfg, err := config.Load(c.configPath, overrides)
	if err != nil {
		return err
	}
	logs, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	c.cfg, c.logs = cfg, logs
	return nil
}
