// Command keyreply is a keyword-matching chat responder with paced replies.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/0xcro3dile/keyreply-go/internal/config"
)

// cli holds flag values and the state built before a command runs.
type cli struct {
	configPath string
	knowledge  string
	store      string
	addr       string
	pause      time.Duration
	watch      bool
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "keyreply",
		Short: "Keyword-matching chat responder",
		Long: `keyreply answers chat input from a knowledge base of keyword-scored responses.

Every entry scores its priority once per keyword found in the input; the best
positive score wins and ties go to the earlier entry. Nothing matching selects
the fallback entry. Responses are split on [BREAK] and delivered one segment
at a time.

Run without arguments to start the interactive chat.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, c)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", config.DefaultPath, "config file")
	flags.StringVarP(&c.knowledge, "knowledge", "k", "", "knowledge base file (.yaml, .yml, .json); default is the built-in set")
	flags.StringVar(&c.store, "store", "", "SQLite session store path; default keeps sessions in memory")
	flags.DurationVar(&c.pause, "pause", -1, "pause between reply segments (default from config)")
	flags.BoolVarP(&c.watch, "watch", "w", false, "reload the knowledge base when its file changes")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	serve := newServeCmd(c)
	serve.Flags().StringVar(&c.addr, "addr", "", "listen address (default from config)")

	root.AddCommand(newChatCmd(c), serve, newMatchCmd(c), newValidateCmd(c), newInitCmd(c))
	return root
}

// setup loads the config, applies flag overrides and builds the logger.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("knowledge") {
		cfg.Knowledge.Path = c.knowledge
	}
	if flags.Changed("store") {
		cfg.Session.StorePath = c.store
	}
	if flags.Changed("watch") {
		cfg.Knowledge.Watch = c.watch
	}
	if flags.Changed("pause") {
		cfg.Delivery.SegmentPause = c.pause
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = c.addr
	}
	if c.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	c.logger = logger
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	return config.Build()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
