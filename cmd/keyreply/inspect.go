package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/keyreply-go/internal/adapters/loader"
	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
	"github.com/0xcro3dile/keyreply-go/internal/domain/usecases"
)

func newMatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "match <text>",
		Short: "Show how every entry scores against text",
		Example: `  keyreply match "hello, what are your hours?"
  keyreply match -k kb.yaml thanks`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := loader.ForPath(c.cfg.Knowledge.Path)
			entries, err := source.Load(cmd.Context())
			if err != nil {
				return err
			}
			kb := entities.NewKnowledgeBase(source.Describe(), entries)

			text := strings.Join(args, " ")
			result := usecases.Match(text, kb)
			out := cmd.OutOrStdout()
			for _, s := range usecases.Rank(text, kb) {
				marker := " "
				if result.Matched && s.ID == result.Entry.ID {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-20s %d\n", marker, s.ID, s.Score)
			}

			entry, err := usecases.Resolve(result, kb, c.cfg.Knowledge.FallbackID)
			if err != nil {
				return err
			}
			if result.Matched {
				fmt.Fprintf(out, "-> %s (score %d)\n", entry.ID, result.Score)
			} else {
				fmt.Fprintf(out, "-> %s (fallback)\n", entry.ID)
			}
			return nil
		},
	}
}

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the knowledge base loads and has a fallback entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := loader.ForPath(c.cfg.Knowledge.Path)
			entries, err := source.Load(cmd.Context())
			if err != nil {
				return err
			}
			if err := entities.Validate(entries, c.cfg.Knowledge.FallbackID); err != nil {
				return fmt.Errorf("%s: %w", source.Describe(), err)
			}

			kb := entities.NewKnowledgeBase(source.Describe(), entries)
			if _, ok := kb.Lookup(c.cfg.Knowledge.FallbackID); !ok {
				return fmt.Errorf("%s: %w: no entry with id %q", source.Describe(), entities.ErrConfiguration, c.cfg.Knowledge.FallbackID)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries, fallback %s present\n",
				source.Describe(), kb.Len(), c.cfg.Knowledge.FallbackID)
			return nil
		},
	}
}

func newInitCmd(c *cli) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Example: `  keyreply init
  keyreply init -c ./keyreply.yaml -k kb.yaml --store data/sessions.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(c.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", c.configPath)
			}
			if err := c.cfg.Save(c.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", c.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
