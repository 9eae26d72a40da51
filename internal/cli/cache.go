package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depclean/pkg/cache"
	"github.com/matzehuels/depclean/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the analysis cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [path]",
		Short: "Drop every cached file analysis and manifest parse",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := rootArg(args)
			cfg, err := c.loadConfig(cmd, root, nil)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cmd.Context(), cfg, root, nil)
			if err != nil {
				return err
			}
			defer runner.Cache.Close()

			if err := runner.ClearCache(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			c.ui().success("Cleared %s cache", backendName(cfg))
			if loc := cacheLocation(cfg); loc != "" {
				c.ui().detail("Location: %s", loc)
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path [path]",
		Short: "Print where the analysis cache lives",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, rootArg(args), nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cacheLocation(cfg))
			return nil
		},
	}
}

func backendName(cfg *config.Config) string {
	if cfg.Cache.Backend == "" {
		return cache.BackendFile
	}
	return cfg.Cache.Backend
}

// cacheLocation describes where entries are stored: a directory for the
// file backend, the server address for redis.
func cacheLocation(cfg *config.Config) string {
	switch backendName(cfg) {
	case cache.BackendFile:
		if cfg.Cache.Dir != "" {
			return cfg.Cache.Dir
		}
		return cache.DefaultDir()
	case cache.BackendRedis:
		return "redis://" + cfg.Cache.RedisAddr
	}
	return ""
}
