package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/trends-weights/internal/app"
	"github.com/mohammed-shakir/trends-weights/internal/core/config"
	"github.com/mohammed-shakir/trends-weights/internal/logger"
)

// cli carries state shared by every subcommand.
type cli struct {
	out       io.Writer
	cfg       config.Config
	timeframe string
	verbose   bool
	logger    *slog.Logger
	eng       *app.Engine
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out, cfg: config.FromEnv()}

	root := &cobra.Command{
		Use:   "trendsctl",
		Short: "Query search-interest weights from the command line",
		Long: `trendsctl runs one engine query against the trends proxy and prints
the result as JSON. Results are cached for the life of the process, or in
Redis when CACHE_BACKEND=redis.

Example usage:
  trendsctl categories                 # Mean interest per category
  trendsctl weights                    # Proxy weights for every keyword
  trendsctl weights --detailed -c 암보험 # Exact weights for one category
  trendsctl hourly 암보험 실손보험 --days 7
  trendsctl top -n 10`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.eng == nil {
				return nil
			}
			return c.eng.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfg.KeywordsFile, "keywords-file", c.cfg.KeywordsFile, "taxonomy YAML (default: embedded insurance taxonomy)")
	pf.StringVar(&c.cfg.TrendsURL, "trends-url", c.cfg.TrendsURL, "base URL of the trends proxy")
	pf.DurationVar(&c.cfg.FetchDelay, "delay", c.cfg.FetchDelay, "pause before every external call")
	pf.StringVar(&c.timeframe, "timeframe", "today 3-m", "query timeframe")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		c.categoriesCmd(),
		c.weightsCmd(),
		c.hourlyCmd(),
		c.weeklyCmd(),
		c.topCmd(),
		c.relatedCmd(),
	)
	return root
}

func (c *cli) init() error {
	level := c.cfg.LogLevel
	if c.verbose {
		level = "debug"
	}
	zl := logger.Build(logger.Config{
		Level:     level,
		Console:   true,
		Service:   "trends-weights",
		Component: "cli",
	}, os.Stderr)
	c.logger = logger.NewSlog(&zl)

	if c.cfg.FetchDelay < 0 {
		c.cfg.FetchDelay = 0
	}
	eng, err := app.Build(c.cfg, c.logger, nil)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	c.eng = eng
	c.logger.Debug("engine ready", "trends_url", c.cfg.TrendsURL, "delay", c.cfg.FetchDelay.String())
	return nil
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// queryTimeout bounds one CLI invocation; a full detailed run pays one
// delay per batch.
const queryTimeout = 30 * time.Minute
