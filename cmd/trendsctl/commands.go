package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

func (c *cli) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), queryTimeout)
}

func (c *cli) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Mean interest of every category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			means, err := c.eng.Agg.CategoryMeans(ctx, c.timeframe)
			if err != nil {
				return err
			}
			return c.print(means)
		},
	}
}

func (c *cli) weightsCmd() *cobra.Command {
	var (
		detailed bool
		category string
	)
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Keyword weights (category proxy by default)",
		Long: `Without --detailed every keyword inherits its category's mean interest,
floored at 1. With --detailed each keyword is queried on its own, five per
call, and floored at 0.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if category != "" && !detailed {
				return errors.New("--category requires --detailed")
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			if detailed {
				w, err := c.eng.Agg.DetailedKeywordWeights(ctx, c.timeframe, category)
				if err != nil {
					return err
				}
				return c.print(w)
			}
			w, err := c.eng.Agg.KeywordWeights(ctx, c.timeframe)
			if err != nil {
				return err
			}
			return c.print(w)
		},
	}
	cmd.Flags().BoolVar(&detailed, "detailed", false, "query every keyword individually")
	cmd.Flags().StringVarP(&category, "category", "c", "", "restrict --detailed to one category")
	return cmd
}

func (c *cli) hourlyCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "hourly KEYWORD...",
		Short: "Mean interest per hour of day",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			res, err := c.eng.Agg.HourlyAnalysis(ctx, args, days)
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "look-back window in days")
	return cmd
}

func (c *cli) weeklyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weekly KEYWORD...",
		Short: "Mean interest per weekday (0=Monday)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			res, err := c.eng.Agg.WeeklyAnalysis(ctx, args)
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}
}

func (c *cli) topCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Highest weighted keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			top, err := c.eng.Agg.TopKeywords(ctx, n, c.timeframe)
			if err != nil {
				return err
			}
			return c.print(top)
		},
	}
	cmd.Flags().IntVarP(&n, "num", "n", 20, "number of keywords")
	return cmd
}

func (c *cli) relatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "related KEYWORD",
		Short: "Top and rising related queries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			rel, err := c.eng.Agg.RelatedQueries(ctx, args[0])
			if err != nil {
				return err
			}
			return c.print(rel)
		},
	}
}
