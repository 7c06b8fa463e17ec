// Package cli implements dsatrack, the command line client for dsa-tracker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/dsa-tracker/pkg/client"
)

type rootOptions struct {
	server  string
	apiKey  string
	timeout time.Duration
}

// NewRootCmd builds the dsatrack command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "dsatrack",
		Short: "Track DSA practice from the terminal",
		Long: `dsatrack logs solved problems, shows streaks, rating and study
recommendations, and manages planner tasks on a dsa-tracker server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOr("DSATRACK_SERVER", "http://localhost:8080"), "dsa-tracker server URL")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("DSATRACK_API_KEY"), "API key (or DSATRACK_API_KEY)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(
		newSolveCmd(opts),
		newSolvedCmd(opts),
		newProgressCmd(opts),
		newRecommendCmd(opts),
		newGoalsCmd(opts),
		newTasksCmd(opts),
		newProblemsCmd(opts),
		newRemindersCmd(opts),
	)
	return root
}

// Execute runs dsatrack with os.Args
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func (o *rootOptions) client() (*client.Client, error) {
	if o.apiKey == "" {
		return nil, errors.New("no API key: pass --api-key or set DSATRACK_API_KEY")
	}
	return client.NewClient(o.server, o.apiKey, client.WithTimeout(o.timeout)), nil
}

func (o *rootOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, o.timeout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
