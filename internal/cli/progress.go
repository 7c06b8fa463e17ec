package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

func newProgressCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show streak, rating and counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			stats, err := c.Progress(ctx)
			if err != nil {
				return err
			}
			p := stats.Progress

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🔥 Streak:       %d days (longest %d)\n", p.CurrentStreak, p.LongestStreak)
			fmt.Fprintf(out, "⭐ Daily streak: %d days (longest %d)\n", p.TodaysProblemStreak, p.LongestTodaysProblemStreak)
			fmt.Fprintf(out, "📈 Rating:       %d (highest %d)\n", p.CurrentRating, p.HighestRating)
			fmt.Fprintf(out, "📅 This week:    %d / %d\n", p.SolvedThisWeek, p.WeeklyGoal)
			fmt.Fprintf(out, "🗓  This month:   %d\n", p.SolvedThisMonth)
			fmt.Fprintf(out, "Σ  Total:        %d\n", p.TotalSolved)
			fmt.Fprintf(out, "   Easy %d · Medium %d · Hard %d\n",
				p.DifficultyProgress[models.DifficultyEasy],
				p.DifficultyProgress[models.DifficultyMedium],
				p.DifficultyProgress[models.DifficultyHard])
			if stats.TodaysProblem != nil {
				fmt.Fprintf(out, "🎯 Today:        %s (%s) %s\n", stats.TodaysProblem.Title, stats.TodaysProblem.Difficulty, stats.TodaysProblem.URL)
			}

			if len(p.TopicProgress) > 0 {
				topics := make([]models.Topic, 0, len(p.TopicProgress))
				for t := range p.TopicProgress {
					topics = append(topics, t)
				}
				sort.Slice(topics, func(i, j int) bool {
					if p.TopicProgress[topics[i]] != p.TopicProgress[topics[j]] {
						return p.TopicProgress[topics[i]] > p.TopicProgress[topics[j]]
					}
					return topics[i] < topics[j]
				})

				fmt.Fprintln(out)
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "Topic\tSolved")
				fmt.Fprintln(w, "-----\t------")
				for _, t := range topics {
					fmt.Fprintf(w, "%s\t%d\n", t.DisplayName(), p.TopicProgress[t])
				}
				return w.Flush()
			}
			return nil
		},
	}
}

func newRecommendCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "recommend",
		Aliases: []string{"next"},
		Short:   "Show what to study next",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			recs, err := c.Recommendations(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "🎉 Nothing to suggest, keep going!")
				return nil
			}
			for _, r := range recs {
				marker := "•"
				if r.Priority == models.PriorityHigh {
					marker = "❗"
				}
				fmt.Fprintf(out, "%s %s\n   %s\n   → %s\n", marker, r.Title, r.Description, r.Action)
			}
			return nil
		},
	}
}

func newGoalsCmd(opts *rootOptions) *cobra.Command {
	var daily, weekly int

	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Set daily and weekly targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req models.GoalsRequest
			if cmd.Flags().Changed("daily") {
				req.DailyGoal = &daily
			}
			if cmd.Flags().Changed("weekly") {
				req.WeeklyGoal = &weekly
			}
			if req.DailyGoal == nil && req.WeeklyGoal == nil {
				return cmd.Help()
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			agg, err := c.UpdateGoals(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Goals: %d per day, %d per week\n", agg.DailyGoal, agg.WeeklyGoal)
			return nil
		},
	}

	cmd.Flags().IntVar(&daily, "daily", 0, "problems per day")
	cmd.Flags().IntVar(&weekly, "weekly", 0, "problems per week")
	return cmd
}

func newProblemsCmd(opts *rootOptions) *cobra.Command {
	var topic, difficulty string

	cmd := &cobra.Command{
		Use:   "problems",
		Short: "Browse the problem bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			problems, err := c.ListProblems(ctx, topic, difficulty)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tProblem\tDiff\tTopics")
			fmt.Fprintln(w, "--\t-------\t----\t------")
			for _, p := range problems {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Title, p.Difficulty, joinTopics(p.Topics))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "filter by topic")
	cmd.Flags().StringVarP(&difficulty, "difficulty", "d", "", "filter by difficulty")

	cmd.AddCommand(&cobra.Command{
		Use:   "today",
		Short: "Show today's problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			p, err := c.TodaysProblem(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🎯 %s (%s)\n   %s\n   dsatrack solve %s\n", p.Title, p.Difficulty, p.URL, p.ID)
			return nil
		},
	})
	return cmd
}
