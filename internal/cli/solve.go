package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/dsa-tracker/internal/models"
	"github.com/terra-clan/dsa-tracker/pkg/client"
)

func newSolveCmd(opts *rootOptions) *cobra.Command {
	var (
		difficulty string
		topics     string
		title      string
		url        string
		language   string
		notes      string
		minutes    int
		solvedAt   string
	)

	cmd := &cobra.Command{
		Use:   "solve [problem-id]",
		Short: "Log a solved problem",
		Long: `Log a solved problem. Problems from the bank only need their id;
anything else needs --difficulty and usually --topics.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			req := models.SolveRequest{
				ProblemID:  args[0],
				Title:      title,
				URL:        url,
				Difficulty: difficulty,
				Topics:     splitList(topics),
				Solution: models.SolutionMeta{
					Language:         language,
					Notes:            notes,
					TimeTakenMinutes: minutes,
				},
			}
			if solvedAt != "" {
				at, err := time.Parse(time.RFC3339, solvedAt)
				if err != nil {
					return fmt.Errorf("--at must be an RFC 3339 timestamp: %w", err)
				}
				req.SolvedAt = &at
			}

			resp, err := c.RecordSolved(ctx, req)
			if client.IsConflict(err) {
				return errors.New("already solved, each problem counts once")
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := resp.Progress
			fmt.Fprintf(out, "✅ Logged %s (%s)\n", displayTitle(resp.Solved), resp.Solved.Difficulty)
			if resp.Solved.IsTodaysProblem {
				fmt.Fprintln(out, "⭐ Today's problem!")
			}
			fmt.Fprintf(out, "🔥 Streak %d (best %d)   📈 Rating %d (best %d)   Σ %d solved\n",
				p.CurrentStreak, p.LongestStreak, p.CurrentRating, p.HighestRating, p.TotalSolved)
			for _, r := range resp.Recommendations {
				fmt.Fprintf(out, "💡 %s\n", r.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&difficulty, "difficulty", "d", "", "easy, medium or hard")
	cmd.Flags().StringVarP(&topics, "topics", "t", "", "comma-separated topics (e.g. arrays,dp)")
	cmd.Flags().StringVar(&title, "title", "", "problem title")
	cmd.Flags().StringVarP(&url, "url", "u", "", "problem URL")
	cmd.Flags().StringVarP(&language, "lang", "l", "", "solution language")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "notes about the solution")
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "minutes taken")
	cmd.Flags().StringVar(&solvedAt, "at", "", "when it was solved (RFC 3339, default now)")
	return cmd
}

func newSolvedCmd(opts *rootOptions) *cobra.Command {
	var (
		difficulty string
		topic      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "solved",
		Short: "List solved problems, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			list, err := c.ListSolved(ctx, client.SolvedOptions{Difficulty: difficulty, Topic: topic, Limit: limit})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Solved\tProblem\tDiff\tTopics")
			fmt.Fprintln(w, "------\t-------\t----\t------")
			for _, sp := range list.Solved {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					sp.SolvedAt.Local().Format("2006-01-02"), displayTitle(sp), sp.Difficulty, joinTopics(sp.Topics))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&difficulty, "difficulty", "d", "", "filter by difficulty")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "filter by topic")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries")
	return cmd
}

func displayTitle(sp *models.SolvedProblem) string {
	if sp.Title != "" {
		return sp.Title
	}
	return sp.ProblemID
}

func joinTopics(topics []models.Topic) string {
	names := make([]string, 0, len(topics))
	for _, t := range topics {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
