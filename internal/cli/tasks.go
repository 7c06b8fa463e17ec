package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/dsa-tracker/internal/models"
	"github.com/terra-clan/dsa-tracker/pkg/client"
)

func newTasksCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Manage planner tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			listOpts := client.TaskOptions{}
			if !all {
				pending := false
				listOpts.Completed = &pending
			}
			tasks, err := c.ListTasks(ctx, listOpts)
			if err != nil {
				return err
			}

			now := time.Now()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTask\tCategory\tPriority\tDeadline\tStatus")
			fmt.Fprintln(w, "--\t----\t--------\t--------\t--------\t------")
			for _, t := range tasks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					shortID(t.ID), t.Title, t.Category, t.Priority, formatDeadline(t.Deadline), taskStatus(t, now))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include completed tasks")

	cmd.AddCommand(newTaskAddCmd(opts), newTaskDoneCmd(opts), newTaskReopenCmd(opts), newTaskRemoveCmd(opts))
	return cmd
}

func newTaskAddCmd(opts *rootOptions) *cobra.Command {
	var (
		category string
		priority string
		due      string
		in       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.CreateTaskRequest{
				Title:    args[0],
				Category: models.TaskCategory(category),
				Priority: models.TaskPriority(priority),
			}
			switch {
			case due != "":
				deadline, err := parseDeadline(due)
				if err != nil {
					return err
				}
				req.Deadline = &deadline
			case in > 0:
				deadline := time.Now().Add(in)
				req.Deadline = &deadline
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			task, err := c.CreateTask(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Added '%s' [%s] due %s\n", task.Title, shortID(task.ID), formatDeadline(task.Deadline))
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "study, practice, revision, contest, project or other")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", `deadline, RFC 3339 or "2006-01-02 15:04" local time`)
	cmd.Flags().DurationVar(&in, "in", 0, "deadline relative to now (e.g. 90m)")
	return cmd
}

func newTaskDoneCmd(opts *rootOptions) *cobra.Command {
	var minutes int

	cmd := &cobra.Command{
		Use:   "done [id]",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			id, err := resolveTaskID(ctx, c, args[0])
			if err != nil {
				return err
			}
			task, err := c.CompleteTask(ctx, id, minutes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Completed '%s' (%d min total)\n", task.Title, task.TimeSpent)
			return nil
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "minutes spent")
	return cmd
}

func newTaskReopenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen [id]",
		Short: "Mark a completed task pending again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			id, err := resolveTaskID(ctx, c, args[0])
			if err != nil {
				return err
			}
			task, err := c.IncompleteTask(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "↩️  Reopened '%s'\n", task.Title)
			return nil
		},
	}
}

func newTaskRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			id, err := resolveTaskID(ctx, c, args[0])
			if err != nil {
				return err
			}
			if err := c.DeleteTask(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "🗑  Deleted", shortID(id))
			return nil
		},
	}
}

func newRemindersCmd(opts *rootOptions) *cobra.Command {
	var (
		lead    int
		channel string
		on, off bool
	)

	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Show or change deadline reminder settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if on && off {
				return fmt.Errorf("--on and --off are mutually exclusive")
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			var update client.NotificationSettingsUpdate
			changed := false
			if on || off {
				enabled := on
				update.Enabled = &enabled
				changed = true
			}
			if cmd.Flags().Changed("lead") {
				update.ReminderLeadTime = &lead
				changed = true
			}
			if channel != "" {
				ch := models.NotificationChannel(channel)
				update.Channel = &ch
				changed = true
			}

			var settings *models.NotificationSettings
			if changed {
				settings, err = c.UpdateNotificationSettings(ctx, update)
			} else {
				settings, err = c.NotificationSettings(ctx)
			}
			if err != nil {
				return err
			}

			state := "off"
			if settings.Enabled {
				state = "on"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🔔 Reminders %s: %d minutes before the deadline via %s\n",
				state, settings.ReminderLeadTime, settings.Channel)
			return nil
		},
	}

	cmd.Flags().IntVar(&lead, "lead", 0, "lead time in minutes (30, 60, 120 or 1440)")
	cmd.Flags().StringVar(&channel, "channel", "", "browser, email or both")
	cmd.Flags().BoolVar(&on, "on", false, "enable reminders")
	cmd.Flags().BoolVar(&off, "off", false, "disable reminders")
	return cmd
}

// resolveTaskID expands a short id prefix from the task list
func resolveTaskID(ctx context.Context, c *client.Client, prefix string) (string, error) {
	if len(prefix) >= 32 {
		return prefix, nil
	}

	tasks, err := c.ListTasks(ctx, client.TaskOptions{Limit: 500})
	if err != nil {
		return "", err
	}

	var match string
	for _, t := range tasks {
		if len(t.ID) >= len(prefix) && t.ID[:len(prefix)] == prefix {
			if match != "" {
				return "", fmt.Errorf("task id %q is ambiguous", prefix)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no task matches %q", prefix)
	}
	return match, nil
}

func parseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline %q: use RFC 3339 or \"2006-01-02 15:04\"", s)
	}
	return t, nil
}

func formatDeadline(d *time.Time) string {
	if d == nil {
		return "-"
	}
	return d.Local().Format("Mon Jan 2 15:04")
}

func taskStatus(t *models.Task, now time.Time) string {
	switch {
	case t.Completed:
		return "done"
	case t.IsOverdue(now):
		return "overdue"
	case t.Deadline != nil:
		left := t.Deadline.Sub(now).Round(time.Minute)
		return "in " + left.String()
	}
	return "pending"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
