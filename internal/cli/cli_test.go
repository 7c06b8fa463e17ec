package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/dsa-tracker/internal/api"
	"github.com/terra-clan/dsa-tracker/internal/catalog"
	"github.com/terra-clan/dsa-tracker/internal/config"
	"github.com/terra-clan/dsa-tracker/internal/lock"
	"github.com/terra-clan/dsa-tracker/internal/models"
	"github.com/terra-clan/dsa-tracker/internal/planner"
	"github.com/terra-clan/dsa-tracker/internal/progress"
	"github.com/terra-clan/dsa-tracker/internal/storage"
	"github.com/terra-clan/dsa-tracker/pkg/client"
)

const apiKey = "dsa_cli_test_key"

func newTestServer(t *testing.T) string {
	t.Helper()

	repo := storage.NewMemoryRepository()
	require.NoError(t, repo.CreateUser(context.Background(), &models.User{
		ID: "u1", Name: "Ada", ApiKey: apiKey, IsActive: true,
		Notifications: models.NotificationSettings{Enabled: true, ReminderLeadTime: 60, Channel: models.ChannelBrowser},
	}))

	bank := catalog.NewLoader()
	bank.Add(&models.Problem{
		ID: "climbing-stairs", Title: "Climbing Stairs", Platform: "leetcode",
		Difficulty: models.DifficultyEasy, Topics: []models.Topic{models.TopicDynamicProgramming},
	})

	srv := api.NewServer(config.ServerConfig{}, api.Dependencies{
		Repo:    repo,
		Tracker: progress.NewTracker(repo, lock.NewLocalLocker(), bank),
		Planner: planner.NewService(repo),
		Catalog: bank,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts.URL
}

func run(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", server, "--api-key", apiKey}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSolveAndProgress(t *testing.T) {
	server := newTestServer(t)

	out, err := run(t, server, "solve", "climbing-stairs", "--minutes", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged Climbing Stairs (easy)")
	assert.Contains(t, out, "Rating 1210")

	_, err = run(t, server, "solve", "climbing-stairs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already solved")

	out, err = run(t, server, "solve", "lc-9999", "-d", "hard", "-t", "graphs,Bit Manipulation", "--title", "Custom")
	require.NoError(t, err)
	assert.Contains(t, out, "Rating 1240")

	out, err = run(t, server, "progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Total:        2")
	assert.Contains(t, out, "Graphs")

	out, err = run(t, server, "solved", "--difficulty", "hard")
	require.NoError(t, err)
	assert.Contains(t, out, "Custom")
	assert.NotContains(t, out, "Climbing Stairs")

	_, err = run(t, server, "recommend")
	require.NoError(t, err)

	out, err = run(t, server, "goals", "--daily", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "4 per day")
}

func TestTaskCommands(t *testing.T) {
	server := newTestServer(t)

	out, err := run(t, server, "tasks", "add", "Review heaps", "--in", "90m", "-c", "revision")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 'Review heaps'")

	out, err = run(t, server, "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "Review heaps")
	assert.Contains(t, out, "revision")

	c := client.NewClient(server, apiKey)
	tasks, err := c.ListTasks(context.Background(), client.TaskOptions{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	out, err = run(t, server, "tasks", "done", tasks[0].ID[:6], "-m", "25")
	require.NoError(t, err)
	assert.Contains(t, out, "Completed 'Review heaps' (25 min total)")

	out, err = run(t, server, "tasks")
	require.NoError(t, err)
	assert.NotContains(t, out, "Review heaps")

	_, err = run(t, server, "tasks", "done", "zzzz")
	assert.Error(t, err)
}

func TestRemindersCommand(t *testing.T) {
	server := newTestServer(t)

	out, err := run(t, server, "reminders")
	require.NoError(t, err)
	assert.Contains(t, out, "Reminders on: 60 minutes before the deadline via browser")

	out, err = run(t, server, "reminders", "--lead", "30", "--off")
	require.NoError(t, err)
	assert.Contains(t, out, "Reminders off: 30 minutes")

	_, err = run(t, server, "reminders", "--lead", "45")
	assert.Error(t, err)

	_, err = run(t, server, "reminders", "--on", "--off")
	assert.Error(t, err)
}

func TestMissingAPIKey(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--api-key", "", "progress"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key")
}
