package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Tasks lists the user's tasks.
func (c *Client) Tasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	q := url.Values{}
	if filter.Active != nil {
		q.Set("isActive", strconv.FormatBool(*filter.Active))
	}
	data, err := request[struct {
		Tasks []Task `json:"tasks"`
	}](ctx, c, http.MethodGet, "/tasks", q, nil)
	if err != nil {
		return nil, err
	}
	return data.Tasks, nil
}

// Task fetches a single task.
func (c *Client) Task(ctx context.Context, id string) (*Task, error) {
	data, err := request[struct {
		Task Task `json:"task"`
	}](ctx, c, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	return &data.Task, nil
}

// CreateTask creates a task and returns it as stored by the server.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (*Task, error) {
	data, err := request[struct {
		Task Task `json:"task"`
	}](ctx, c, http.MethodPost, "/tasks", nil, in)
	if err != nil {
		return nil, err
	}
	return &data.Task, nil
}

// UpdateTask replaces the editable fields of a task.
func (c *Client) UpdateTask(ctx context.Context, id string, in TaskInput) (*Task, error) {
	data, err := request[struct {
		Task Task `json:"task"`
	}](ctx, c, http.MethodPut, "/tasks/"+url.PathEscape(id), nil, in)
	if err != nil {
		return nil, err
	}
	return &data.Task, nil
}

// TaskLogs lists completion records.
func (c *Client) TaskLogs(ctx context.Context, filter LogFilter) ([]TaskLog, error) {
	q := url.Values{}
	if filter.TaskID != "" {
		q.Set("taskId", filter.TaskID)
	}
	filter.Range.apply(q)
	data, err := request[struct {
		Logs []TaskLog `json:"logs"`
	}](ctx, c, http.MethodGet, "/tasks/logs", q, nil)
	if err != nil {
		return nil, err
	}
	return data.Logs, nil
}

// CompleteTask marks today's occurrence of a task as done.
func (c *Client) CompleteTask(ctx context.Context, id string) error {
	_, err := request[struct{}](ctx, c, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/complete", nil, nil)
	return err
}

// RecoverTask uses a recovery on a missed day of a task.
func (c *Client) RecoverTask(ctx context.Context, id string) error {
	_, err := request[struct{}](ctx, c, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/recover", nil, nil)
	return err
}

// ArchiveTask deactivates a task.
func (c *Client) ArchiveTask(ctx context.Context, id string) error {
	_, err := request[struct{}](ctx, c, http.MethodPatch, "/tasks/"+url.PathEscape(id)+"/archive", nil, nil)
	return err
}

func (c *Client) Streaks(ctx context.Context) ([]Streak, error) {
	data, err := request[struct {
		Streaks []Streak `json:"streaks"`
	}](ctx, c, http.MethodGet, "/streaks", nil, nil)
	if err != nil {
		return nil, err
	}
	return data.Streaks, nil
}

// TaskStreak returns the streak of one task.
func (c *Client) TaskStreak(ctx context.Context, taskID string) (*Streak, error) {
	data, err := request[struct {
		Streak Streak `json:"streak"`
	}](ctx, c, http.MethodGet, "/streaks/task/"+url.PathEscape(taskID), nil, nil)
	if err != nil {
		return nil, err
	}
	return &data.Streak, nil
}

// UpdateStreak asks the server to recompute the streak of a task.
func (c *Client) UpdateStreak(ctx context.Context, taskID string) (*Streak, error) {
	data, err := request[struct {
		Streak Streak `json:"streak"`
	}](ctx, c, http.MethodPost, "/streaks/update", nil, map[string]string{"taskId": taskID})
	if err != nil {
		return nil, err
	}
	return &data.Streak, nil
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	data, err := request[struct {
		Stats Stats `json:"stats"`
	}](ctx, c, http.MethodGet, "/reports/stats", nil, nil)
	if err != nil {
		return nil, err
	}
	return &data.Stats, nil
}

// Heatmap returns per-day completion counts within r.
func (c *Client) Heatmap(ctx context.Context, r DateRange) ([]HeatmapDay, error) {
	q := url.Values{}
	r.apply(q)
	data, err := request[struct {
		HeatmapData []HeatmapDay `json:"heatmapData"`
	}](ctx, c, http.MethodGet, "/reports/heatmap", q, nil)
	if err != nil {
		return nil, err
	}
	return data.HeatmapData, nil
}

// MonthlyReport returns the completion summary for one month.
func (c *Client) MonthlyReport(ctx context.Context, year int, month time.Month) (*MonthlyReport, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(int(month)))
	data, err := request[struct {
		Report MonthlyReport `json:"report"`
	}](ctx, c, http.MethodGet, "/reports/monthly", q, nil)
	if err != nil {
		return nil, err
	}
	return &data.Report, nil
}

// Leaderboard returns the public leaderboard.
func (c *Client) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	data, err := request[struct {
		Leaderboard []LeaderboardEntry `json:"leaderboard"`
	}](ctx, c, http.MethodGet, "/leaderboard/public", nil, nil)
	if err != nil {
		return nil, err
	}
	return data.Leaderboard, nil
}

// MyPosition returns the signed-in user's leaderboard row. Rank is zero
// when the user is hidden from the leaderboard.
func (c *Client) MyPosition(ctx context.Context) (*LeaderboardEntry, error) {
	data, err := request[struct {
		Position LeaderboardEntry `json:"position"`
	}](ctx, c, http.MethodGet, "/leaderboard/my-position", nil, nil)
	if err != nil {
		return nil, err
	}
	return &data.Position, nil
}
