package apiclient

import (
	"encoding/json"
	"net/url"
	"time"
)

// envelope is the response wrapper used by every FocusForge endpoint.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// PublicProfile is the part of a user shown on the leaderboard.
type PublicProfile struct {
	Alias             string `json:"alias,omitempty"`
	ShowOnLeaderboard bool   `json:"showOnLeaderboard"`
}

// User is the authoritative user profile returned by the API.
type User struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	PublicProfile PublicProfile `json:"publicProfile"`
}

// UnmarshalJSON accepts both "id" and the "_id" emitted by older servers.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		LegacyID string `json:"_id"`
	}{alias: (*alias)(u)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = aux.LegacyID
	}
	return nil
}

// DisplayName returns the public alias when set, the name otherwise.
func (u User) DisplayName() string {
	if u.PublicProfile.Alias != "" {
		return u.PublicProfile.Alias
	}
	return u.Name
}

// LeaderboardVisible reports whether the user opted into the public leaderboard.
func (u User) LeaderboardVisible() bool {
	return u.PublicProfile.ShowOnLeaderboard
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Password        string        `json:"password"`
	ConfirmPassword string        `json:"-"`
	PublicProfile   PublicProfile `json:"publicProfile"`
}

// AuthResult is the payload of a successful login or registration.
type AuthResult struct {
	Credential string `json:"token"`
	User       User   `json:"user"`
}

// Duration is a task's planned duration.
type Duration struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// Task is a tracked habit.
type Task struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	TaskType    string    `json:"taskType"`
	PlannedTime int       `json:"plannedTime"`
	Duration    Duration  `json:"duration"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TaskInput is the body of POST /tasks.
type TaskInput struct {
	Title       string   `json:"title"`
	TaskType    string   `json:"taskType"`
	PlannedTime int      `json:"plannedTime"`
	Duration    Duration `json:"duration"`
}

// TaskFilter narrows GET /tasks.
type TaskFilter struct {
	Active *bool
}

// Streak is the completion streak of one task.
type Streak struct {
	ID                string     `json:"_id"`
	Task              Task       `json:"taskId"`
	Current           int        `json:"current"`
	Longest           int        `json:"longest"`
	LastCompletedDate *time.Time `json:"lastCompletedDate,omitempty"`
}

// Stats is the dashboard summary of GET /reports/stats.
type Stats struct {
	ActiveTasks       int     `json:"activeTasks"`
	CompletedLogs     int     `json:"completedLogs"`
	ConsistencyScore  float64 `json:"consistencyScore"`
	RecentConsistency float64 `json:"recentConsistency"`
}

// HeatmapDay is one cell of the completion heatmap.
type HeatmapDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	Alias         string `json:"alias"`
	CurrentStreak int    `json:"currentStreak"`
	Rank          int    `json:"rank"`
}

// TaskLog is one recorded completion or recovery of a task.
type TaskLog struct {
	ID     string `json:"_id"`
	TaskID string `json:"taskId"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// LogFilter narrows TaskLogs. Empty fields are not sent.
type LogFilter struct {
	TaskID string
	Range  DateRange
}

// DateRange bounds report queries by YYYY-MM-DD dates. An empty bound
// leaves the server default in place.
type DateRange struct {
	StartDate string
	EndDate   string
}

func (r DateRange) apply(q url.Values) {
	if r.StartDate != "" {
		q.Set("startDate", r.StartDate)
	}
	if r.EndDate != "" {
		q.Set("endDate", r.EndDate)
	}
}

// MonthlyReport summarises one calendar month.
type MonthlyReport struct {
	Year      int          `json:"year"`
	Month     int          `json:"month"`
	Completed int          `json:"completed"`
	Days      []HeatmapDay `json:"days"`
}
