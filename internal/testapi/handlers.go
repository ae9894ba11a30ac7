package testapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/focusforge/pkg/apiclient"
)

func contextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

type registerBody struct {
	Name          string                  `json:"name"`
	Email         string                  `json:"email"`
	Password      string                  `json:"password"`
	PublicProfile apiclient.PublicProfile `json:"publicProfile"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Name == "" || body.Email == "" || len(body.Password) < 6 {
		writeError(w, http.StatusBadRequest, "Please provide name, email and a password of at least 6 characters")
		return
	}

	u, err := s.createAccount(body.Name, body.Email, body.Password, body.PublicProfile)
	if errors.Is(err, errDuplicateEmail) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"token": s.Issue(u.ID, s.ttl), "user": u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body apiclient.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[apiclient.NormalizeEmail(body.Email)]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(body.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": s.Issue(acc.user.ID, s.ttl), "user": acc.user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.userByID(userIDFrom(r.Context()))
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())
	active := r.URL.Query().Get("isActive")

	s.mu.Lock()
	out := make([]apiclient.Task, 0, len(s.tasks[uid]))
	for _, t := range s.tasks[uid] {
		if active == "true" && !t.IsActive || active == "false" && t.IsActive {
			continue
		}
		out = append(out, t)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.findTask(userIDFrom(r.Context()), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": t})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in apiclient.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
		writeError(w, http.StatusBadRequest, "Task title is required")
		return
	}

	t := apiclient.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		TaskType:    in.TaskType,
		PlannedTime: in.PlannedTime,
		Duration:    in.Duration,
		IsActive:    true,
		CreatedAt:   s.now().UTC().Truncate(time.Second),
	}

	uid := userIDFrom(r.Context())
	s.mu.Lock()
	s.tasks[uid] = append(s.tasks[uid], t)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"task": t})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var in apiclient.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
		writeError(w, http.StatusBadRequest, "Task title is required")
		return
	}
	uid, id := userIDFrom(r.Context()), chi.URLParam(r, "id")

	s.mu.Lock()
	var (
		updated apiclient.Task
		found   bool
	)
	for i := range s.tasks[uid] {
		t := &s.tasks[uid][i]
		if t.ID == id {
			t.Title, t.TaskType, t.PlannedTime, t.Duration = in.Title, in.TaskType, in.PlannedTime, in.Duration
			updated, found = *t, true
		}
	}
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": updated})
}

// handleLog records a completion or recovery of a task for today.
func (s *Server) handleLog(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, id := userIDFrom(r.Context()), chi.URLParam(r, "id")
		if _, ok := s.findTask(uid, id); !ok {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}

		entry := apiclient.TaskLog{
			ID:     uuid.NewString(),
			TaskID: id,
			Date:   s.now().UTC().Format(time.DateOnly),
			Status: status,
		}
		s.mu.Lock()
		s.logs[uid] = append(s.logs[uid], entry)
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]any{"log": entry})
	}
}

func (s *Server) handleTaskLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	taskID, from, to := q.Get("taskId"), q.Get("startDate"), q.Get("endDate")

	logs := make([]apiclient.TaskLog, 0)
	for _, l := range s.userLogs(userIDFrom(r.Context())) {
		if taskID != "" && l.TaskID != taskID {
			continue
		}
		if inRange(l.Date, from, to) {
			logs = append(logs, l)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	uid, id := userIDFrom(r.Context()), chi.URLParam(r, "id")

	s.mu.Lock()
	found := false
	for i := range s.tasks[uid] {
		if s.tasks[uid][i].ID == id {
			s.tasks[uid][i].IsActive = false
			found = true
		}
	}
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleStreaks(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())

	s.mu.Lock()
	streaks := make([]apiclient.Streak, 0, len(s.tasks[uid]))
	for _, t := range s.tasks[uid] {
		streaks = append(streaks, apiclient.Streak{ID: "streak-" + t.ID, Task: t})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"streaks": streaks})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())

	s.mu.Lock()
	stats := apiclient.Stats{}
	for _, t := range s.tasks[uid] {
		if t.IsActive {
			stats.ActiveTasks++
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (s *Server) handleTaskStreak(w http.ResponseWriter, r *http.Request) {
	s.writeStreak(w, userIDFrom(r.Context()), chi.URLParam(r, "id"))
}

func (s *Server) handleUpdateStreak(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TaskID string `json:"taskId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TaskID == "" {
		writeError(w, http.StatusBadRequest, "Task ID is required")
		return
	}
	s.writeStreak(w, userIDFrom(r.Context()), body.TaskID)
}

// writeStreak counts every logged day of the task as part of the streak.
func (s *Server) writeStreak(w http.ResponseWriter, uid, taskID string) {
	t, ok := s.findTask(uid, taskID)
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	days := map[string]bool{}
	for _, l := range s.userLogs(uid) {
		if l.TaskID == taskID {
			days[l.Date] = true
		}
	}
	streak := apiclient.Streak{ID: "streak-" + t.ID, Task: t, Current: len(days), Longest: len(days)}
	writeJSON(w, http.StatusOK, map[string]any{"streak": streak})
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := s.countByDay(userIDFrom(r.Context()), func(date string) bool {
		return inRange(date, q.Get("startDate"), q.Get("endDate"))
	})
	if len(days) == 0 {
		days = []apiclient.HeatmapDay{{Date: s.now().UTC().Format(time.DateOnly)}}
	}
	writeJSON(w, http.StatusOK, map[string]any{"heatmapData": days})
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	year, errY := strconv.Atoi(r.URL.Query().Get("year"))
	month, errM := strconv.Atoi(r.URL.Query().Get("month"))
	if errY != nil || errM != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Valid year and month are required")
		return
	}

	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	days := s.countByDay(userIDFrom(r.Context()), func(date string) bool {
		return strings.HasPrefix(date, prefix)
	})
	report := apiclient.MonthlyReport{Year: year, Month: month, Days: days}
	for _, d := range days {
		report.Completed += d.Count
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	entries := make([]apiclient.LeaderboardEntry, 0, len(s.accounts))
	for _, a := range s.accounts {
		if a.user.LeaderboardVisible() {
			entries = append(entries, apiclient.LeaderboardEntry{Alias: a.user.DisplayName(), Rank: len(entries) + 1})
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

func (s *Server) handleMyPosition(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())

	s.mu.Lock()
	var (
		entry apiclient.LeaderboardEntry
		rank  int
	)
	for _, a := range s.accounts {
		if a.user.LeaderboardVisible() {
			rank++
		}
		if a.user.ID == uid {
			entry.Alias = a.user.DisplayName()
			if a.user.LeaderboardVisible() {
				entry.Rank = rank
			}
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"position": entry})
}

func (s *Server) userLogs(uid string) []apiclient.TaskLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.logs[uid])
}

func (s *Server) countByDay(uid string, keep func(date string) bool) []apiclient.HeatmapDay {
	counts := map[string]int{}
	for _, l := range s.userLogs(uid) {
		if keep(l.Date) {
			counts[l.Date]++
		}
	}
	days := make([]apiclient.HeatmapDay, 0, len(counts))
	for date, n := range counts {
		days = append(days, apiclient.HeatmapDay{Date: date, Count: n})
	}
	slices.SortFunc(days, func(a, b apiclient.HeatmapDay) int { return strings.Compare(a.Date, b.Date) })
	return days
}

// inRange compares YYYY-MM-DD dates lexically; empty bounds are open.
func inRange(date, from, to string) bool {
	return (from == "" || date >= from) && (to == "" || date <= to)
}

func (s *Server) findTask(uid, id string) (apiclient.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks[uid] {
		if t.ID == id {
			return t, true
		}
	}
	return apiclient.Task{}, false
}
