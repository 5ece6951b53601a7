package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/untibullet/taskflow-backend/internal/models"
)

type fakeActivityStore struct {
	entries   []models.ActivityLog
	snapshots []models.MetricSnapshot
}

func (s *fakeActivityStore) Create(_ context.Context, log *models.ActivityLog) (*models.ActivityLog, error) {
	entry := *log
	entry.ID = int64(len(s.entries) + 1)
	entry.CreatedAt = time.Now().UTC()
	s.entries = append(s.entries, entry)
	return &entry, nil
}

func (s *fakeActivityStore) ListByProject(_ context.Context, projectID int64, page, pageSize int) ([]models.ActivityLog, error) {
	var logs []models.ActivityLog
	for _, e := range s.entries {
		if e.ProjectID == projectID {
			logs = append(logs, e)
		}
	}
	return paginate(logs, page, pageSize), nil
}

func (s *fakeActivityStore) ListByUser(_ context.Context, userID int64, page, pageSize int) ([]models.ActivityLog, error) {
	var logs []models.ActivityLog
	for _, e := range s.entries {
		if e.UserID == userID {
			logs = append(logs, e)
		}
	}
	return paginate(logs, page, pageSize), nil
}

func (s *fakeActivityStore) CountCreatedIssues(_ context.Context, projectID int64) (int, error) {
	created := make(map[int64]bool)
	for _, e := range s.entries {
		if e.ProjectID == projectID && e.EntityType == models.EntityIssue && e.ActionType == "Created" {
			created[e.EntityID] = true
		}
	}
	return len(created), nil
}

func (s *fakeActivityStore) LatestIssueStatuses(_ context.Context, projectID int64) (map[int64]string, error) {
	statusVerbs := map[string]bool{
		"Created": true, "TO_DO": true, "SELECTED_FOR_DEVELOPMENT": true,
		"IN_PROGRESS": true, "CODE_REVIEW": true, "QA": true, "STAGING": true, "DONE": true,
	}
	created := make(map[int64]bool)
	for _, e := range s.entries {
		if e.ProjectID == projectID && e.EntityType == models.EntityIssue && e.ActionType == "Created" {
			created[e.EntityID] = true
		}
	}
	statuses := make(map[int64]string)
	for _, e := range s.entries {
		if e.ProjectID == projectID && e.EntityType == models.EntityIssue &&
			created[e.EntityID] && statusVerbs[e.ActionType] {
			statuses[e.EntityID] = e.ActionType
		}
	}
	return statuses, nil
}

func (s *fakeActivityStore) SaveMetricSnapshots(_ context.Context, projectID int64, metrics map[string]float64) error {
	now := time.Now().UTC()
	for name, value := range metrics {
		s.snapshots = append(s.snapshots, models.MetricSnapshot{
			ID: int64(len(s.snapshots) + 1), ProjectID: projectID,
			MetricName: name, MetricValue: value, SnapshotDate: now,
		})
	}
	return nil
}

func (s *fakeActivityStore) ListMetricTrend(_ context.Context, projectID int64, metricName string, from, to time.Time) ([]models.MetricPoint, error) {
	var points []models.MetricPoint
	for _, snap := range s.snapshots {
		if snap.ProjectID == projectID && snap.MetricName == metricName &&
			!snap.SnapshotDate.Before(from) && !snap.SnapshotDate.After(to) {
			points = append(points, models.MetricPoint{Date: snap.SnapshotDate, Value: snap.MetricValue})
		}
	}
	return points, nil
}

func paginate(logs []models.ActivityLog, page, pageSize int) []models.ActivityLog {
	offset := (page - 1) * pageSize
	if offset >= len(logs) {
		return nil
	}
	end := offset + pageSize
	if end > len(logs) {
		end = len(logs)
	}
	return logs[offset:end]
}

type activityPage struct {
	ProjectID int64                `json:"project_id"`
	UserID    int64                `json:"user_id"`
	Page      int                  `json:"page"`
	PageSize  int                  `json:"page_size"`
	Activity  []models.ActivityLog `json:"activity"`
}

func TestGetProjectActivity(t *testing.T) {
	store := &fakeActivityStore{}
	for i := 0; i < 3; i++ {
		_, err := store.Create(context.Background(), &models.ActivityLog{
			ProjectID: 7, UserID: 1, ActionType: "Created", EntityType: models.EntityIssue, EntityID: int64(i + 1),
		})
		require.NoError(t, err)
	}
	_, err := store.Create(context.Background(), &models.ActivityLog{
		ProjectID: 8, UserID: 1, ActionType: "Created", EntityType: models.EntityIssue, EntityID: 99,
	})
	require.NoError(t, err)

	h := NewActivity(store, store, zap.NewNop())
	e := echo.New()
	h.RegisterRoutes(e)

	rec := doRequest(e, http.MethodGet, "/api/activity/projects/7", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp activityPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.ProjectID)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 50, resp.PageSize)
	assert.Len(t, resp.Activity, 3)
}

func TestGetProjectActivityPagination(t *testing.T) {
	store := &fakeActivityStore{}
	for i := 0; i < 5; i++ {
		_, err := store.Create(context.Background(), &models.ActivityLog{
			ProjectID: 7, UserID: 1, ActionType: "Updated", EntityType: models.EntityIssue, EntityID: int64(i + 1),
		})
		require.NoError(t, err)
	}

	h := NewActivity(store, store, zap.NewNop())
	e := echo.New()
	h.RegisterRoutes(e)

	tests := []struct {
		name         string
		target       string
		expectedPage int
		expectedSize int
		expectedLen  int
	}{
		{name: "first page of two", target: "/api/activity/projects/7?page=1&page_size=2", expectedPage: 1, expectedSize: 2, expectedLen: 2},
		{name: "last partial page", target: "/api/activity/projects/7?page=3&page_size=2", expectedPage: 3, expectedSize: 2, expectedLen: 1},
		{name: "page past the end is empty", target: "/api/activity/projects/7?page=9&page_size=2", expectedPage: 9, expectedSize: 2, expectedLen: 0},
		{name: "invalid page falls back to first", target: "/api/activity/projects/7?page=-1", expectedPage: 1, expectedSize: 50, expectedLen: 5},
		{name: "oversized page size falls back to default", target: "/api/activity/projects/7?page_size=1000", expectedPage: 1, expectedSize: 50, expectedLen: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodGet, tt.target, "", nil)
			assert.Equal(t, http.StatusOK, rec.Code)

			var resp activityPage
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedPage, resp.Page)
			assert.Equal(t, tt.expectedSize, resp.PageSize)
			assert.Len(t, resp.Activity, tt.expectedLen)
			assert.NotNil(t, resp.Activity)
		})
	}
}

func TestGetUserActivity(t *testing.T) {
	store := &fakeActivityStore{}
	_, err := store.Create(context.Background(), &models.ActivityLog{
		ProjectID: 7, UserID: 42, ActionType: "Started", EntityType: models.EntitySprint, EntityID: 1,
	})
	require.NoError(t, err)

	h := NewActivity(store, store, zap.NewNop())
	e := echo.New()
	h.RegisterRoutes(e)

	rec := doRequest(e, http.MethodGet, "/api/activity/users/42", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp activityPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.UserID)
	require.Len(t, resp.Activity, 1)
	assert.Equal(t, "Started", resp.Activity[0].ActionType)

	rec = doRequest(e, http.MethodGet, "/api/activity/users/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func seedIssueHistory(t *testing.T, store *fakeActivityStore) {
	t.Helper()
	history := []models.ActivityLog{
		{ProjectID: 7, UserID: 1, ActionType: "Created", EntityType: models.EntityIssue, EntityID: 1},
		{ProjectID: 7, UserID: 1, ActionType: "Created", EntityType: models.EntityIssue, EntityID: 2},
		{ProjectID: 7, UserID: 2, ActionType: "Created", EntityType: models.EntityIssue, EntityID: 3},
		{ProjectID: 7, UserID: 1, ActionType: "IN_PROGRESS", EntityType: models.EntityIssue, EntityID: 1},
		{ProjectID: 7, UserID: 1, ActionType: "DONE", EntityType: models.EntityIssue, EntityID: 1},
		{ProjectID: 7, UserID: 2, ActionType: "IN_PROGRESS", EntityType: models.EntityIssue, EntityID: 2},
		// комментарий не влияет на статус задачи
		{ProjectID: 7, UserID: 2, ActionType: "Created", EntityType: models.EntityIssueComment, EntityID: 50},
		// чужой проект не участвует в метриках
		{ProjectID: 8, UserID: 3, ActionType: "Created", EntityType: models.EntityIssue, EntityID: 90},
	}
	for i := range history {
		_, err := store.Create(context.Background(), &history[i])
		require.NoError(t, err)
	}
}

func TestGetProjectMetrics(t *testing.T) {
	store := &fakeActivityStore{}
	seedIssueHistory(t, store)

	h := NewActivity(store, store, zap.NewNop())
	e := echo.New()
	h.RegisterRoutes(e)

	rec := doRequest(e, http.MethodGet, "/api/activity/projects/7/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ProjectID      int64                `json:"project_id"`
		Metrics        map[string]float64   `json:"metrics"`
		RecentActivity []models.ActivityLog `json:"recent_activity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, int64(7), resp.ProjectID)
	assert.Equal(t, float64(3), resp.Metrics["total_issues"])
	assert.Equal(t, float64(1), resp.Metrics["completed_issues"])
	assert.Equal(t, float64(1), resp.Metrics["in_progress_issues"])
	assert.Equal(t, float64(1), resp.Metrics["todo_issues"])
	assert.InDelta(t, 100.0/3, resp.Metrics["completion_rate"], 0.01)
	assert.NotEmpty(t, resp.RecentActivity)

	// каждый расчет сохраняет снимок каждой метрики
	assert.Len(t, store.snapshots, 5)
}

func TestGetProjectMetricsEmptyProject(t *testing.T) {
	store := &fakeActivityStore{}
	h := NewActivity(store, store, zap.NewNop())
	e := echo.New()
	h.RegisterRoutes(e)

	rec := doRequest(e, http.MethodGet, "/api/activity/projects/7/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Metrics        map[string]float64   `json:"metrics"`
		RecentActivity []models.ActivityLog `json:"recent_activity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Metrics["total_issues"])
	assert.Zero(t, resp.Metrics["completion_rate"])
	assert.NotNil(t, resp.RecentActivity)
	assert.Empty(t, resp.RecentActivity)
}

func TestGetMetricTrend(t *testing.T) {
	store := &fakeActivityStore{}
	seedIssueHistory(t, store)

	h := NewActivity(store, store, zap.NewNop())
	e := echo.New()
	h.RegisterRoutes(e)

	// два расчета — две точки тренда
	for i := 0; i < 2; i++ {
		rec := doRequest(e, http.MethodGet, "/api/activity/projects/7/metrics", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(e, http.MethodGet, "/api/activity/projects/7/metrics/total_issues/trend", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		MetricName string               `json:"metric_name"`
		Points     []models.MetricPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "total_issues", resp.MetricName)
	require.Len(t, resp.Points, 2)
	assert.Equal(t, float64(3), resp.Points[0].Value)

	// неизвестная метрика — пустой тренд, не ошибка
	rec = doRequest(e, http.MethodGet, "/api/activity/projects/7/metrics/unknown/trend", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Points)
	assert.Empty(t, resp.Points)

	// период в прошлом отсекает свежие точки
	rec = doRequest(e, http.MethodGet, "/api/activity/projects/7/metrics/total_issues/trend?from=2020-01-01&to=2020-12-31", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Points)

	// некорректная граница периода
	rec = doRequest(e, http.MethodGet, "/api/activity/projects/7/metrics/total_issues/trend?from=01.01.2020", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
