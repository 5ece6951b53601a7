package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/untibullet/taskflow-backend/internal/models"
)

// Статус задачи в журнале — это последняя запись со статусным действием.
// "Created" считается начальным статусом TO_DO.
var issueStatusVerbs = []string{
	"Created", "TO_DO", "SELECTED_FOR_DEVELOPMENT",
	"IN_PROGRESS", "CODE_REVIEW", "QA", "STAGING", "DONE",
}

// CountCreatedIssues возвращает число задач, созданных в проекте
func (r *Activity) CountCreatedIssues(ctx context.Context, projectID int64) (int, error) {
	var count int
	query := `
        SELECT COUNT(DISTINCT entity_id)
        FROM activity_logs
        WHERE project_id = $1 AND entity_type = $2 AND action_type = 'Created'
    `
	if err := r.pool.QueryRow(ctx, query, projectID, models.EntityIssue).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count created issues: %w", err)
	}
	return count, nil
}

// LatestIssueStatuses возвращает последний статус каждой созданной задачи проекта
func (r *Activity) LatestIssueStatuses(ctx context.Context, projectID int64) (map[int64]string, error) {
	query := `
        SELECT DISTINCT ON (entity_id) entity_id, action_type
        FROM activity_logs
        WHERE project_id = $1 AND entity_type = $2 AND action_type = ANY($3)
          AND entity_id IN (
              SELECT entity_id FROM activity_logs
              WHERE project_id = $1 AND entity_type = $2 AND action_type = 'Created'
          )
        ORDER BY entity_id, created_at DESC, id DESC
    `
	rows, err := r.pool.Query(ctx, query, projectID, models.EntityIssue, issueStatusVerbs)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest issue statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[int64]string)
	for rows.Next() {
		var issueID int64
		var status string
		if err := rows.Scan(&issueID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan issue status: %w", err)
		}
		statuses[issueID] = status
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate issue statuses: %w", err)
	}
	return statuses, nil
}

// SaveMetricSnapshots сохраняет снимки метрик проекта одной пачкой
func (r *Activity) SaveMetricSnapshots(ctx context.Context, projectID int64, metrics map[string]float64) error {
	query := `
        INSERT INTO dashboard_snapshots (project_id, metric_name, metric_value, snapshot_date)
        VALUES ($1, $2, $3, $4)
    `
	now := time.Now().UTC()
	for name, value := range metrics {
		if _, err := r.pool.Exec(ctx, query, projectID, name, value, now); err != nil {
			return fmt.Errorf("failed to save metric snapshot %s: %w", name, err)
		}
	}
	return nil
}

// ListMetricTrend возвращает точки тренда метрики за период, старые первыми
func (r *Activity) ListMetricTrend(ctx context.Context, projectID int64, metricName string, from, to time.Time) ([]models.MetricPoint, error) {
	query := `
        SELECT snapshot_date, metric_value
        FROM dashboard_snapshots
        WHERE project_id = $1 AND metric_name = $2
          AND snapshot_date >= $3 AND snapshot_date <= $4
        ORDER BY snapshot_date
    `
	rows, err := r.pool.Query(ctx, query, projectID, metricName, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list metric trend: %w", err)
	}
	defer rows.Close()

	var points []models.MetricPoint
	for rows.Next() {
		var p models.MetricPoint
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan metric point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metric points: %w", err)
	}
	return points, nil
}
