package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/untibullet/taskflow-backend/internal/models"
)

// Activity реализует ActivityStore поверх PostgreSQL.
// Журнал append-only: записи никогда не обновляются и не удаляются.
type Activity struct {
	pool *pgxpool.Pool
}

func NewActivity(pool *pgxpool.Pool) *Activity {
	return &Activity{pool: pool}
}

// Create добавляет запись в журнал активности
func (r *Activity) Create(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error) {
	query := `
        INSERT INTO activity_logs (project_id, user_id, action_type, entity_type, entity_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	entry := *log
	err := r.pool.QueryRow(ctx, query,
		log.ProjectID, log.UserID, log.ActionType, log.EntityType, log.EntityID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity log: %w", err)
	}
	return &entry, nil
}

// ListByProject возвращает страницу журнала проекта, новые записи первыми
func (r *Activity) ListByProject(ctx context.Context, projectID int64, page, pageSize int) ([]models.ActivityLog, error) {
	query := `
        SELECT id, project_id, user_id, action_type, entity_type, entity_id, created_at
        FROM activity_logs
        WHERE project_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3
    `
	return r.list(ctx, query, projectID, page, pageSize)
}

// ListByUser возвращает страницу активности пользователя, новые записи первыми
func (r *Activity) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]models.ActivityLog, error) {
	query := `
        SELECT id, project_id, user_id, action_type, entity_type, entity_id, created_at
        FROM activity_logs
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3
    `
	return r.list(ctx, query, userID, page, pageSize)
}

func (r *Activity) list(ctx context.Context, query string, id int64, page, pageSize int) ([]models.ActivityLog, error) {
	if page < 1 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, query, id, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var l models.ActivityLog
		if err := rows.Scan(&l.ID, &l.ProjectID, &l.UserID, &l.ActionType, &l.EntityType, &l.EntityID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity logs: %w", err)
	}
	return logs, nil
}
