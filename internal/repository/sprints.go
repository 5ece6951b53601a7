package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/untibullet/taskflow-backend/internal/models"
)

const sprintColumns = `id, project_id, name, goal, start_date, end_date, status`

// Sprints реализует SprintStore поверх PostgreSQL
type Sprints struct {
	pool *pgxpool.Pool
}

func NewSprints(pool *pgxpool.Pool) *Sprints {
	return &Sprints{pool: pool}
}

func scanSprint(row pgx.Row) (*models.Sprint, error) {
	var s models.Sprint
	err := row.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Goal, &s.StartDate, &s.EndDate, &s.Status)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID получает спринт по ID
func (r *Sprints) GetByID(ctx context.Context, id int64) (*models.Sprint, error) {
	query := `SELECT ` + sprintColumns + ` FROM sprints WHERE id = $1`
	sprint, err := scanSprint(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sprint: %w", err)
	}
	return sprint, nil
}

// ListByProject получает все спринты проекта, отсортированные по дате начала
func (r *Sprints) ListByProject(ctx context.Context, projectID int64) ([]models.Sprint, error) {
	query := `
        SELECT ` + sprintColumns + `
        FROM sprints
        WHERE project_id = $1
        ORDER BY start_date
    `
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprints: %w", err)
	}
	defer rows.Close()

	return collectSprints(rows)
}

func collectSprints(rows pgx.Rows) ([]models.Sprint, error) {
	var sprints []models.Sprint
	for rows.Next() {
		var s models.Sprint
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Goal, &s.StartDate, &s.EndDate, &s.Status); err != nil {
			return nil, fmt.Errorf("failed to scan sprint: %w", err)
		}
		sprints = append(sprints, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sprints: %w", err)
	}
	return sprints, nil
}

// Create создает новый спринт со статусом planned
func (r *Sprints) Create(ctx context.Context, sprint *models.Sprint) (*models.Sprint, error) {
	query := `
        INSERT INTO sprints (project_id, name, goal, start_date, end_date, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + sprintColumns + `
    `
	created, err := scanSprint(r.pool.QueryRow(ctx, query,
		sprint.ProjectID,
		sprint.Name,
		sprint.Goal,
		models.DateOnly(sprint.StartDate),
		models.DateOnly(sprint.EndDate),
		models.SprintStatusPlanned,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create sprint: %w", err)
	}
	return created, nil
}

// Update полностью заменяет изменяемые поля спринта; проект, статус и ID не меняются
func (r *Sprints) Update(ctx context.Context, sprint *models.Sprint) (*models.Sprint, error) {
	query := `
        UPDATE sprints
        SET name = $1, goal = $2, start_date = $3, end_date = $4, updated_at = NOW()
        WHERE id = $5
        RETURNING ` + sprintColumns + `
    `
	updated, err := scanSprint(r.pool.QueryRow(ctx, query,
		sprint.Name,
		sprint.Goal,
		models.DateOnly(sprint.StartDate),
		models.DateOnly(sprint.EndDate),
		sprint.ID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update sprint: %w", err)
	}
	return updated, nil
}

// Delete удаляет спринт. Привязки задач не каскадируются и остаются
// до явной очистки. Удаление отсутствующего спринта не является ошибкой.
func (r *Sprints) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sprints WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sprint: %w", err)
	}
	return nil
}

// SetStatus переводит спринт из статуса from в статус to.
// Переход защищен условием по текущему статусу: повторный или обратный
// переход вернет ErrInvalidTransition, отсутствующий спринт — ErrNotFound.
func (r *Sprints) SetStatus(ctx context.Context, id int64, from, to string) (*models.Sprint, error) {
	query := `
        UPDATE sprints
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3
        RETURNING ` + sprintColumns + `
    `
	sprint, err := scanSprint(r.pool.QueryRow(ctx, query, to, id, from))
	if errors.Is(err, pgx.ErrNoRows) {
		// Если строка не обновилась, нужно различить "нет спринта" и "не тот статус"
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set sprint status: %w", err)
	}
	return sprint, nil
}

// AddIssues привязывает задачи к спринту одним запросом, пропуская уже
// привязанные. Возвращает ID реально добавленных задач; пустой набор — no-op.
func (r *Sprints) AddIssues(ctx context.Context, sprintID int64, issueIDs []int64) ([]int64, error) {
	if len(issueIDs) == 0 {
		return nil, nil
	}

	query := `
        INSERT INTO sprint_issues (sprint_id, issue_id)
        SELECT $1, unnest($2::bigint[])
        ON CONFLICT (sprint_id, issue_id) DO NOTHING
        RETURNING issue_id
    `
	rows, err := r.pool.Query(ctx, query, sprintID, issueIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to add issues to sprint: %w", err)
	}
	defer rows.Close()

	return collectIDs(rows)
}

func collectIDs(rows pgx.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan issue id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RemoveIssue отвязывает задачу от спринта (идемпотентно)
func (r *Sprints) RemoveIssue(ctx context.Context, sprintID, issueID int64) error {
	query := `DELETE FROM sprint_issues WHERE sprint_id = $1 AND issue_id = $2`
	if _, err := r.pool.Exec(ctx, query, sprintID, issueID); err != nil {
		return fmt.Errorf("failed to remove issue from sprint: %w", err)
	}
	return nil
}

// RemoveIssuesFromAllSprints отвязывает задачи от всех спринтов.
// Вызывается при удалении задач в другом сервисе.
func (r *Sprints) RemoveIssuesFromAllSprints(ctx context.Context, issueIDs []int64) error {
	if len(issueIDs) == 0 {
		return nil
	}
	query := `DELETE FROM sprint_issues WHERE issue_id = ANY($1)`
	if _, err := r.pool.Exec(ctx, query, issueIDs); err != nil {
		return fmt.Errorf("failed to remove issues from all sprints: %w", err)
	}
	return nil
}

// ClearIssues отвязывает все задачи от спринта
func (r *Sprints) ClearIssues(ctx context.Context, sprintID int64) error {
	query := `DELETE FROM sprint_issues WHERE sprint_id = $1`
	if _, err := r.pool.Exec(ctx, query, sprintID); err != nil {
		return fmt.Errorf("failed to clear sprint issues: %w", err)
	}
	return nil
}

// CountIssues возвращает количество задач в спринте
func (r *Sprints) CountIssues(ctx context.Context, sprintID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM sprint_issues WHERE sprint_id = $1`
	if err := r.pool.QueryRow(ctx, query, sprintID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sprint issues: %w", err)
	}
	return count, nil
}

// IsIssueInSprint проверяет, привязана ли задача к спринту
func (r *Sprints) IsIssueInSprint(ctx context.Context, sprintID, issueID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM sprint_issues WHERE sprint_id = $1 AND issue_id = $2)`
	if err := r.pool.QueryRow(ctx, query, sprintID, issueID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check sprint issue: %w", err)
	}
	return exists, nil
}

// ListIssueIDs возвращает ID всех задач спринта
func (r *Sprints) ListIssueIDs(ctx context.Context, sprintID int64) ([]int64, error) {
	query := `SELECT issue_id FROM sprint_issues WHERE sprint_id = $1 ORDER BY issue_id`
	rows, err := r.pool.Query(ctx, query, sprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprint issues: %w", err)
	}
	defer rows.Close()

	return collectIDs(rows)
}

// HasDateOverlap проверяет, пересекается ли интервал дат с другим спринтом проекта
func (r *Sprints) HasDateOverlap(ctx context.Context, projectID int64, start, end time.Time, excludeID int64) (bool, error) {
	var overlaps bool
	query := `
        SELECT EXISTS(
            SELECT 1 FROM sprints
            WHERE project_id = $1 AND id <> $2
              AND start_date <= $4 AND end_date >= $3
        )
    `
	err := r.pool.QueryRow(ctx, query,
		projectID, excludeID, models.DateOnly(start), models.DateOnly(end),
	).Scan(&overlaps)
	if err != nil {
		return false, fmt.Errorf("failed to check sprint date overlap: %w", err)
	}
	return overlaps, nil
}

// ListPlannedToStart возвращает запланированные спринты, дата начала которых наступила
func (r *Sprints) ListPlannedToStart(ctx context.Context, today time.Time) ([]models.Sprint, error) {
	query := `
        SELECT ` + sprintColumns + `
        FROM sprints
        WHERE status = $1 AND start_date <= $2
    `
	rows, err := r.pool.Query(ctx, query, models.SprintStatusPlanned, models.DateOnly(today))
	if err != nil {
		return nil, fmt.Errorf("failed to list planned sprints to start: %w", err)
	}
	defer rows.Close()

	return collectSprints(rows)
}

// ListActiveExpired возвращает активные спринты, дата окончания которых прошла
func (r *Sprints) ListActiveExpired(ctx context.Context, today time.Time) ([]models.Sprint, error) {
	query := `
        SELECT ` + sprintColumns + `
        FROM sprints
        WHERE status = $1 AND end_date < $2
    `
	rows, err := r.pool.Query(ctx, query, models.SprintStatusActive, models.DateOnly(today))
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sprints: %w", err)
	}
	defer rows.Close()

	return collectSprints(rows)
}
