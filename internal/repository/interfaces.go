package repository

import (
	"context"
	"time"

	"github.com/untibullet/taskflow-backend/internal/models"
)

// SprintStore описывает хранилище спринтов и привязок задач к спринтам.
// Обработчики и свипер работают через этот интерфейс, конкретная реализация — Sprints поверх pgx.
type SprintStore interface {
	// GetByID возвращает спринт по ID или ErrNotFound
	GetByID(ctx context.Context, id int64) (*models.Sprint, error)

	// ListByProject возвращает спринты проекта, отсортированные по дате начала
	ListByProject(ctx context.Context, projectID int64) ([]models.Sprint, error)

	// Create сохраняет новый спринт со статусом planned и возвращает его с присвоенным ID
	Create(ctx context.Context, sprint *models.Sprint) (*models.Sprint, error)

	// Update полностью заменяет изменяемые поля спринта (имя, цель, даты)
	Update(ctx context.Context, sprint *models.Sprint) (*models.Sprint, error)

	// Delete удаляет спринт; повторное удаление не является ошибкой
	Delete(ctx context.Context, id int64) error

	// SetStatus переводит спринт из статуса from в статус to
	SetStatus(ctx context.Context, id int64, from, to string) (*models.Sprint, error)

	// AddIssues привязывает задачи к спринту, возвращая ID реально добавленных
	AddIssues(ctx context.Context, sprintID int64, issueIDs []int64) ([]int64, error)

	// RemoveIssue отвязывает одну задачу от спринта; отсутствие привязки не является ошибкой
	RemoveIssue(ctx context.Context, sprintID, issueID int64) error

	// RemoveIssuesFromAllSprints отвязывает задачи от всех спринтов
	RemoveIssuesFromAllSprints(ctx context.Context, issueIDs []int64) error

	// ClearIssues отвязывает все задачи от спринта
	ClearIssues(ctx context.Context, sprintID int64) error

	// CountIssues возвращает количество задач в спринте
	CountIssues(ctx context.Context, sprintID int64) (int, error)

	// IsIssueInSprint проверяет привязку задачи к спринту
	IsIssueInSprint(ctx context.Context, sprintID, issueID int64) (bool, error)

	// ListIssueIDs возвращает ID всех задач спринта
	ListIssueIDs(ctx context.Context, sprintID int64) ([]int64, error)

	// HasDateOverlap проверяет, пересекается ли интервал дат с другим спринтом
	// проекта; excludeID исключает сам спринт при обновлении
	HasDateOverlap(ctx context.Context, projectID int64, start, end time.Time, excludeID int64) (bool, error)

	// ListPlannedToStart возвращает запланированные спринты с наступившей датой начала
	ListPlannedToStart(ctx context.Context, today time.Time) ([]models.Sprint, error)

	// ListActiveExpired возвращает активные спринты с прошедшей датой окончания
	ListActiveExpired(ctx context.Context, today time.Time) ([]models.Sprint, error)
}

// ActivityStore описывает журнал активности проектов.
type ActivityStore interface {
	// Create добавляет запись в журнал и возвращает ее с присвоенным ID
	Create(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error)

	// ListByProject возвращает страницу журнала проекта, новые записи первыми
	ListByProject(ctx context.Context, projectID int64, page, pageSize int) ([]models.ActivityLog, error)

	// ListByUser возвращает страницу активности пользователя, новые записи первыми
	ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]models.ActivityLog, error)
}

// MetricsStore описывает расчет метрик проекта по журналу активности
// и хранение их снимков для трендов.
type MetricsStore interface {
	// CountCreatedIssues возвращает число задач, созданных в проекте
	CountCreatedIssues(ctx context.Context, projectID int64) (int, error)

	// LatestIssueStatuses возвращает последний статус каждой созданной задачи проекта
	LatestIssueStatuses(ctx context.Context, projectID int64) (map[int64]string, error)

	// SaveMetricSnapshots сохраняет снимки метрик проекта на текущий момент
	SaveMetricSnapshots(ctx context.Context, projectID int64, metrics map[string]float64) error

	// ListMetricTrend возвращает точки тренда метрики за период, старые первыми
	ListMetricTrend(ctx context.Context, projectID int64, metricName string, from, to time.Time) ([]models.MetricPoint, error)
}
