// models/models.go
package models

import "time"

// Статусы спринта
const (
	SprintStatusPlanned   = "planned"
	SprintStatusActive    = "active"
	SprintStatusCompleted = "completed"
)

// SystemUserID — идентификатор системного пользователя для автоматических переходов
const SystemUserID int64 = 0

// Типы сущностей в журнале активности
const (
	EntityAttachment    = "Attachment"
	EntityIssue         = "Issue"
	EntityIssueAssignee = "IssueAssignee"
	EntityIssueComment  = "IssueComment"
	EntityProject       = "Project"
	EntityProjectMember = "ProjectMember"
	EntitySprint        = "Sprint"
	EntitySprintIssue   = "SprintIssue"
)

// Sprint представляет спринт проекта
type Sprint struct {
	ID        int64     `json:"id" db:"id"`
	ProjectID int64     `json:"project_id" db:"project_id"`
	Name      string    `json:"name" db:"name"`
	Goal      *string   `json:"goal,omitempty" db:"goal"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	Status    string    `json:"status" db:"status"`
}

// SprintIssue представляет привязку задачи к спринту
type SprintIssue struct {
	SprintID int64 `json:"sprint_id" db:"sprint_id"`
	IssueID  int64 `json:"issue_id" db:"issue_id"`
}

// ActivityLog представляет запись журнала активности проекта
type ActivityLog struct {
	ID         int64     `json:"id" db:"id"`
	ProjectID  int64     `json:"project_id" db:"project_id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	ActionType string    `json:"action_type" db:"action_type"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   int64     `json:"entity_id" db:"entity_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// MetricSnapshot представляет значение метрики проекта на момент расчета
type MetricSnapshot struct {
	ID           int64     `json:"id" db:"id"`
	ProjectID    int64     `json:"project_id" db:"project_id"`
	MetricName   string    `json:"metric_name" db:"metric_name"`
	MetricValue  float64   `json:"metric_value" db:"metric_value"`
	SnapshotDate time.Time `json:"snapshot_date" db:"snapshot_date"`
}

// MetricPoint представляет точку тренда метрики
type MetricPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// DateOnly отбрасывает время, оставляя календарную дату в UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today возвращает текущую календарную дату в UTC
func Today() time.Time {
	return DateOnly(time.Now())
}
