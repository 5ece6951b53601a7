package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/untibullet/taskflow-backend/internal/events"
	"github.com/untibullet/taskflow-backend/internal/models"
	"github.com/untibullet/taskflow-backend/internal/repository"
)

const dateLayout = "2006-01-02"

type SprintHandler struct {
	store     repository.SprintStore
	publisher events.Publisher
	logger    *zap.Logger
}

// NewSprints создает обработчик API спринтов
func NewSprints(store repository.SprintStore, publisher events.Publisher, logger *zap.Logger) *SprintHandler {
	return &SprintHandler{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

type sprintRequest struct {
	Name      string  `json:"name"`
	Goal      *string `json:"goal"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

// parseDates разбирает и проверяет календарные даты запроса
func (req *sprintRequest) parseDates() (start, end time.Time, err error) {
	start, err = time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return start, end, errors.New("start_date must be a date in YYYY-MM-DD format")
	}
	end, err = time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return start, end, errors.New("end_date must be a date in YYYY-MM-DD format")
	}
	if end.Before(start) {
		return start, end, errors.New("end_date must not be before start_date")
	}
	return start, end, nil
}

// CreateSprint создает новый спринт проекта со статусом planned
func (h *SprintHandler) CreateSprint(c echo.Context) error {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid project id"))
	}

	var req sprintRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("CreateSprint: ошибка парсинга тела запроса", zap.Error(err))
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid request body"))
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "name is required"))
	}

	start, end, err := req.parseDates()
	if err != nil {
		h.logger.Warn("CreateSprint: некорректные даты", zap.Error(err))
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, err.Error()))
	}

	overlaps, err := h.store.HasDateOverlap(c.Request().Context(), projectID, start, end, 0)
	if err != nil {
		h.logger.Error("CreateSprint: ошибка проверки пересечения дат", zap.Error(err), zap.Int64("project_id", projectID))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to check sprint dates"))
	}
	if overlaps {
		h.logger.Warn("CreateSprint: даты пересекаются с другим спринтом проекта",
			zap.Int64("project_id", projectID))
		return c.JSON(http.StatusConflict, newErrorResponse(ErrCodeDateOverlap, "sprint dates overlap with existing sprint in project"))
	}

	sprint, err := h.store.Create(c.Request().Context(), &models.Sprint{
		ProjectID: projectID,
		Name:      req.Name,
		Goal:      req.Goal,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		h.logger.Error("CreateSprint: ошибка создания спринта", zap.Error(err), zap.Int64("project_id", projectID))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to create sprint"))
	}

	h.logger.Info("CreateSprint: спринт создан",
		zap.Int64("sprint_id", sprint.ID),
		zap.Int64("project_id", sprint.ProjectID))

	h.publish(events.TopicSprintCreated, events.SprintCreatedEvent{
		ProjectID:    sprint.ProjectID,
		SprintID:     sprint.ID,
		CreatorID:    actorID(c),
		CreatedAtUTC: time.Now().UTC(),
	})

	return c.JSON(http.StatusCreated, map[string]interface{}{"sprint": sprint})
}

// ListSprints возвращает спринты проекта, отсортированные по дате начала
func (h *SprintHandler) ListSprints(c echo.Context) error {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid project id"))
	}

	sprints, err := h.store.ListByProject(c.Request().Context(), projectID)
	if err != nil {
		h.logger.Error("ListSprints: ошибка получения спринтов", zap.Error(err), zap.Int64("project_id", projectID))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to list sprints"))
	}
	if sprints == nil {
		sprints = []models.Sprint{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"sprints":    sprints,
	})
}

// GetSprint возвращает спринт по ID
func (h *SprintHandler) GetSprint(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid sprint id"))
	}

	sprint, err := h.store.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, newErrorResponse(ErrCodeNotFound, "sprint not found"))
		}
		h.logger.Error("GetSprint: ошибка получения спринта", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to get sprint"))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"sprint": sprint})
}

// UpdateSprint заменяет изменяемые поля спринта (имя, цель, даты)
func (h *SprintHandler) UpdateSprint(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid sprint id"))
	}

	var req sprintRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("UpdateSprint: ошибка парсинга тела запроса", zap.Error(err))
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid request body"))
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "name is required"))
	}

	start, end, err := req.parseDates()
	if err != nil {
		h.logger.Warn("UpdateSprint: некорректные даты", zap.Error(err))
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, err.Error()))
	}

	// Существующий спринт нужен заранее: project_id для проверки пересечения
	existing, err := h.store.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, newErrorResponse(ErrCodeNotFound, "sprint not found"))
		}
		h.logger.Error("UpdateSprint: ошибка получения спринта", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to get sprint"))
	}

	overlaps, err := h.store.HasDateOverlap(c.Request().Context(), existing.ProjectID, start, end, id)
	if err != nil {
		h.logger.Error("UpdateSprint: ошибка проверки пересечения дат", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to check sprint dates"))
	}
	if overlaps {
		h.logger.Warn("UpdateSprint: даты пересекаются с другим спринтом проекта",
			zap.Int64("sprint_id", id),
			zap.Int64("project_id", existing.ProjectID))
		return c.JSON(http.StatusConflict, newErrorResponse(ErrCodeDateOverlap, "sprint dates overlap with existing sprint in project"))
	}

	sprint, err := h.store.Update(c.Request().Context(), &models.Sprint{
		ID:        id,
		Name:      req.Name,
		Goal:      req.Goal,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, newErrorResponse(ErrCodeNotFound, "sprint not found"))
		}
		h.logger.Error("UpdateSprint: ошибка обновления спринта", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to update sprint"))
	}

	h.logger.Info("UpdateSprint: спринт обновлен", zap.Int64("sprint_id", id))
	return c.JSON(http.StatusOK, map[string]interface{}{"sprint": sprint})
}

// DeleteSprint удаляет спринт. Привязки задач остаются и чистятся отдельно;
// повторное удаление не является ошибкой.
func (h *SprintHandler) DeleteSprint(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid sprint id"))
	}

	if err := h.store.Delete(c.Request().Context(), id); err != nil {
		h.logger.Error("DeleteSprint: ошибка удаления спринта", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to delete sprint"))
	}

	h.logger.Info("DeleteSprint: спринт удален", zap.Int64("sprint_id", id))
	return c.NoContent(http.StatusNoContent)
}

// StartSprint переводит спринт из planned в active
func (h *SprintHandler) StartSprint(c echo.Context) error {
	return h.setStatus(c, models.SprintStatusPlanned, models.SprintStatusActive)
}

// CompleteSprint переводит спринт из active в completed
func (h *SprintHandler) CompleteSprint(c echo.Context) error {
	return h.setStatus(c, models.SprintStatusActive, models.SprintStatusCompleted)
}

func (h *SprintHandler) setStatus(c echo.Context, from, to string) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid sprint id"))
	}

	sprint, err := h.store.SetStatus(c.Request().Context(), id, from, to)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, newErrorResponse(ErrCodeNotFound, "sprint not found"))
		}
		if errors.Is(err, repository.ErrInvalidTransition) {
			h.logger.Warn("setStatus: недопустимый переход статуса",
				zap.Int64("sprint_id", id),
				zap.String("to", to))
			return c.JSON(http.StatusConflict, newErrorResponse(ErrCodeInvalidTransition, "sprint is not in status "+from))
		}
		h.logger.Error("setStatus: ошибка перевода статуса", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to change sprint status"))
	}

	h.logger.Info("setStatus: статус спринта изменен",
		zap.Int64("sprint_id", sprint.ID),
		zap.String("status", sprint.Status))

	now := time.Now().UTC()
	switch to {
	case models.SprintStatusActive:
		h.publish(events.TopicSprintStarted, events.SprintStartedEvent{
			ProjectID:    sprint.ProjectID,
			SprintID:     sprint.ID,
			StarterID:    actorID(c),
			StartedAtUTC: now,
		})
	case models.SprintStatusCompleted:
		h.publish(events.TopicSprintCompleted, events.SprintCompletedEvent{
			ProjectID:      sprint.ProjectID,
			SprintID:       sprint.ID,
			CompleterID:    actorID(c),
			CompletedAtUTC: now,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"sprint": sprint})
}

// AddIssues привязывает набор задач к спринту (идемпотентно)
func (h *SprintHandler) AddIssues(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid sprint id"))
	}

	var req struct {
		IssueIDs []int64 `json:"issue_ids"`
	}
	if err := c.Bind(&req); err != nil {
		h.logger.Error("AddIssues: ошибка парсинга тела запроса", zap.Error(err))
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid request body"))
	}

	// Спринт нужен заранее: проверка существования и project_id для событий
	sprint, err := h.store.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, newErrorResponse(ErrCodeNotFound, "sprint not found"))
		}
		h.logger.Error("AddIssues: ошибка получения спринта", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to get sprint"))
	}

	added, err := h.store.AddIssues(c.Request().Context(), id, req.IssueIDs)
	if err != nil {
		h.logger.Error("AddIssues: ошибка привязки задач", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to add issues to sprint"))
	}

	h.logger.Info("AddIssues: задачи привязаны к спринту",
		zap.Int64("sprint_id", id),
		zap.Int("requested", len(req.IssueIDs)),
		zap.Int("added", len(added)))

	now := time.Now().UTC()
	for _, issueID := range added {
		h.publish(events.TopicSprintIssueAdded, events.SprintIssueAddedEvent{
			ProjectID:     sprint.ProjectID,
			SprintID:      sprint.ID,
			IssueID:       issueID,
			AddedByUserID: actorID(c),
			AddedAtUTC:    now,
		})
	}

	if added == nil {
		added = []int64{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sprint_id": id,
		"added":     added,
	})
}

// RemoveIssue отвязывает одну задачу от спринта (идемпотентно)
func (h *SprintHandler) RemoveIssue(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid sprint id"))
	}
	issueID, err := pathID(c, "issueId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid issue id"))
	}

	sprint, err := h.store.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, newErrorResponse(ErrCodeNotFound, "sprint not found"))
		}
		h.logger.Error("RemoveIssue: ошибка получения спринта", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to get sprint"))
	}

	linked, err := h.store.IsIssueInSprint(c.Request().Context(), id, issueID)
	if err != nil {
		h.logger.Error("RemoveIssue: ошибка проверки привязки", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to check sprint issue"))
	}

	if err := h.store.RemoveIssue(c.Request().Context(), id, issueID); err != nil {
		h.logger.Error("RemoveIssue: ошибка отвязки задачи", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to remove issue from sprint"))
	}

	// Событие публикуется только если привязка реально существовала
	if linked {
		h.logger.Info("RemoveIssue: задача отвязана от спринта",
			zap.Int64("sprint_id", id),
			zap.Int64("issue_id", issueID))
		h.publish(events.TopicSprintIssueRemoved, events.SprintIssueRemovedEvent{
			ProjectID:       sprint.ProjectID,
			SprintID:        sprint.ID,
			IssueID:         issueID,
			RemovedByUserID: actorID(c),
			RemovedAtUTC:    time.Now().UTC(),
		})
	}

	return c.NoContent(http.StatusNoContent)
}

// ClearIssues отвязывает все задачи от спринта
func (h *SprintHandler) ClearIssues(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid sprint id"))
	}

	if err := h.store.ClearIssues(c.Request().Context(), id); err != nil {
		h.logger.Error("ClearIssues: ошибка очистки спринта", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to clear sprint issues"))
	}

	h.logger.Info("ClearIssues: все задачи отвязаны от спринта", zap.Int64("sprint_id", id))
	return c.NoContent(http.StatusNoContent)
}

// DetachIssues отвязывает задачи от всех спринтов.
// Внутренний маршрут: вызывается сервисом задач при удалении задач.
func (h *SprintHandler) DetachIssues(c echo.Context) error {
	var req struct {
		IssueIDs []int64 `json:"issue_ids"`
	}
	if err := c.Bind(&req); err != nil {
		h.logger.Error("DetachIssues: ошибка парсинга тела запроса", zap.Error(err))
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid request body"))
	}

	if err := h.store.RemoveIssuesFromAllSprints(c.Request().Context(), req.IssueIDs); err != nil {
		h.logger.Error("DetachIssues: ошибка отвязки задач", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to detach issues"))
	}

	h.logger.Info("DetachIssues: задачи отвязаны от всех спринтов", zap.Int("issues_count", len(req.IssueIDs)))
	return c.NoContent(http.StatusNoContent)
}

// CountIssues возвращает количество задач в спринте
func (h *SprintHandler) CountIssues(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid sprint id"))
	}

	count, err := h.store.CountIssues(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("CountIssues: ошибка подсчета задач", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to count sprint issues"))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"sprint_id": id,
		"count":     count,
	})
}

// CheckIssue проверяет привязку задачи к спринту
func (h *SprintHandler) CheckIssue(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid sprint id"))
	}
	issueID, err := pathID(c, "issueId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid issue id"))
	}

	inSprint, err := h.store.IsIssueInSprint(c.Request().Context(), id, issueID)
	if err != nil {
		h.logger.Error("CheckIssue: ошибка проверки привязки", zap.Error(err), zap.Int64("sprint_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to check sprint issue"))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"sprint_id": id,
		"issue_id":  issueID,
		"in_sprint": inSprint,
	})
}

// publish отправляет событие в шину; неудача публикации не срывает запрос
func (h *SprintHandler) publish(topic string, event any) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(topic, event); err != nil {
		h.logger.Error("ошибка публикации события",
			zap.String("topic", topic),
			zap.Error(err))
	}
}

// RegisterRoutes регистрирует маршруты API спринтов
func (h *SprintHandler) RegisterRoutes(e *echo.Echo) {
	// Sprints
	e.POST("/api/projects/:projectId/sprints", h.CreateSprint)
	e.GET("/api/projects/:projectId/sprints", h.ListSprints)
	e.GET("/api/sprints/:id", h.GetSprint)
	e.PUT("/api/sprints/:id", h.UpdateSprint)
	e.DELETE("/api/sprints/:id", h.DeleteSprint)
	e.POST("/api/sprints/:id/start", h.StartSprint)
	e.POST("/api/sprints/:id/complete", h.CompleteSprint)

	// Sprint issues
	e.POST("/api/sprints/:id/issues", h.AddIssues)
	e.DELETE("/api/sprints/:id/issues", h.ClearIssues)
	e.DELETE("/api/sprints/:id/issues/:issueId", h.RemoveIssue)
	e.GET("/api/sprints/:id/issues/count", h.CountIssues)
	e.GET("/api/sprints/:id/issues/:issueId", h.CheckIssue)
	e.POST("/api/sprint-issues/detach", h.DetachIssues)
}
