package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/untibullet/taskflow-backend/internal/models"
	"github.com/untibullet/taskflow-backend/internal/repository"
)

type ActivityHandler struct {
	store   repository.ActivityStore
	metrics repository.MetricsStore
	logger  *zap.Logger
}

// NewActivity создает обработчик API журнала активности и метрик проекта
func NewActivity(store repository.ActivityStore, metrics repository.MetricsStore, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// GetProjectActivity возвращает страницу журнала активности проекта
func (h *ActivityHandler) GetProjectActivity(c echo.Context) error {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid project id"))
	}
	page, pageSize := pageParams(c)

	logs, err := h.store.ListByProject(c.Request().Context(), projectID, page, pageSize)
	if err != nil {
		h.logger.Error("GetProjectActivity: ошибка получения журнала", zap.Error(err), zap.Int64("project_id", projectID))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to get project activity"))
	}
	if logs == nil {
		logs = []models.ActivityLog{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"page":       page,
		"page_size":  pageSize,
		"activity":   logs,
	})
}

// GetUserActivity возвращает страницу активности пользователя
func (h *ActivityHandler) GetUserActivity(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid user id"))
	}
	page, pageSize := pageParams(c)

	logs, err := h.store.ListByUser(c.Request().Context(), userID, page, pageSize)
	if err != nil {
		h.logger.Error("GetUserActivity: ошибка получения активности", zap.Error(err), zap.Int64("user_id", userID))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to get user activity"))
	}
	if logs == nil {
		logs = []models.ActivityLog{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id":   userID,
		"page":      page,
		"page_size": pageSize,
		"activity":  logs,
	})
}

// GetProjectMetrics считает метрики проекта по журналу активности.
// Последняя запись со статусным действием задачи определяет ее текущий статус;
// рассчитанные значения сохраняются как снимки для трендов.
func (h *ActivityHandler) GetProjectMetrics(c echo.Context) error {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid project id"))
	}
	ctx := c.Request().Context()

	total, err := h.metrics.CountCreatedIssues(ctx, projectID)
	if err != nil {
		h.logger.Error("GetProjectMetrics: ошибка подсчета задач", zap.Error(err), zap.Int64("project_id", projectID))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to calculate project metrics"))
	}

	statuses, err := h.metrics.LatestIssueStatuses(ctx, projectID)
	if err != nil {
		h.logger.Error("GetProjectMetrics: ошибка получения статусов задач", zap.Error(err), zap.Int64("project_id", projectID))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to calculate project metrics"))
	}

	var completed, todo, inProgress int
	for _, status := range statuses {
		switch status {
		case "DONE":
			completed++
		case "IN_PROGRESS":
			inProgress++
		case "TO_DO", "Created":
			todo++
		}
	}

	var completionRate float64
	if total > 0 {
		completionRate = float64(completed) / float64(total) * 100
	}

	metrics := map[string]float64{
		"total_issues":       float64(total),
		"completed_issues":   float64(completed),
		"todo_issues":        float64(todo),
		"in_progress_issues": float64(inProgress),
		"completion_rate":    completionRate,
	}

	// Снимки для трендов сохраняются по возможности: журнал первичен, тренд — нет
	if err := h.metrics.SaveMetricSnapshots(ctx, projectID, metrics); err != nil {
		h.logger.Error("GetProjectMetrics: ошибка сохранения снимков метрик", zap.Error(err), zap.Int64("project_id", projectID))
	}

	recent, err := h.store.ListByProject(ctx, projectID, 1, 10)
	if err != nil {
		h.logger.Error("GetProjectMetrics: ошибка получения журнала", zap.Error(err), zap.Int64("project_id", projectID))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to get project activity"))
	}
	if recent == nil {
		recent = []models.ActivityLog{}
	}

	h.logger.Info("GetProjectMetrics: метрики рассчитаны", zap.Int64("project_id", projectID))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"project_id":      projectID,
		"metrics":         metrics,
		"recent_activity": recent,
	})
}

// GetMetricTrend возвращает историю значений метрики проекта за период
func (h *ActivityHandler) GetMetricTrend(c echo.Context) error {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, "invalid project id"))
	}
	metricName := c.Param("metricName")

	from, to, err := trendRange(c)
	if err != nil {
		h.logger.Warn("GetMetricTrend: некорректный период", zap.Error(err))
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeInvalidInput, err.Error()))
	}

	points, err := h.metrics.ListMetricTrend(c.Request().Context(), projectID, metricName, from, to)
	if err != nil {
		h.logger.Error("GetMetricTrend: ошибка получения тренда", zap.Error(err),
			zap.Int64("project_id", projectID),
			zap.String("metric_name", metricName))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to get metric trend"))
	}
	if points == nil {
		points = []models.MetricPoint{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"project_id":  projectID,
		"metric_name": metricName,
		"points":      points,
	})
}

// trendRange разбирает границы периода тренда; без параметров период не ограничен
func trendRange(c echo.Context) (from, to time.Time, err error) {
	to = time.Now().UTC()
	if raw := c.QueryParam("from"); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, errors.New("from must be a date in YYYY-MM-DD format")
		}
	}
	if raw := c.QueryParam("to"); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, errors.New("to must be a date in YYYY-MM-DD format")
		}
		// Верхняя граница включает весь день
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return from, to, nil
}

// RegisterRoutes регистрирует маршруты API журнала активности
func (h *ActivityHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/activity/projects/:projectId", h.GetProjectActivity)
	e.GET("/api/activity/users/:userId", h.GetUserActivity)
	e.GET("/api/activity/projects/:projectId/metrics", h.GetProjectMetrics)
	e.GET("/api/activity/projects/:projectId/metrics/:metricName/trend", h.GetMetricTrend)
}
