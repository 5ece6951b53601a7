// Package sweeper выполняет периодический перевод статусов спринтов:
// planned -> active при наступлении даты начала, active -> completed
// после даты окончания.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/jasonlvhit/gocron"
	"go.uber.org/zap"

	"github.com/untibullet/taskflow-backend/internal/events"
	"github.com/untibullet/taskflow-backend/internal/models"
	"github.com/untibullet/taskflow-backend/internal/repository"
)

// Store — часть хранилища спринтов, нужная свиперу
type Store interface {
	ListPlannedToStart(ctx context.Context, today time.Time) ([]models.Sprint, error)
	ListActiveExpired(ctx context.Context, today time.Time) ([]models.Sprint, error)
	SetStatus(ctx context.Context, id int64, from, to string) (*models.Sprint, error)
}

// Sweeper запускает проходы по расписанию и публикует события переходов
// от имени системного пользователя
type Sweeper struct {
	store     Store
	publisher events.Publisher
	logger    *zap.Logger
	interval  uint64
}

func New(store Store, publisher events.Publisher, logger *zap.Logger, intervalMinutes uint64) *Sweeper {
	if intervalMinutes == 0 {
		intervalMinutes = 1
	}
	return &Sweeper{
		store:     store,
		publisher: publisher,
		logger:    logger,
		interval:  intervalMinutes,
	}
}

// Run выполняет первый проход сразу и далее по расписанию до отмены контекста
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	// Запланированные проходы наследуют контекст Run: при остановке сервиса
	// запросы незавершенного прохода отменяются вместе с ним
	scheduler := gocron.NewScheduler()
	if err := scheduler.Every(s.interval).Minutes().Do(func() {
		s.Sweep(ctx)
	}); err != nil {
		s.logger.Error("ошибка планирования прохода", zap.Error(err))
		return
	}

	stop := scheduler.Start()
	<-ctx.Done()
	close(stop)
}

// Sweep выполняет один проход. Оба списка кандидатов выбираются до применения
// переходов, поэтому за один проход спринт продвигается не более чем на один
// статус: только что активированный спринт завершится не раньше следующего
// прохода. Ошибки по отдельным спринтам логируются, остальные обрабатываются.
func (s *Sweeper) Sweep(ctx context.Context) {
	today := models.Today()

	toStart, err := s.store.ListPlannedToStart(ctx, today)
	if err != nil {
		s.logger.Error("ошибка выборки спринтов для автоматического старта", zap.Error(err))
	}
	toComplete, err := s.store.ListActiveExpired(ctx, today)
	if err != nil {
		s.logger.Error("ошибка выборки истекших спринтов", zap.Error(err))
	}

	for _, sprint := range toStart {
		if !s.transition(ctx, sprint, models.SprintStatusPlanned, models.SprintStatusActive) {
			continue
		}
		s.logger.Info("автоматически стартован спринт",
			zap.Int64("sprint_id", sprint.ID),
			zap.Int64("project_id", sprint.ProjectID))
		s.publish(events.TopicSprintStarted, events.SprintStartedEvent{
			ProjectID:    sprint.ProjectID,
			SprintID:     sprint.ID,
			StarterID:    models.SystemUserID,
			StartedAtUTC: time.Now().UTC(),
		})
	}

	for _, sprint := range toComplete {
		if !s.transition(ctx, sprint, models.SprintStatusActive, models.SprintStatusCompleted) {
			continue
		}
		s.logger.Info("автоматически завершен спринт",
			zap.Int64("sprint_id", sprint.ID),
			zap.Int64("project_id", sprint.ProjectID))
		s.publish(events.TopicSprintCompleted, events.SprintCompletedEvent{
			ProjectID:      sprint.ProjectID,
			SprintID:       sprint.ID,
			CompleterID:    models.SystemUserID,
			CompletedAtUTC: time.Now().UTC(),
		})
	}
}

func (s *Sweeper) transition(ctx context.Context, sprint models.Sprint, from, to string) bool {
	_, err := s.store.SetStatus(ctx, sprint.ID, from, to)
	if err != nil {
		// Параллельный проход или удаление могли успеть раньше — это не ошибка
		if errors.Is(err, repository.ErrInvalidTransition) || errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("спринт уже переведен другим проходом",
				zap.Int64("sprint_id", sprint.ID))
			return false
		}
		s.logger.Error("ошибка перевода статуса спринта",
			zap.Int64("sprint_id", sprint.ID),
			zap.Error(err))
		return false
	}
	return true
}

func (s *Sweeper) publish(topic string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(topic, event); err != nil {
		s.logger.Error("ошибка публикации события",
			zap.String("topic", topic),
			zap.Error(err))
	}
}
