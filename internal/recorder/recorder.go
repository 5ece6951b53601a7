// Package recorder превращает доменные события из шины в записи журнала
// активности. Вместо отдельного обработчика на каждый тип события используется
// одна декларативная таблица соответствий и общий обработчик сообщений.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/nsqio/go-nsq"
	"go.uber.org/zap"

	"github.com/untibullet/taskflow-backend/internal/events"
	"github.com/untibullet/taskflow-backend/internal/models"
	"github.com/untibullet/taskflow-backend/internal/repository"
)

// eventMapping описывает, как событие одного топика превращается в запись журнала.
// Действие либо фиксированное (action), либо берется из поля события (verbField) —
// второе используется для смены статуса задачи, где действием становится сам статус.
type eventMapping struct {
	topic       string
	entityType  string
	action      string
	verbField   string
	actorField  string
	entityField string
}

var eventTable = []eventMapping{
	{topic: events.TopicAttachmentCreated, entityType: models.EntityAttachment, action: "Created", actorField: "uploaderId", entityField: "attachmentId"},
	{topic: events.TopicAttachmentDeleted, entityType: models.EntityAttachment, action: "Deleted", actorField: "deleterId", entityField: "attachmentId"},
	{topic: events.TopicIssueAssigneeAdded, entityType: models.EntityIssueAssignee, action: "Added", actorField: "assignerId", entityField: "assignedUserId"},
	{topic: events.TopicIssueAssigneeRemoved, entityType: models.EntityIssueAssignee, action: "Removed", actorField: "removerId", entityField: "removedUserId"},
	{topic: events.TopicIssueCommentCreated, entityType: models.EntityIssueComment, action: "Created", actorField: "authorId", entityField: "commentId"},
	{topic: events.TopicIssueCommentDeleted, entityType: models.EntityIssueComment, action: "Deleted", actorField: "deleterId", entityField: "commentId"},
	{topic: events.TopicIssueCommentUpdated, entityType: models.EntityIssueComment, action: "Updated", actorField: "editorId", entityField: "commentId"},
	{topic: events.TopicIssueCreated, entityType: models.EntityIssue, action: "Created", actorField: "creatorId", entityField: "issueId"},
	{topic: events.TopicIssueDeleted, entityType: models.EntityIssue, action: "Deleted", actorField: "deleterId", entityField: "issueId"},
	{topic: events.TopicIssueStatusChanged, entityType: models.EntityIssue, verbField: "newStatus", actorField: "updaterId", entityField: "issueId"},
	{topic: events.TopicIssueUpdated, entityType: models.EntityIssue, action: "Updated", actorField: "updaterId", entityField: "issueId"},
	{topic: events.TopicProjectCreated, entityType: models.EntityProject, action: "Created", actorField: "creatorId", entityField: "projectId"},
	{topic: events.TopicProjectDeleted, entityType: models.EntityProject, action: "Deleted", actorField: "deleterId", entityField: "projectId"},
	{topic: events.TopicProjectMemberAdded, entityType: models.EntityProjectMember, action: "Added", actorField: "addedByUserId", entityField: "addedUserId"},
	{topic: events.TopicProjectMemberRemoved, entityType: models.EntityProjectMember, action: "Removed", actorField: "removedByUserId", entityField: "removedUserId"},
	{topic: events.TopicProjectUpdated, entityType: models.EntityProject, action: "Updated", actorField: "updaterId", entityField: "projectId"},
	{topic: events.TopicSprintCompleted, entityType: models.EntitySprint, action: "Completed", actorField: "completerId", entityField: "sprintId"},
	{topic: events.TopicSprintCreated, entityType: models.EntitySprint, action: "Created", actorField: "creatorId", entityField: "sprintId"},
	{topic: events.TopicSprintIssueAdded, entityType: models.EntitySprintIssue, action: "Added", actorField: "addedByUserId", entityField: "issueId"},
	{topic: events.TopicSprintIssueRemoved, entityType: models.EntitySprintIssue, action: "Removed", actorField: "removedByUserId", entityField: "issueId"},
	{topic: events.TopicSprintStarted, entityType: models.EntitySprint, action: "Started", actorField: "starterId", entityField: "sprintId"},
}

// toLog извлекает поля события и собирает запись журнала.
// Недостающее или нечитаемое поле — ошибка: такое сообщение уходит
// обратно транспорту на повторную доставку или в dead-letter.
func (m eventMapping) toLog(body []byte) (*models.ActivityLog, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode event body: %w", err)
	}

	projectID, err := int64Field(fields, "projectId")
	if err != nil {
		return nil, err
	}
	actorID, err := int64Field(fields, m.actorField)
	if err != nil {
		return nil, err
	}
	entityID, err := int64Field(fields, m.entityField)
	if err != nil {
		return nil, err
	}

	action := m.action
	if m.verbField != "" {
		action, err = stringField(fields, m.verbField)
		if err != nil {
			return nil, err
		}
	}

	return &models.ActivityLog{
		ProjectID:  projectID,
		UserID:     actorID,
		ActionType: action,
		EntityType: m.entityType,
		EntityID:   entityID,
	}, nil
}

func int64Field(fields map[string]json.RawMessage, name string) (int64, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("event is missing required field %q", name)
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("failed to decode event field %q: %w", name, err)
	}
	return v, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("event is missing required field %q", name)
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("failed to decode event field %q: %w", name, err)
	}
	return v, nil
}

// Recorder подписывается на все доменные события и пишет журнал активности
type Recorder struct {
	store  repository.ActivityStore
	logger *zap.Logger
}

func New(store repository.ActivityStore, logger *zap.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger,
	}
}

// handler реализует nsq.Handler для одного типа события
type handler struct {
	rec     *Recorder
	mapping eventMapping
}

// HandleMessage записывает ровно одну строку журнала на одно сообщение.
// Дедупликации нет: at-least-once доставка дает повторные записи.
func (h *handler) HandleMessage(msg *nsq.Message) error {
	entry, err := h.mapping.toLog(msg.Body)
	if err != nil {
		h.rec.logger.Warn("получено некорректное событие",
			zap.String("topic", h.mapping.topic),
			zap.Error(err))
		return err
	}

	h.rec.logger.Info("получено событие",
		zap.String("topic", h.mapping.topic),
		zap.Int64("project_id", entry.ProjectID),
		zap.String("entity_type", entry.EntityType),
		zap.Int64("entity_id", entry.EntityID))

	if _, err := h.rec.store.Create(context.Background(), entry); err != nil {
		h.rec.logger.Error("ошибка записи в журнал активности",
			zap.String("topic", h.mapping.topic),
			zap.Error(err))
		return err
	}
	return nil
}

// Subscribe создает по консьюмеру на каждый топик из таблицы соответствий
// и подключает их к nsqlookupd. Возвращает консьюмеров для остановки.
func (r *Recorder) Subscribe(lookupdAddrs []string, channel string) ([]*nsq.Consumer, error) {
	cfg := nsq.NewConfig()

	consumers := make([]*nsq.Consumer, 0, len(eventTable))
	for _, m := range eventTable {
		consumer, err := nsq.NewConsumer(m.topic, channel, cfg)
		if err != nil {
			stopConsumers(consumers)
			return nil, fmt.Errorf("failed to create consumer for topic %s: %w", m.topic, err)
		}
		consumer.SetLogger(log.New(os.Stdout, "nsq consumer: ", 0), nsq.LogLevelError)
		consumer.AddHandler(&handler{rec: r, mapping: m})

		if err := consumer.ConnectToNSQLookupds(lookupdAddrs); err != nil {
			consumer.Stop()
			stopConsumers(consumers)
			return nil, fmt.Errorf("failed to connect consumer for topic %s: %w", m.topic, err)
		}

		r.logger.Info("подписка на топик оформлена",
			zap.String("topic", m.topic),
			zap.String("channel", channel))
		consumers = append(consumers, consumer)
	}

	return consumers, nil
}

func stopConsumers(consumers []*nsq.Consumer) {
	for _, c := range consumers {
		c.Stop()
	}
}
