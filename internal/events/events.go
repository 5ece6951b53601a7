// Package events содержит контракты доменных событий, публикуемых сервисами
// в шину NSQ. Имена JSON-полей зафиксированы протоколом и не меняются.
package events

import "time"

// Топики NSQ: один топик на тип события
const (
	TopicAttachmentCreated    = "attachment_created"
	TopicAttachmentDeleted    = "attachment_deleted"
	TopicIssueAssigneeAdded   = "issue_assignee_added"
	TopicIssueAssigneeRemoved = "issue_assignee_removed"
	TopicIssueCommentCreated  = "issue_comment_created"
	TopicIssueCommentDeleted  = "issue_comment_deleted"
	TopicIssueCommentUpdated  = "issue_comment_updated"
	TopicIssueCreated         = "issue_created"
	TopicIssueDeleted         = "issue_deleted"
	TopicIssueStatusChanged   = "issue_status_changed"
	TopicIssueUpdated         = "issue_updated"
	TopicProjectCreated       = "project_created"
	TopicProjectDeleted       = "project_deleted"
	TopicProjectMemberAdded   = "project_member_added"
	TopicProjectMemberRemoved = "project_member_removed"
	TopicProjectUpdated       = "project_updated"
	TopicSprintCompleted      = "sprint_completed"
	TopicSprintCreated        = "sprint_created"
	TopicSprintIssueAdded     = "sprint_issue_added"
	TopicSprintIssueRemoved   = "sprint_issue_removed"
	TopicSprintStarted        = "sprint_started"
)

// AllTopics возвращает все известные топики доменных событий
func AllTopics() []string {
	return []string{
		TopicAttachmentCreated,
		TopicAttachmentDeleted,
		TopicIssueAssigneeAdded,
		TopicIssueAssigneeRemoved,
		TopicIssueCommentCreated,
		TopicIssueCommentDeleted,
		TopicIssueCommentUpdated,
		TopicIssueCreated,
		TopicIssueDeleted,
		TopicIssueStatusChanged,
		TopicIssueUpdated,
		TopicProjectCreated,
		TopicProjectDeleted,
		TopicProjectMemberAdded,
		TopicProjectMemberRemoved,
		TopicProjectUpdated,
		TopicSprintCompleted,
		TopicSprintCreated,
		TopicSprintIssueAdded,
		TopicSprintIssueRemoved,
		TopicSprintStarted,
	}
}

type AttachmentCreatedEvent struct {
	ProjectID    int64     `json:"projectId"`
	IssueID      int64     `json:"issueId"`
	CommentID    *int64    `json:"commentId,omitempty"`
	AttachmentID int64     `json:"attachmentId"`
	UploaderID   int64     `json:"uploaderId"`
	CreatedAtUTC time.Time `json:"createdAtUtc"`
}

type AttachmentDeletedEvent struct {
	ProjectID    int64     `json:"projectId"`
	IssueID      int64     `json:"issueId"`
	AttachmentID int64     `json:"attachmentId"`
	DeleterID    int64     `json:"deleterId"`
	DeletedAtUTC time.Time `json:"DeletedAtUtc"`
}

type IssueAssigneeAddedEvent struct {
	ProjectID      int64     `json:"projectId"`
	IssueID        int64     `json:"issueId"`
	AssignedUserID int64     `json:"assignedUserId"`
	AssignerID     int64     `json:"assignerId"`
	AssignedAtUTC  time.Time `json:"assignedAtUtc"`
}

type IssueAssigneeRemovedEvent struct {
	ProjectID     int64     `json:"projectId"`
	IssueID       int64     `json:"issueId"`
	RemovedUserID int64     `json:"removedUserId"`
	RemoverID     int64     `json:"removerId"`
	RemovedAtUTC  time.Time `json:"removedAtUtc"`
}

type IssueCommentCreatedEvent struct {
	ProjectID    int64     `json:"projectId"`
	IssueID      int64     `json:"issueId"`
	CommentID    int64     `json:"commentId"`
	AuthorID     int64     `json:"authorId"`
	CreatedAtUTC time.Time `json:"createdAtUtc"`
}

type IssueCommentDeletedEvent struct {
	ProjectID    int64     `json:"projectId"`
	IssueID      int64     `json:"issueId"`
	CommentID    int64     `json:"commentId"`
	DeleterID    int64     `json:"deleterId"`
	DeletedAtUTC time.Time `json:"deletedAtUtc"`
}

type IssueCommentUpdatedEvent struct {
	ProjectID    int64     `json:"projectId"`
	IssueID      int64     `json:"issueId"`
	CommentID    int64     `json:"commentId"`
	EditorID     int64     `json:"editorId"`
	UpdatedAtUTC time.Time `json:"updatedAtUtc"`
}

type IssueCreatedEvent struct {
	ProjectID    int64     `json:"projectId"`
	IssueID      int64     `json:"issueId"`
	CreatorID    int64     `json:"creatorId"`
	CreatedAtUTC time.Time `json:"createdAtUtc"`
}

type IssueDeletedEvent struct {
	ProjectID    int64     `json:"projectId"`
	IssueID      int64     `json:"issueId"`
	DeleterID    int64     `json:"deleterId"`
	DeletedAtUTC time.Time `json:"deletedAtUtc"`
}

type IssueStatusChangedEvent struct {
	ProjectID    int64     `json:"projectId"`
	IssueID      int64     `json:"issueId"`
	UpdaterID    int64     `json:"updaterId"`
	OldStatus    string    `json:"oldStatus"`
	NewStatus    string    `json:"newStatus"`
	ChangedAtUTC time.Time `json:"changedAtUtc"`
}

type IssueUpdatedEvent struct {
	ProjectID    int64     `json:"projectId"`
	IssueID      int64     `json:"issueId"`
	UpdaterID    int64     `json:"updaterId"`
	UpdatedAtUTC time.Time `json:"updatedAtUtc"`
}

type ProjectCreatedEvent struct {
	ProjectID    int64     `json:"projectId"`
	ProjectName  string    `json:"projectName"`
	CreatorID    int64     `json:"creatorId"`
	CreatedAtUTC time.Time `json:"createdAtUtc"`
}

type ProjectDeletedEvent struct {
	ProjectID    int64     `json:"projectId"`
	DeleterID    int64     `json:"deleterId"`
	DeletedAtUTC time.Time `json:"deletedAtUtc"`
}

type ProjectMemberAddedEvent struct {
	ProjectID     int64     `json:"projectId"`
	AddedUserID   int64     `json:"addedUserId"`
	AddedByUserID int64     `json:"addedByUserId"`
	AddedAtUTC    time.Time `json:"addedAtUtc"`
}

type ProjectMemberRemovedEvent struct {
	ProjectID       int64     `json:"projectId"`
	RemovedUserID   int64     `json:"removedUserId"`
	RemovedByUserID int64     `json:"removedByUserId"`
	RemovedAtUTC    time.Time `json:"removedAtUtc"`
}

type ProjectUpdatedEvent struct {
	ProjectID    int64     `json:"projectId"`
	UpdaterID    int64     `json:"updaterId"`
	UpdatedAtUTC time.Time `json:"updatedAtUtc"`
}

type SprintCompletedEvent struct {
	ProjectID      int64     `json:"projectId"`
	SprintID       int64     `json:"sprintId"`
	CompleterID    int64     `json:"completerId"`
	CompletedAtUTC time.Time `json:"completedAtUtc"`
}

type SprintCreatedEvent struct {
	ProjectID    int64     `json:"projectId"`
	SprintID     int64     `json:"sprintId"`
	CreatorID    int64     `json:"creatorId"`
	CreatedAtUTC time.Time `json:"createdAtUtc"`
}

type SprintIssueAddedEvent struct {
	ProjectID     int64     `json:"projectId"`
	SprintID      int64     `json:"sprintId"`
	IssueID       int64     `json:"issueId"`
	AddedByUserID int64     `json:"addedByUserId"`
	AddedAtUTC    time.Time `json:"addedAtUtc"`
}

type SprintIssueRemovedEvent struct {
	ProjectID       int64     `json:"projectId"`
	SprintID        int64     `json:"sprintId"`
	IssueID         int64     `json:"issueId"`
	RemovedByUserID int64     `json:"removedByUserId"`
	RemovedAtUTC    time.Time `json:"RemovedAtUtc"`
}

type SprintStartedEvent struct {
	ProjectID    int64     `json:"projectId"`
	SprintID     int64     `json:"sprintId"`
	StarterID    int64     `json:"starterId"`
	StartedAtUTC time.Time `json:"startedAtUtc"`
}
