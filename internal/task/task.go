package task

import (
	"time"

	"github.com/google/uuid"

	xerrors "TaskHub/internal/errors"
)

// Task 是存储在内存中的任务记录。
type Task struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	// UpdatedAt 在每次变更时重新打点。
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []string  `json:"tags"`
	Priority  Priority  `json:"priority"`
}

// TaskCreate 是创建任务时的输入。
type TaskCreate struct {
	Title       string `json:"title" validate:"notblank"`
	Description string `json:"description"`
}

// TaskUpdate 是部分更新的输入，nil 字段保持原值。
type TaskUpdate struct {
	Title       *string `json:"title,omitempty" validate:"omitnil,notblank"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// NewTask 生成带新 ID 与时间戳的任务。
func NewTask(title, description string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Tags:        []string{},
		Priority:    PriorityMedium,
	}
}

// apply 将部分更新写入任务并刷新 UpdatedAt。
func (t *Task) apply(upd TaskUpdate) {
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Completed != nil {
		t.Completed = *upd.Completed
	}
	t.touch()
}

// touch keeps UpdatedAt >= CreatedAt even if the wall clock steps backwards.
func (t *Task) touch() {
	now := time.Now().UTC()
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}

func cloneTask(task *Task) *Task {
	clone := *task
	clone.Tags = cloneTags(task.Tags)
	return &clone
}

func cloneTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

var (
	// ErrTaskNotFound 表示指定的任务不存在。
	ErrTaskNotFound = xerrors.New(CodeTaskNotFound, "not found")
	// ErrInvalidID 表示任务 ID 不是合法的 UUID。
	ErrInvalidID = xerrors.New(xerrors.CodeInvalidID, "invalid uuid")
)

const (
	CodeTaskNotFound    xerrors.Code = "TASK_NOT_FOUND"
	CodeTaskValidation  xerrors.Code = "TASK_VALIDATION_FAILED"
	CodeInvalidPriority xerrors.Code = "INVALID_PRIORITY"
)

func init() {
	xerrors.Register(CodeTaskNotFound, xerrors.Attributes{
		Message:  "not found",
		Severity: xerrors.SeverityInfo,
		Kind:     xerrors.KindNotFound,
	})
	xerrors.Register(CodeTaskValidation, xerrors.Attributes{
		Message:  "task validation failed",
		Severity: xerrors.SeverityInfo,
		Kind:     xerrors.KindValidation,
	})
	xerrors.Register(CodeInvalidPriority, xerrors.Attributes{
		Message:  "invalid priority",
		Severity: xerrors.SeverityInfo,
		Kind:     xerrors.KindValidation,
	})
}

// ParseID 校验并解析任务 ID。
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidID
	}
	return id, nil
}
