package task

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	xerrors "TaskHub/internal/errors"
	"TaskHub/internal/events"
	"TaskHub/pkg/logger"
)

// Service 是任务存储之上的业务入口：校验输入、调用存储、记录审计日志并发布变更事件。
type Service struct {
	store     Store
	publisher events.Publisher
	log       *slog.Logger
}

// NewService 构造任务服务。publisher 为 nil 时不发布事件。
func NewService(store Store, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{store: store, publisher: publisher, log: logger.Named("task")}
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "任务存储未初始化")
	}
	return nil
}

// Create 校验并创建一个任务。
func (s *Service) Create(ctx context.Context, in TaskCreate) (*Task, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	task := NewTask(in.Title, in.Description)
	s.store.Insert(task)

	logger.Audit().Info("task_created",
		slog.String("task_id", task.ID.String()),
		slog.String("title", task.Title),
	)
	s.publish(ctx, events.New(events.TypeTaskCreated, task.ID.String()))
	return cloneTask(task), nil
}

// CreateMany 按输入顺序插入已经校验过的创建请求，供批量导入使用。
func (s *Service) CreateMany(ctx context.Context, creates []TaskCreate) []*Task {
	if s.ready() != nil || len(creates) == 0 {
		return []*Task{}
	}
	created := s.store.InsertMany(creates)

	ids := make([]string, 0, len(created))
	for _, t := range created {
		ids = append(ids, t.ID.String())
	}
	logger.Audit().Info("tasks_imported", slog.Int("count", len(created)))
	s.publish(ctx, events.New(events.TypeTasksImported, ids...))
	return created
}

// List 返回排序、过滤、分页后的任务。
func (s *Service) List(ctx context.Context, opts ...ListOption) (Page, error) {
	if err := s.ready(); err != nil {
		return Page{}, err
	}
	return Query(s.store, buildListOptions(opts)), nil
}

// Get 返回指定任务。
func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	taskID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.Get(taskID)
}

// Update 对任务执行部分更新。未提供任何字段时只刷新 UpdatedAt。
func (s *Service) Update(ctx context.Context, id string, upd TaskUpdate) (*Task, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	taskID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	task, err := s.store.Update(taskID, upd)
	if err != nil {
		return nil, err
	}

	logger.Audit().Info("task_updated",
		slog.String("task_id", task.ID.String()),
		slog.Bool("title_changed", upd.Title != nil),
		slog.Bool("description_changed", upd.Description != nil),
		slog.Bool("completed_changed", upd.Completed != nil),
	)
	s.publish(ctx, events.New(events.TypeTaskUpdated, task.ID.String()))
	return task, nil
}

// Delete 删除任务。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	taskID, err := ParseID(id)
	if err != nil {
		return err
	}
	if !s.store.Remove(taskID) {
		return ErrTaskNotFound
	}
	logger.Audit().Info("task_deleted", slog.String("task_id", taskID.String()))
	s.publish(ctx, events.New(events.TypeTaskDeleted, taskID.String()))
	return nil
}

// BulkDelete 尽力删除 ids 中的任务，非法或不存在的 ID 被跳过，返回实际删除的数量。
func (s *Service) BulkDelete(ctx context.Context, ids []string) int {
	if s.ready() != nil {
		return 0
	}
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := ParseID(raw)
		if err != nil {
			continue
		}
		parsed = append(parsed, id)
	}
	removed := s.store.RemoveMany(parsed)

	logger.Audit().Info("tasks_bulk_deleted",
		slog.Int("requested", len(ids)),
		slog.Int("deleted", removed),
	)
	if removed > 0 {
		event := events.New(events.TypeTasksDeleted)
		event.Count = removed
		s.publish(ctx, event)
	}
	return removed
}

// SetTags 校验并规范化标签后整体替换任务的标签集合。校验失败时任务保持不变。
func (s *Service) SetTags(ctx context.Context, id string, tags []string) (*Task, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	taskID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTags(tags); err != nil {
		return nil, err
	}
	normalized := NormalizeTags(tags)
	task, err := s.store.Mutate(taskID, func(t *Task) error {
		t.Tags = cloneTags(normalized)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Audit().Info("task_tags_set",
		slog.String("task_id", task.ID.String()),
		slog.Any("tags", task.Tags),
	)
	s.publish(ctx, events.New(events.TypeTaskTagsSet, task.ID.String()))
	return task, nil
}

// GetTags 返回任务的标签。
func (s *Service) GetTags(ctx context.Context, id string) ([]string, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return task.Tags, nil
}

// SearchByTag 返回带有指定标签的任务，按创建时间升序。
func (s *Service) SearchByTag(ctx context.Context, tag string) SearchResult {
	if s.ready() != nil {
		return SearchResult{Items: []*Task{}}
	}
	return SearchByTag(s.store.ListSortedByCreatedAt(false), tag)
}

// SetPriority 解析并设置任务优先级。
func (s *Service) SetPriority(ctx context.Context, id string, raw string) (*Task, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	taskID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	priority, err := ParsePriority(raw)
	if err != nil {
		return nil, err
	}
	task, err := s.store.Mutate(taskID, func(t *Task) error {
		t.Priority = priority
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Audit().Info("task_priority_set",
		slog.String("task_id", task.ID.String()),
		slog.String("priority", priority.String()),
	)
	s.publish(ctx, events.New(events.TypeTaskPrioritySet, task.ID.String()))
	return task, nil
}

// GetPriority 返回任务优先级。
func (s *Service) GetPriority(ctx context.Context, id string) (Priority, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return task.Priority, nil
}

// SearchByPriority 返回指定优先级的任务，按创建时间升序。
func (s *Service) SearchByPriority(ctx context.Context, raw string) (SearchResult, error) {
	if err := s.ready(); err != nil {
		return SearchResult{}, err
	}
	priority, err := ParsePriority(raw)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchByPriority(s.store.ListSortedByCreatedAt(false), priority), nil
}

// Stats 返回当前快照的统计信息。
func (s *Service) Stats(ctx context.Context) TaskStats {
	if s.ready() != nil {
		return ComputeStats(nil)
	}
	return ComputeStats(s.store.List())
}

// Count 返回任务数量。
func (s *Service) Count(ctx context.Context) int {
	if s.ready() != nil {
		return 0
	}
	return s.store.Count()
}

// Close 释放事件发布器。
func (s *Service) Close() error {
	if s == nil || s.publisher == nil {
		return nil
	}
	return s.publisher.Close()
}

// publish 投递事件；失败只记录日志，不影响已经生效的变更。
func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("发布任务事件失败",
			slog.String("type", string(event.Type)),
			slog.Any("error", xerrors.Wrap(xerrors.CodePublishFailure, err, "publish event")),
		)
	}
}
