package events

import (
	"context"
	"encoding/json"
	"time"
)

// Type 标识任务变更的种类。
type Type string

const (
	TypeTaskCreated     Type = "task.created"
	TypeTaskUpdated     Type = "task.updated"
	TypeTaskDeleted     Type = "task.deleted"
	TypeTasksDeleted    Type = "tasks.deleted"
	TypeTaskTagsSet     Type = "task.tags_set"
	TypeTaskPrioritySet Type = "task.priority_set"
	TypeTasksImported   Type = "tasks.imported"
)

// Event 描述一次已经生效的任务变更。
type Event struct {
	Type       Type      `json:"type"`
	TaskIDs    []string  `json:"task_ids,omitempty"`
	Count      int       `json:"count"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New 以当前时间构造事件。
func New(typ Type, ids ...string) Event {
	return Event{Type: typ, TaskIDs: ids, Count: len(ids), OccurredAt: time.Now().UTC()}
}

// Encode 将事件编码为 JSON，供远程发布器使用。
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher 负责把变更事件投递到外部。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop 丢弃所有事件。
type Nop struct{}

// Publish 实现 Publisher。
func (Nop) Publish(context.Context, Event) error { return nil }

// Close 实现 Publisher。
func (Nop) Close() error { return nil }
