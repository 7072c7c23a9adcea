package task

import "github.com/google/uuid"

// Store 抽象了任务记录的并发安全容器。每个方法单独保证原子性，方法之间不存在事务。
type Store interface {
	Insert(task *Task)
	Get(id uuid.UUID) (*Task, error)
	List() []*Task
	ListSortedByCreatedAt(desc bool) []*Task
	Update(id uuid.UUID, upd TaskUpdate) (*Task, error)
	// Mutate 在写锁内对任务副本执行 fn；fn 返回错误时存储保持不变。
	Mutate(id uuid.UUID, fn func(*Task) error) (*Task, error)
	Remove(id uuid.UUID) bool
	RemoveMany(ids []uuid.UUID) int
	InsertMany(creates []TaskCreate) []*Task
	Count() int
}
