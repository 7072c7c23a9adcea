package task

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore 以内存 map 保存任务，整个 map 由一把读写锁保护。
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[uuid.UUID]*Task)}
}

// Insert 按 ID 插入或覆盖任务。
func (m *MemoryStore) Insert(task *Task) {
	if task == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = cloneTask(task)
}

// Get 返回任务副本。
func (m *MemoryStore) Get(id uuid.UUID) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// List 返回全部任务的快照，顺序不作保证。
func (m *MemoryStore) List() []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// ListSortedByCreatedAt 返回按创建时间排序的快照，时间相同的按 ID 排序。
func (m *MemoryStore) ListSortedByCreatedAt(desc bool) []*Task {
	m.mu.RLock()
	results := m.snapshotLocked()
	m.mu.RUnlock()

	sortByCreatedAt(results, desc)
	return results
}

// Update 只写入 upd 中出现的字段，并刷新 UpdatedAt。
func (m *MemoryStore) Update(id uuid.UUID, upd TaskUpdate) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	task.apply(upd)
	return cloneTask(task), nil
}

// Mutate 在持有写锁期间读取、修改并写回任务，避免“读取-修改-写回”之间被其他写入打断。
func (m *MemoryStore) Mutate(id uuid.UUID, fn func(*Task) error) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	working := cloneTask(task)
	if err := fn(working); err != nil {
		return nil, err
	}
	// ID 与创建时间不可变。
	working.ID = task.ID
	working.CreatedAt = task.CreatedAt
	working.touch()
	m.tasks[id] = working
	return cloneTask(working), nil
}

// Remove 删除任务，返回任务此前是否存在。
func (m *MemoryStore) Remove(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return false
	}
	delete(m.tasks, id)
	return true
}

// RemoveMany 尽力删除给定的任务，不存在的 ID 会被跳过。
func (m *MemoryStore) RemoveMany(ids []uuid.UUID) int {
	if len(ids) == 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for _, id := range ids {
		if _, ok := m.tasks[id]; ok {
			delete(m.tasks, id)
			removed++
		}
	}
	return removed
}

// InsertMany 按输入顺序为每个创建请求生成任务。调用方负责事先校验。
func (m *MemoryStore) InsertMany(creates []TaskCreate) []*Task {
	created := make([]*Task, 0, len(creates))
	if len(creates) == 0 {
		return created
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range creates {
		task := NewTask(c.Title, c.Description)
		m.tasks[task.ID] = task
		created = append(created, cloneTask(task))
	}
	return created
}

// Count 返回当前任务数量。
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}

func (m *MemoryStore) snapshotLocked() []*Task {
	results := make([]*Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		results = append(results, cloneTask(task))
	}
	return results
}

func sortByCreatedAt(tasks []*Task, desc bool) {
	sort.Slice(tasks, func(i, j int) bool {
		c := compareCreated(tasks[i], tasks[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// compareCreated orders by CreatedAt, then by ID so that equal timestamps
// still have a total order and desc is exactly the reverse of asc.
func compareCreated(a, b *Task) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// ensure interface compliance at compile time
var _ Store = (*MemoryStore)(nil)
