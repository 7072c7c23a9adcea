package task

import "sort"

// Page 是分页查询的结果。Total 为分页之前（过滤之后）的数量。
type Page struct {
	Items    []*Task `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"per_page"`
}

// SearchResult 是标签或优先级检索的结果。
type SearchResult struct {
	Items []*Task `json:"items"`
	Total int     `json:"total"`
}

// Query sorts, filters and paginates a snapshot, in that order.
func Query(store Store, opts ListOptions) Page {
	opts.applyDefaults()

	var items []*Task
	switch opts.SortKey {
	case SortByPriority:
		items = store.ListSortedByCreatedAt(false)
		SortByPriorityRank(items, opts.Desc)
	default:
		items = store.ListSortedByCreatedAt(opts.Desc)
	}

	if opts.Completed != nil {
		items = FilterByCompletion(items, *opts.Completed)
	}

	return Paginate(items, opts.Page, opts.PageSize)
}

// FilterByCompletion keeps tasks whose completion flag equals completed,
// preserving their order.
func FilterByCompletion(tasks []*Task, completed bool) []*Task {
	out := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed == completed {
			out = append(out, t)
		}
	}
	return out
}

// SortByPriorityRank orders tasks by priority. The sort is stable, so tasks
// with equal priority keep their incoming relative order.
func SortByPriorityRank(tasks []*Task, desc bool) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if desc {
			return tasks[i].Priority.Rank() > tasks[j].Priority.Rank()
		}
		return tasks[i].Priority.Rank() < tasks[j].Priority.Rank()
	})
}

// Paginate cuts the window [size*(page-1), min(size*page, total)) out of tasks.
// page and size are clamped first and the effective values are reported.
func Paginate(tasks []*Task, page, size int) Page {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	total := len(tasks)
	result := Page{Items: []*Task{}, Total: total, Page: page, PageSize: size}

	// 超大页码时避免 size*(page-1) 溢出。
	if page-1 > total/size {
		return result
	}
	start := size * (page - 1)
	if start >= total {
		return result
	}
	end := start + size
	if end > total {
		end = total
	}
	result.Items = tasks[start:end]
	return result
}

// SearchByTag returns tasks that carry tag, ignoring case. Tasks without tags
// never match.
func SearchByTag(tasks []*Task, tag string) SearchResult {
	tag = normalizeTag(tag)
	items := make([]*Task, 0)
	for _, t := range tasks {
		if hasTag(t, tag) {
			items = append(items, t)
		}
	}
	return SearchResult{Items: items, Total: len(items)}
}

// SearchByPriority returns tasks whose priority equals p.
func SearchByPriority(tasks []*Task, p Priority) SearchResult {
	items := make([]*Task, 0)
	for _, t := range tasks {
		if t.Priority.Rank() == p.Rank() {
			items = append(items, t)
		}
	}
	return SearchResult{Items: items, Total: len(items)}
}
