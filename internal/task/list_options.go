package task

import "strings"

const (
	// DefaultPageSize is used when the caller does not ask for a page size.
	DefaultPageSize = 20
	// MaxPageSize caps every page regardless of the request.
	MaxPageSize = 100
)

// SortKey names the field tasks are ordered by.
type SortKey string

const (
	SortByCreatedAt SortKey = "created_at"
	SortByPriority  SortKey = "priority"
)

// ListOptions controls how tasks are selected when listing.
type ListOptions struct {
	Page      int
	PageSize  int
	Completed *bool
	SortKey   SortKey
	Desc      bool
}

// applyDefaults clamps page and page size into their valid ranges.
func (opts *ListOptions) applyDefaults() {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 1
	}
	if opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.SortKey != SortByPriority {
		opts.SortKey = SortByCreatedAt
	}
}

// ListOption mutates ListOptions.
type ListOption func(*ListOptions)

// WithPage selects the 1-based page.
func WithPage(page int) ListOption {
	return func(opts *ListOptions) {
		opts.Page = page
	}
}

// WithPageSize sets the page size; it is clamped to [1, MaxPageSize].
func WithPageSize(size int) ListOption {
	return func(opts *ListOptions) {
		opts.PageSize = size
	}
}

// WithCompleted keeps only tasks whose completion flag equals completed.
func WithCompleted(completed bool) ListOption {
	return func(opts *ListOptions) {
		opts.Completed = new(bool)
		*opts.Completed = completed
	}
}

// WithSort applies a sort directive such as "created_at:desc" or "priority:asc".
func WithSort(directive string) ListOption {
	return func(opts *ListOptions) {
		opts.SortKey, opts.Desc = ParseSort(directive)
	}
}

// ParseSort splits a "field[:asc|:desc]" directive. Unknown fields fall back
// to creation time ascending.
func ParseSort(directive string) (SortKey, bool) {
	directive = strings.ToLower(strings.TrimSpace(directive))
	field, order, _ := strings.Cut(directive, ":")
	desc := order == "desc"
	switch SortKey(field) {
	case SortByPriority:
		return SortByPriority, desc
	case SortByCreatedAt:
		return SortByCreatedAt, desc
	default:
		return SortByCreatedAt, false
	}
}

// buildListOptions applies option functions on top of defaults.
func buildListOptions(opts []ListOption) ListOptions {
	options := ListOptions{Page: 1, PageSize: DefaultPageSize, SortKey: SortByCreatedAt}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	options.applyDefaults()
	return options
}
