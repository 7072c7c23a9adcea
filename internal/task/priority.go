package task

import (
	"fmt"
	"strings"

	xerrors "TaskHub/internal/errors"
)

// Priority 表示任务优先级，按 low < medium < high < critical 全序排列。
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = map[Priority]string{
	PriorityLow:      "low",
	PriorityMedium:   "medium",
	PriorityHigh:     "high",
	PriorityCritical: "critical",
}

// ParsePriority 不区分大小写地解析优先级名称。
func ParsePriority(raw string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	}
	return 0, xerrors.New(CodeInvalidPriority,
		fmt.Sprintf("invalid priority: '%s'. Valid values: low, medium, high, critical", raw))
}

// String returns the lowercase name; the zero value reads as medium.
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return priorityNames[PriorityMedium]
}

// Rank 返回用于排序的数值，越大优先级越高。
func (p Priority) Rank() int {
	if _, ok := priorityNames[p]; !ok {
		return int(PriorityMedium)
	}
	return int(p)
}

// MarshalText 实现 encoding.TextMarshaler。
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
