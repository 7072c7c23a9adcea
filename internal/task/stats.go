package task

import (
	"sort"
	"time"
)

// topTagLimit 限制标签分布中返回的标签数量。
const topTagLimit = 10

// TagCount 是某个标签出现的次数。
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TaskStats 聚合了任务的统计信息，常用于仪表盘或健康检查。
type TaskStats struct {
	Total           int        `json:"total"`
	Completed       int        `json:"completed"`
	Incomplete      int        `json:"incomplete"`
	TagDistribution []TagCount `json:"tag_distribution"`
	OldestCreatedAt *time.Time `json:"oldest_created_at"`
	NewestCreatedAt *time.Time `json:"newest_created_at"`
}

// ComputeStats 基于快照计算统计信息。空快照的最早/最晚时间为 nil。
func ComputeStats(tasks []*Task) TaskStats {
	stats := TaskStats{Total: len(tasks), TagDistribution: []TagCount{}}

	counts := make(map[string]int)
	for _, t := range tasks {
		if t.Completed {
			stats.Completed++
		}
		for _, tag := range t.Tags {
			counts[tag]++
		}
		if stats.OldestCreatedAt == nil || t.CreatedAt.Before(*stats.OldestCreatedAt) {
			created := t.CreatedAt
			stats.OldestCreatedAt = &created
		}
		if stats.NewestCreatedAt == nil || t.CreatedAt.After(*stats.NewestCreatedAt) {
			created := t.CreatedAt
			stats.NewestCreatedAt = &created
		}
	}
	stats.Incomplete = stats.Total - stats.Completed

	for tag, n := range counts {
		stats.TagDistribution = append(stats.TagDistribution, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(stats.TagDistribution, func(i, j int) bool {
		a, b := stats.TagDistribution[i], stats.TagDistribution[j]
		if a.Count == b.Count {
			return a.Tag < b.Tag
		}
		return a.Count > b.Count
	})
	if len(stats.TagDistribution) > topTagLimit {
		stats.TagDistribution = stats.TagDistribution[:topTagLimit]
	}
	return stats
}
