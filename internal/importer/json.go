package importer

import (
	"encoding/json"
	"fmt"

	xerrors "TaskHub/internal/errors"
	"TaskHub/internal/task"
)

type jsonRow struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// parseJSON 解析任务数组。每个元素都必须带有 title 与 description 字段，
// 缺失视为结构错误；字段存在但不合法则只让该元素失败。
func parseJSON(body []byte) ([]candidate, error) {
	// encoding/json 会把非法字节替换为 U+FFFD，必须先行拒绝。
	if err := requireUTF8(body); err != nil {
		return nil, err
	}
	var items []jsonRow
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, xerrors.Wrap(CodeParseFailed, err, "json parse error: "+err.Error())
	}
	rows := make([]candidate, 0, len(items))
	for idx, item := range items {
		switch {
		case item.Title == nil:
			return nil, xerrors.New(CodeParseFailed,
				fmt.Sprintf("json parse error: missing field `title` at index %d", idx))
		case item.Description == nil:
			return nil, xerrors.New(CodeParseFailed,
				fmt.Sprintf("json parse error: missing field `description` at index %d", idx))
		}
		rows = append(rows, candidate{
			position: idx,
			create:   task.TaskCreate{Title: *item.Title, Description: *item.Description},
		})
	}
	return rows, nil
}
