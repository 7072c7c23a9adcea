package importer

import (
	"bytes"
	"encoding/csv"
	stdErrors "errors"
	"io"
	"strings"

	xerrors "TaskHub/internal/errors"
	"TaskHub/internal/task"
)

// parseCSVBody 要求首行为表头且包含 title 与 description 两列，其余列忽略。
// 行号从 1 开始，不计表头。
func parseCSVBody(body []byte) ([]candidate, error) {
	if err := requireUTF8(body); err != nil {
		return nil, err
	}
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if stdErrors.Is(err, io.EOF) {
			return nil, xerrors.New(CodeParseFailed, "csv parse error: missing header row")
		}
		return nil, xerrors.Wrap(CodeParseFailed, err, "csv parse error: "+err.Error())
	}
	titleCol, descCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "title":
			if titleCol < 0 {
				titleCol = i
			}
		case "description":
			if descCol < 0 {
				descCol = i
			}
		}
	}
	if titleCol < 0 || descCol < 0 {
		return nil, xerrors.New(CodeParseFailed, "csv parse error: header must contain title and description")
	}

	var rows []candidate
	for row := 1; ; row++ {
		record, err := reader.Read()
		if stdErrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rows = append(rows, candidate{position: row, parseErr: "csv parse error: " + err.Error()})
			continue
		}
		if len(record) <= titleCol || len(record) <= descCol {
			rows = append(rows, candidate{
				position: row,
				parseErr: "csv parse error: record has fewer fields than the header",
			})
			continue
		}
		rows = append(rows, candidate{
			position: row,
			create:   task.TaskCreate{Title: record[titleCol], Description: record[descCol]},
		})
	}
	return rows, nil
}
