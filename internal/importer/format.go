package importer

import (
	"strings"

	xerrors "TaskHub/internal/errors"
)

// Format 是从 Content-Type 解析出的导入格式。
type Format int

const (
	FormatJSON Format = iota + 1
	FormatCSV
	FormatMultipart
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatMultipart:
		return "multipart"
	default:
		return "unknown"
	}
}

// DetectFormat 只根据 Content-Type 决定一次格式，之后不再嗅探内容。
// 空值视为 JSON；同时提到 json 与 csv 的值被视为含糊而拒绝。
func DetectFormat(contentType string) (Format, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case ct == "":
		return FormatJSON, nil
	case strings.Contains(ct, "multipart/form-data"):
		return FormatMultipart, nil
	}
	hasJSON := strings.Contains(ct, "json")
	hasCSV := strings.Contains(ct, "csv")
	switch {
	case hasJSON && !hasCSV:
		return FormatJSON, nil
	case hasCSV && !hasJSON:
		return FormatCSV, nil
	}
	return 0, xerrors.New(CodeUnsupportedFormat, "unsupported content-type",
		xerrors.WithMetadata("content_type", contentType))
}
