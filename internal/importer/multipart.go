package importer

import (
	"fmt"
	"strings"

	xerrors "TaskHub/internal/errors"
)

// parseMultipart 在解析前检查大小上限，然后按边界切分正文，取第一个
// name="<file_field>" 的分段作为 CSV 交给 CSV 分支处理。
func (i *Importer) parseMultipart(contentType string, body []byte) ([]candidate, error) {
	if int64(len(body)) > i.cfg.MaxUploadBytes {
		return nil, xerrors.New(xerrors.CodePayloadTooLarge, "payload too large",
			xerrors.WithMetadata("limit_bytes", fmt.Sprint(i.cfg.MaxUploadBytes)))
	}

	boundary := boundaryOf(contentType)
	if !strings.Contains(strings.ToLower(contentType), "multipart/form-data") || boundary == "" {
		return nil, xerrors.New(CodeParseFailed, "expected multipart/form-data with boundary")
	}
	if err := requireUTF8(body); err != nil {
		return nil, err
	}

	content, ok := filePart(string(body), "--"+boundary, i.cfg.FileField)
	if !ok {
		return nil, xerrors.New(CodeParseFailed, "file part not found")
	}
	return parseCSVBody([]byte(content))
}

func boundaryOf(contentType string) string {
	idx := strings.Index(contentType, "boundary=")
	if idx < 0 {
		return ""
	}
	boundary := contentType[idx+len("boundary="):]
	if end := strings.IndexByte(boundary, ';'); end >= 0 {
		boundary = boundary[:end]
	}
	return strings.Trim(strings.TrimSpace(boundary), `"`)
}

func filePart(raw, marker, field string) (string, bool) {
	needle := fmt.Sprintf("name=%q", field)
	for _, part := range strings.Split(raw, marker) {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" || trimmed == "--" {
			continue
		}
		headerEnd := strings.Index(part, "\r\n\r\n")
		sep := 4
		if headerEnd < 0 {
			headerEnd = strings.Index(part, "\n\n")
			sep = 2
		}
		if headerEnd < 0 || !strings.Contains(part[:headerEnd], needle) {
			continue
		}
		content := part[headerEnd+sep:]
		switch {
		case strings.HasSuffix(content, "\r\n"):
			content = content[:len(content)-2]
		case strings.HasSuffix(content, "\n"):
			content = content[:len(content)-1]
		}
		return content, true
	}
	return "", false
}
