package importer

import (
	"context"
	"log/slog"
	"unicode/utf8"

	xerrors "TaskHub/internal/errors"
	"TaskHub/internal/task"
	"TaskHub/pkg/logger"
)

const (
	// DefaultMaxUploadBytes 是 multipart 上传的默认上限（5 MiB）。
	DefaultMaxUploadBytes int64 = 5 << 20
	// DefaultFileField 是 multipart 中承载 CSV 的表单字段名。
	DefaultFileField = "file"
)

const (
	CodeUnsupportedFormat xerrors.Code = "UNSUPPORTED_FORMAT"
	CodeParseFailed       xerrors.Code = "IMPORT_PARSE_FAILED"
)

func init() {
	xerrors.Register(CodeUnsupportedFormat, xerrors.Attributes{
		Message:  "unsupported content-type",
		Severity: xerrors.SeverityInfo,
		Kind:     xerrors.KindValidation,
	})
	xerrors.Register(CodeParseFailed, xerrors.Attributes{
		Message:  "import payload could not be parsed",
		Severity: xerrors.SeverityInfo,
		Kind:     xerrors.KindParse,
	})
}

// Creator 批量插入已校验的创建请求。task.Service 实现了该接口。
type Creator interface {
	CreateMany(ctx context.Context, creates []task.TaskCreate) []*task.Task
}

// Recorder 接收每次导入的行数统计。
type Recorder interface {
	ObserveImport(format string, imported, failed int)
}

// Config 控制导入行为。
type Config struct {
	MaxUploadBytes int64  `yaml:"max_upload_bytes" json:"max_upload_bytes"`
	FileField      string `yaml:"file_field" json:"file_field"`
}

// RowError 描述单条记录的失败原因。CSV/multipart 使用从 1 开始的 Row，JSON 使用从 0 开始的 Index。
type RowError struct {
	Row   *int   `json:"row,omitempty"`
	Index *int   `json:"index,omitempty"`
	Error string `json:"error"`
}

// Report 是部分成功的导入结果。
type Report struct {
	Imported int          `json:"imported"`
	Failed   int          `json:"failed"`
	Errors   []RowError   `json:"errors"`
	Tasks    []*task.Task `json:"tasks"`
}

// candidate 是某个格式分支解析出的一条记录；parseErr 非空时该记录已失败。
type candidate struct {
	position int
	create   task.TaskCreate
	parseErr string
}

// Importer 把 JSON、CSV 或 multipart 载荷转换为任务。
type Importer struct {
	creator  Creator
	cfg      Config
	recorder Recorder
	log      *slog.Logger
}

// Option 定制 Importer。
type Option func(*Importer)

// WithRecorder 设置行数统计接收方。
func WithRecorder(r Recorder) Option {
	return func(i *Importer) {
		i.recorder = r
	}
}

// New 创建 Importer。
func New(creator Creator, cfg Config, opts ...Option) *Importer {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.FileField == "" {
		cfg.FileField = DefaultFileField
	}
	imp := &Importer{creator: creator, cfg: cfg, log: logger.Named("importer")}
	for _, opt := range opts {
		if opt != nil {
			opt(imp)
		}
	}
	return imp
}

// Import 按 Content-Type 选择格式并导入。结构性错误会拒绝整个请求且不写入任何任务。
func (i *Importer) Import(ctx context.Context, contentType string, body []byte) (*Report, error) {
	format, err := DetectFormat(contentType)
	if err != nil {
		return nil, err
	}
	return i.importAs(ctx, format, contentType, body)
}

// ImportFile 只接受 multipart/form-data 上传。
func (i *Importer) ImportFile(ctx context.Context, contentType string, body []byte) (*Report, error) {
	return i.importAs(ctx, FormatMultipart, contentType, body)
}

func (i *Importer) importAs(ctx context.Context, format Format, contentType string, body []byte) (*Report, error) {
	if i == nil || i.creator == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "importer not initialized")
	}

	var (
		rows []candidate
		err  error
	)
	switch format {
	case FormatJSON:
		rows, err = parseJSON(body)
	case FormatCSV:
		rows, err = parseCSVBody(body)
	case FormatMultipart:
		rows, err = i.parseMultipart(contentType, body)
	default:
		err = xerrors.New(CodeUnsupportedFormat, "unsupported content-type")
	}
	if err != nil {
		i.log.Info("导入请求被拒绝",
			slog.String("format", format.String()),
			slog.String("code", string(xerrors.CodeOf(err))),
		)
		return nil, err
	}

	report := i.commit(ctx, format, rows)
	if i.recorder != nil {
		i.recorder.ObserveImport(format.String(), report.Imported, report.Failed)
	}
	i.log.Info("导入完成",
		slog.String("format", format.String()),
		slog.Int("imported", report.Imported),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

// commit 校验全部候选记录，并在一次调用中按原始顺序插入合法记录。
func (i *Importer) commit(ctx context.Context, format Format, rows []candidate) *Report {
	report := &Report{Errors: []RowError{}, Tasks: []*task.Task{}}
	valid := make([]task.TaskCreate, 0, len(rows))
	for _, row := range rows {
		msg := row.parseErr
		if msg == "" {
			if err := row.create.Validate(); err != nil {
				msg = xerrors.MessageOf(err)
			}
		}
		if msg != "" {
			report.Errors = append(report.Errors, rowError(format, row.position, msg))
			continue
		}
		valid = append(valid, row.create)
	}
	if len(valid) > 0 {
		report.Tasks = i.creator.CreateMany(ctx, valid)
	}
	report.Imported = len(report.Tasks)
	report.Failed = len(report.Errors)
	return report
}

func rowError(format Format, position int, msg string) RowError {
	pos := position
	if format == FormatJSON {
		return RowError{Index: &pos, Error: msg}
	}
	return RowError{Row: &pos, Error: msg}
}

func requireUTF8(body []byte) error {
	if !utf8.Valid(body) {
		return xerrors.New(CodeParseFailed, "invalid utf8 in body")
	}
	return nil
}
