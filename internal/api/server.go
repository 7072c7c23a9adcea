package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"TaskHub/internal/importer"
	"TaskHub/internal/observability/metrics"
	"TaskHub/internal/task"
	"TaskHub/pkg/logger"
)

const defaultMaxBodyBytes int64 = 32 << 20

// TaskService 是 HTTP 层依赖的任务操作集合，由 task.Service 实现。
type TaskService interface {
	Create(ctx context.Context, in task.TaskCreate) (*task.Task, error)
	List(ctx context.Context, opts ...task.ListOption) (task.Page, error)
	Get(ctx context.Context, id string) (*task.Task, error)
	Update(ctx context.Context, id string, upd task.TaskUpdate) (*task.Task, error)
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, ids []string) int
	SetTags(ctx context.Context, id string, tags []string) (*task.Task, error)
	GetTags(ctx context.Context, id string) ([]string, error)
	SearchByTag(ctx context.Context, tag string) task.SearchResult
	SetPriority(ctx context.Context, id string, raw string) (*task.Task, error)
	GetPriority(ctx context.Context, id string) (task.Priority, error)
	SearchByPriority(ctx context.Context, raw string) (task.SearchResult, error)
	Stats(ctx context.Context) task.TaskStats
	Count(ctx context.Context) int
}

// Importer 处理批量导入请求，由 importer.Importer 实现。
type Importer interface {
	Import(ctx context.Context, contentType string, body []byte) (*importer.Report, error)
	ImportFile(ctx context.Context, contentType string, body []byte) (*importer.Report, error)
}

// Options 配置 Server。
type Options struct {
	Address           string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	// MaxBodyBytes 限制读取的请求体大小；multipart 的上限由 Importer 单独检查。
	MaxBodyBytes int64
	// Metrics 为 nil 时不记录指标，也不注册 MetricsPath。
	Metrics     *metrics.Collector
	MetricsPath string
	Version     string
}

// Server 负责暴露任务 REST 接口。
type Server struct {
	opts     Options
	tasks    TaskService
	importer Importer
	log      *slog.Logger
	handler  http.Handler
}

// NewServer 构造 API 服务实例。
func NewServer(tasks TaskService, imp Importer, opts Options) *Server {
	if opts.Address == "" {
		opts.Address = ":8080"
	}
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 5 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{opts: opts, tasks: tasks, importer: imp, log: logger.Named("api")}
	s.handler = s.routes()
	return s
}

// Handler 返回完整的路由，便于测试或嵌入其他服务。
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Get("/info", s.handleInfo)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, s.opts.MetricsPath, s.opts.Metrics.Handler())
	}

	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Delete("/", s.handleBulkDelete)

		r.Post("/import", s.handleImport)
		r.Post("/import/file", s.handleImportFile)
		r.Get("/count", s.handleCount)
		r.Get("/stats", s.handleStats)
		r.Get("/search/by_tag", s.handleSearchByTag)
		r.Get("/search/by_priority", s.handleSearchByPriority)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Put("/", s.handleUpdate)
			r.Delete("/", s.handleDelete)
			r.Get("/tags", s.handleGetTags)
			r.Put("/tags", s.handleSetTags)
			r.Get("/priority", s.handleGetPriority)
			r.Put("/priority", s.handleSetPriority)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return r
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve 在给定 listener 上提供服务；上下文取消后优雅关闭。
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("HTTP 服务已启动", slog.String("address", listener.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("HTTP 服务关闭超时", slog.Any("error", err))
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
