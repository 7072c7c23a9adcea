package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	xerrors "TaskHub/internal/errors"
	"TaskHub/internal/task"
)

type taskEnvelope struct {
	Task *task.Task `json:"task"`
}

type tagsPayload struct {
	Tags []string `json:"tags"`
}

type priorityPayload struct {
	Priority string `json:"priority"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "taskhub",
		"version": s.opts.Version,
		"desc":    "In-memory task record service",
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in task.TaskCreate
	if err := s.decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.tasks.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.tasks.List(r.Context(), opts...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// listOptions 解析 completed、page、per_page、sort 查询参数。
func listOptions(r *http.Request) ([]task.ListOption, error) {
	query := r.URL.Query()
	var opts []task.ListOption
	if raw := query.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, badRequest("completed must be true or false")
		}
		opts = append(opts, task.WithCompleted(completed))
	}
	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return nil, badRequest("page must be an integer")
		}
		opts = append(opts, task.WithPage(page))
	}
	if raw := query.Get("per_page"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return nil, badRequest("per_page must be an integer")
		}
		opts = append(opts, task.WithPageSize(size))
	}
	if raw := query.Get("sort"); raw != "" {
		opts = append(opts, task.WithSort(raw))
	}
	return opts, nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	found, err := s.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskEnvelope{Task: found})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := task.ParseID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	var upd task.TaskUpdate
	if err := s.decodeJSON(r, &upd); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.tasks.Update(r.Context(), id, upd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskEnvelope{Task: updated})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := s.decodeJSON(r, &ids); err != nil {
		s.writeError(w, r, err)
		return
	}
	deleted := s.tasks.BulkDelete(r.Context(), ids)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": s.tasks.Count(r.Context())})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tasks.Stats(r.Context()))
}

func (s *Server) handleGetTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tasks.GetTags(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagsPayload{Tags: tags})
}

func (s *Server) handleSetTags(w http.ResponseWriter, r *http.Request) {
	var payload tagsPayload
	if err := s.decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	if payload.Tags == nil {
		payload.Tags = []string{}
	}
	updated, err := s.tasks.SetTags(r.Context(), chi.URLParam(r, "id"), payload.Tags)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskEnvelope{Task: updated})
}

func (s *Server) handleSearchByTag(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("tag") {
		s.writeError(w, r, badRequest("missing query parameter: tag"))
		return
	}
	writeJSON(w, http.StatusOK, s.tasks.SearchByTag(r.Context(), query.Get("tag")))
}

func (s *Server) handleGetPriority(w http.ResponseWriter, r *http.Request) {
	priority, err := s.tasks.GetPriority(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]task.Priority{"priority": priority})
}

func (s *Server) handleSetPriority(w http.ResponseWriter, r *http.Request) {
	var payload priorityPayload
	if err := s.decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.tasks.SetPriority(r.Context(), chi.URLParam(r, "id"), payload.Priority)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskEnvelope{Task: updated})
}

func (s *Server) handleSearchByPriority(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("priority") {
		s.writeError(w, r, badRequest("missing query parameter: priority"))
		return
	}
	result, err := s.tasks.SearchByPriority(r.Context(), query.Get("priority"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.importer.Import(r.Context(), r.Header.Get("Content-Type"), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) handleImportFile(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.importer.ImportFile(r.Context(), r.Header.Get("Content-Type"), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// readBody 最多读取 MaxBodyBytes 字节，超出时返回 PAYLOAD_TOO_LARGE。
func (s *Server) readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, badRequest("failed to read request body")
	}
	if int64(len(body)) > s.opts.MaxBodyBytes {
		return nil, xerrors.New(xerrors.CodePayloadTooLarge, "payload too large")
	}
	return body, nil
}

func (s *Server) decodeJSON(r *http.Request, dst any) error {
	body, err := s.readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}
