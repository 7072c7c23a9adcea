package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskHub/internal/importer"
	"TaskHub/internal/observability/metrics"
	"TaskHub/internal/task"
)

func newTestServer(t *testing.T) (*httptest.Server, *task.Service) {
	t.Helper()
	svc := task.NewService(task.NewMemoryStore(), nil)
	collector := metrics.New("")
	require.NoError(t, collector.RegisterTaskCount(func() int { return svc.Count(context.Background()) }))
	imp := importer.New(svc, importer.Config{MaxUploadBytes: 1024}, importer.WithRecorder(collector))
	srv := NewServer(svc, imp, Options{Metrics: collector, Version: "test"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, svc
}

func do(t *testing.T, method, url, contentType string, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func createTask(t *testing.T, base, title string) string {
	t.Helper()
	status, body := do(t, http.MethodPost, base+"/tasks", "application/json", `{"title":"`+title+`","description":"d"}`)
	require.Equal(t, http.StatusCreated, status)
	return body["id"].(string)
}

func TestCreateGetUpdateDelete(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, http.MethodPost, ts.URL+"/tasks", "application/json", `{"title":"  ","description":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "title must not be empty", body["error"])
	assert.Equal(t, "TASK_VALIDATION_FAILED", body["code"])

	id := createTask(t, ts.URL, "write tests")

	status, body = do(t, http.MethodGet, ts.URL+"/tasks/"+id, "", "")
	require.Equal(t, http.StatusOK, status)
	got := body["task"].(map[string]any)
	assert.Equal(t, "write tests", got["title"])
	assert.Equal(t, "medium", got["priority"])
	assert.Equal(t, []any{}, got["tags"])

	status, body = do(t, http.MethodPut, ts.URL+"/tasks/"+id, "application/json", `{"completed":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["task"].(map[string]any)["completed"])

	status, _ = do(t, http.MethodDelete, ts.URL+"/tasks/"+id, "", "")
	assert.Equal(t, http.StatusNoContent, status)

	status, body = do(t, http.MethodGet, ts.URL+"/tasks/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not found", body["error"])

	status, body = do(t, http.MethodGet, ts.URL+"/tasks/not-a-uuid", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid uuid", body["error"])
}

func TestListPaginationAndFilter(t *testing.T) {
	ts, svc := newTestServer(t)
	for i := 0; i < 5; i++ {
		id := createTask(t, ts.URL, "t")
		if i%2 == 0 {
			_, err := svc.Update(context.Background(), id, task.TaskUpdate{Completed: boolPtr(true)})
			require.NoError(t, err)
		}
	}

	status, body := do(t, http.MethodGet, ts.URL+"/tasks?completed=true&per_page=2&page=2&sort=created_at:desc", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 2, body["page"])
	assert.EqualValues(t, 2, body["per_page"])
	assert.Len(t, body["items"], 1)

	status, _ = do(t, http.MethodGet, ts.URL+"/tasks?completed=maybe", "", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, http.MethodGet, ts.URL+"/tasks/count", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 5, body["count"])
}

func TestTagsAndPriorityRoutes(t *testing.T) {
	ts, _ := newTestServer(t)
	id := createTask(t, ts.URL, "tagged")
	other := createTask(t, ts.URL, "other")

	status, body := do(t, http.MethodPut, ts.URL+"/tasks/"+id+"/tags", "application/json", `{"tags":["Feature","feature","Backend"]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"feature", "backend"}, body["task"].(map[string]any)["tags"])

	status, body = do(t, http.MethodPut, ts.URL+"/tasks/"+id+"/tags", "application/json", `{"tags":["valid","   "]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "tags must not contain empty entries", body["error"])

	status, body = do(t, http.MethodGet, ts.URL+"/tasks/"+id+"/tags", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"feature", "backend"}, body["tags"])

	status, body = do(t, http.MethodGet, ts.URL+"/tasks/search/by_tag?tag=BACKEND", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, _ = do(t, http.MethodGet, ts.URL+"/tasks/search/by_tag", "", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodPut, ts.URL+"/tasks/"+other+"/priority", "application/json", `{"priority":"HIGH"}`)
	require.Equal(t, http.StatusOK, status)

	status, body = do(t, http.MethodGet, ts.URL+"/tasks/"+other+"/priority", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "high", body["priority"])

	status, body = do(t, http.MethodPut, ts.URL+"/tasks/"+other+"/priority", "application/json", `{"priority":"urgent"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid priority: 'urgent'. Valid values: low, medium, high, critical", body["error"])

	status, body = do(t, http.MethodGet, ts.URL+"/tasks/search/by_priority?priority=high", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, body = do(t, http.MethodGet, ts.URL+"/tasks/search/by_priority", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "missing query parameter: priority", body["error"])

	status, body = do(t, http.MethodGet, ts.URL+"/tasks/stats", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["total"])
	assert.Len(t, body["tag_distribution"], 2)
}

func TestBulkDelete(t *testing.T) {
	ts, _ := newTestServer(t)
	a := createTask(t, ts.URL, "a")
	createTask(t, ts.URL, "b")

	payload := `["` + a + `","garbage","` + uuid.NewString() + `"]`
	status, body := do(t, http.MethodDelete, ts.URL+"/tasks", "application/json", payload)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["deleted"])

	status, _ = do(t, http.MethodDelete, ts.URL+"/tasks", "application/json", `{"ids":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestImportRoutes(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, http.MethodPost, ts.URL+"/tasks/import", "text/csv", "title,description\nOkay,desc1\n,missing-title\n")
	require.Equal(t, http.StatusCreated, status)
	assert.EqualValues(t, 1, body["imported"])
	assert.EqualValues(t, 1, body["failed"])
	rowErr := body["errors"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 2, rowErr["row"])
	_, hasIndex := rowErr["index"]
	assert.False(t, hasIndex)

	status, body = do(t, http.MethodPost, ts.URL+"/tasks/import", "application/xml", "<tasks/>")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "UNSUPPORTED_FORMAT", body["code"])

	status, body = do(t, http.MethodPost, ts.URL+"/tasks/import", "application/json", "{")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.True(t, strings.HasPrefix(body["error"].(string), "json parse error"))

	multipart := "--b\r\nContent-Disposition: form-data; name=\"file\"; filename=\"t.csv\"\r\n\r\ntitle,description\nA,1\r\n--b--\r\n"
	status, body = do(t, http.MethodPost, ts.URL+"/tasks/import/file", "multipart/form-data; boundary=b", multipart)
	require.Equal(t, http.StatusCreated, status)
	assert.EqualValues(t, 1, body["imported"])

	big := "--b\r\nContent-Disposition: form-data; name=\"file\"\r\n\r\n" + strings.Repeat("x", 2048) + "\r\n--b--\r\n"
	status, body = do(t, http.MethodPost, ts.URL+"/tasks/import/file", "multipart/form-data; boundary=b", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, "payload too large", body["error"])

	status, body = do(t, http.MethodPost, ts.URL+"/tasks/import/file", "text/csv", "title,description\n")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "expected multipart/form-data with boundary", body["error"])
}

func TestHealthInfoAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t)
	createTask(t, ts.URL, "counted")

	status, body := do(t, http.MethodGet, ts.URL+"/health", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = do(t, http.MethodGet, ts.URL+"/info", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "test", body["version"])

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `route="/health"`)
	assert.Contains(t, string(raw), "taskhub_tasks 1")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	svc := task.NewService(task.NewMemoryStore(), nil)
	srv := NewServer(svc, importer.New(svc, importer.Config{}), Options{ShutdownTimeout: time.Second})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func boolPtr(v bool) *bool { return &v }
