package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/dshills/tasktree/internal/provider"
	"github.com/dshills/tasktree/internal/tags"
	"github.com/dshills/tasktree/internal/tags/store"
	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/sources"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	root    string
	server  *Server
	handler http.Handler
}

func newFixture(t *testing.T, resolver tags.Resolver) *fixture {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"package.json":     `{"scripts": {"build": "tsc", "test": "jest"}}`,
		"Makefile":         "clean:\n\trm -rf dist\n",
		"tools/Makefile":   "lint:\n\tgolint\n",
		"scripts/setup.sh": "#!/bin/sh\n# Prepare the machine\necho hi\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if resolver == nil {
		resolver = tags.NewPatternResolver(filepath.Join(root, tags.DefaultFile))
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	disc := task.NewDiscoverer(task.WithSources(sources.All("")...), task.WithLogger(logger))
	p := provider.New(root, disc, resolver, provider.WithLogger(logger))
	s := NewServer(p, logger)
	return &fixture{root: root, server: s, handler: s.Handler()}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

type taskList struct {
	Tasks []*task.Task `json:"tasks"`
	Count int          `json:"count"`
}

func (f *fixture) id(typ task.Type, rel, name string) string {
	return task.GenerateID(typ, filepath.Join(f.root, filepath.FromSlash(rel)), name)
}

func TestListTasks(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/tasks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	list := decode[taskList](t, w)
	if list.Count != 5 || len(list.Tasks) != 5 {
		t.Errorf("count = %d, tasks = %d, want 5", list.Count, len(list.Tasks))
	}
}

func TestGetTask(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/refresh", nil)

	id := f.id(task.TypeNPM, "package.json", "build")
	w := f.do(t, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	got := decode[task.Task](t, w)
	if got.Command != "npm run build" {
		t.Errorf("command = %q", got.Command)
	}

	w = f.do(t, http.MethodGet, "/api/tasks/"+url.PathEscape("npm:/missing:x"), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing task status = %d", w.Code)
	}
	if decode[map[string]string](t, w)["error"] == "" {
		t.Error("missing error message")
	}
}

func TestFilter(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPut, "/api/filter", filterRequest{Text: "test"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	list := decode[taskList](t, f.do(t, http.MethodGet, "/api/tasks", nil))
	if len(list.Tasks) != 1 || list.Tasks[0].Label != "test" {
		t.Errorf("filtered tasks = %+v", list.Tasks)
	}
	all := decode[taskList](t, f.do(t, http.MethodGet, "/api/tasks?all=true", nil))
	if all.Count != 5 {
		t.Errorf("all count = %d", all.Count)
	}

	if w := f.do(t, http.MethodDelete, "/api/filter", nil); w.Code != http.StatusNoContent {
		t.Errorf("clear status = %d", w.Code)
	}
	list = decode[taskList](t, f.do(t, http.MethodGet, "/api/tasks", nil))
	if list.Count != 5 {
		t.Errorf("count after clear = %d", list.Count)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/filter", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", rec.Code)
	}
}

type nodeJSON struct {
	ID       string     `json:"id"`
	Kind     string     `json:"kind"`
	Label    string     `json:"label"`
	Children []nodeJSON `json:"children"`
}

func TestTree(t *testing.T) {
	f := newFixture(t, nil)

	top := decode[struct {
		Nodes []nodeJSON `json:"nodes"`
		Sort  string     `json:"sort"`
	}](t, f.do(t, http.MethodGet, "/api/tree", nil))
	if len(top.Nodes) != 3 || top.Sort != "folder" {
		t.Fatalf("top = %+v", top)
	}
	var makeID string
	for _, n := range top.Nodes {
		if n.Kind != "category" {
			t.Errorf("top node %q kind = %s", n.Label, n.Kind)
		}
		if n.ID == "category:make" {
			makeID = n.ID
		}
	}
	if makeID == "" {
		t.Fatal("no make category")
	}

	w := f.do(t, http.MethodGet, "/api/tree?node="+url.QueryEscape(makeID), nil)
	children := decode[struct {
		Nodes []nodeJSON `json:"nodes"`
	}](t, w)
	// Two make files in separate directories, one target each: both inlined.
	if len(children.Nodes) != 2 || children.Nodes[0].Kind != "task" {
		t.Errorf("make children = %+v", children.Nodes)
	}

	if w := f.do(t, http.MethodGet, "/api/tree?node=category:bogus", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown node status = %d", w.Code)
	}
}

func TestTags_ReadOnly(t *testing.T) {
	f := newFixture(t, nil)
	id := f.id(task.TypeNPM, "package.json", "build")

	w := f.do(t, http.MethodPost, "/api/tags/quick/tasks", memberRequest{ID: id})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestTags_Junction(t *testing.T) {
	f := newFixture(t, tags.NewJunctionResolver(store.NewMemory()))
	f.do(t, http.MethodPost, "/api/refresh", nil)

	build := f.id(task.TypeNPM, "package.json", "build")
	clean := f.id(task.TypeMake, "Makefile", "clean")
	for _, id := range []string{build, clean} {
		if w := f.do(t, http.MethodPost, "/api/tags/quick/tasks", memberRequest{ID: id}); w.Code != http.StatusNoContent {
			t.Fatalf("add status = %d, body = %s", w.Code, w.Body)
		}
	}
	if w := f.do(t, http.MethodPost, "/api/tags/quick/tasks", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing id status = %d", w.Code)
	}

	if w := f.do(t, http.MethodPut, "/api/tags/quick/order", orderRequest{IDs: []string{clean, build}}); w.Code != http.StatusNoContent {
		t.Fatalf("reorder status = %d, body = %s", w.Code, w.Body)
	}
	quick := decode[taskList](t, f.do(t, http.MethodGet, "/api/quick", nil))
	if len(quick.Tasks) != 2 || quick.Tasks[0].Label != "clean" {
		t.Errorf("quick = %+v", quick.Tasks)
	}

	if w := f.do(t, http.MethodPut, "/api/tags/nope/order", orderRequest{IDs: []string{build}}); w.Code != http.StatusNotFound {
		t.Errorf("unknown tag status = %d", w.Code)
	}

	w := f.do(t, http.MethodDelete, "/api/tags/quick/tasks/"+url.PathEscape(clean), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d", w.Code)
	}
	quick = decode[taskList](t, f.do(t, http.MethodGet, "/api/quick", nil))
	if len(quick.Tasks) != 1 {
		t.Errorf("quick after remove = %d tasks", len(quick.Tasks))
	}

	names := decode[map[string][]string](t, f.do(t, http.MethodGet, "/api/tags", nil))
	if len(names["tags"]) != 1 || names["tags"][0] != "quick" {
		t.Errorf("tags = %v", names)
	}
}

func TestRun_Shutdown(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Run(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
