package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// mockSource is a test source that returns predefined tasks.
type mockSource struct {
	typ      Type
	patterns []string
	tasks    []*Task
	err      error
	panics   bool
}

func (s *mockSource) Type() Type         { return s.typ }
func (s *mockSource) Patterns() []string { return s.patterns }
func (s *mockSource) Discover(ctx context.Context, ws *Workspace) ([]*Task, error) {
	if s.panics {
		panic("boom")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.tasks, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDiscoverAll_ErrorTolerantJoin(t *testing.T) {
	dir := t.TempDir()
	good := &mockSource{
		typ:   TypeMake,
		tasks: []*Task{New(TypeMake, filepath.Join(dir, "Makefile"), "build")},
	}
	failing := &mockSource{typ: TypeNPM, err: errors.New("read failed")}
	panicking := &mockSource{typ: TypeCargo, panics: true}

	d := NewDiscoverer(WithSources(good, failing, panicking))
	result, err := d.DiscoverAll(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("DiscoverAll() error = %v", err)
	}

	if result.Count(TypeMake) != 1 {
		t.Errorf("make count = %d, want 1", result.Count(TypeMake))
	}
	if result.Count(TypeNPM) != 0 || result.Count(TypeCargo) != 0 {
		t.Error("failed sources should contribute nothing")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("got %d source errors, want 2", len(result.Errors))
	}

	var panicked bool
	for _, serr := range result.Errors {
		if serr.Source == TypeCargo && errors.Is(serr, ErrSourcePanic) {
			panicked = true
		}
	}
	if !panicked {
		t.Error("panicking source not recorded with ErrSourcePanic")
	}
}

func TestDiscoverAll_Finalize(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "web", "package.json")
	src := &mockSource{
		typ: TypeNPM,
		tasks: []*Task{
			{Label: "build", FilePath: file, Command: "npm run build"},
			{Label: "build", FilePath: file, Command: "npm run build"},
			{Label: "test", FilePath: file, Command: "npm run test", Category: "custom"},
		},
	}

	d := NewDiscoverer(WithSource(src))
	result, err := d.DiscoverAll(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("DiscoverAll() error = %v", err)
	}

	tasks := result.BySource[TypeNPM]
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2 after dedup", len(tasks))
	}
	if tasks[0].ID != GenerateID(TypeNPM, file, "build") {
		t.Errorf("ID = %q", tasks[0].ID)
	}
	if tasks[0].Type != TypeNPM {
		t.Errorf("Type = %q, want npm", tasks[0].Type)
	}
	if tasks[0].Category != "web" {
		t.Errorf("Category = %q, want web", tasks[0].Category)
	}
	if tasks[1].Category != "custom" {
		t.Errorf("explicit Category overwritten: %q", tasks[1].Category)
	}
}

func TestDiscoverAll_InvalidRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	writeFile(t, file, "x")

	d := NewDiscoverer()
	if _, err := d.DiscoverAll(context.Background(), file, nil); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("error = %v, want ErrNotDirectory", err)
	}
	if _, err := d.DiscoverAll(context.Background(), dir, []string{"[unclosed"}); !errors.Is(err, ErrInvalidExclude) {
		t.Errorf("error = %v, want ErrInvalidExclude", err)
	}
}

func TestFlatten_PriorityOrder(t *testing.T) {
	r := &DiscoveryResult{BySource: map[Type][]*Task{
		TypeMake:  {{ID: "make:1"}},
		TypeShell: {{ID: "shell:1"}},
		TypeNPM:   {{ID: "npm:1"}, {ID: "npm:2"}},
		Type("x"): {{ID: "x:1"}},
	}}

	var ids []string
	for _, task := range Flatten(r) {
		ids = append(ids, task.ID)
	}
	want := []string{"shell:1", "npm:1", "npm:2", "make:1", "x:1"}
	if !slices.Equal(ids, want) {
		t.Errorf("Flatten order = %v, want %v", ids, want)
	}
	if r.Total() != 5 {
		t.Errorf("Total() = %d, want 5", r.Total())
	}
	if Flatten(nil) != nil {
		t.Error("Flatten(nil) should be nil")
	}
}

func TestDiscoverer_Patterns(t *testing.T) {
	d := NewDiscoverer(WithSources(
		&mockSource{typ: TypeMake, patterns: []string{"Makefile", "*.mk"}},
		&mockSource{typ: TypeShell, patterns: []string{"*.sh", "*.mk"}},
	))
	want := []string{"Makefile", "*.mk", "*.sh"}
	if got := d.Patterns(); !slices.Equal(got, want) {
		t.Errorf("Patterns() = %v, want %v", got, want)
	}
	if got := d.Sources(); !slices.Equal(got, []Type{TypeMake, TypeShell}) {
		t.Errorf("Sources() = %v", got)
	}
}
