package tree

import (
	"slices"
	"testing"

	"github.com/dshills/tasktree/internal/task"
)

const root = "/repo"

func mk(typ task.Type, rel, label string) *task.Task {
	return task.New(typ, root+"/"+rel, label)
}

func nodeLabels(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label
	}
	return out
}

func TestBuild_SingleTaskInlined(t *testing.T) {
	nodes := Build(root, []*task.Task{mk(task.TypeNPM, "package.json", "build")}, SortFolder)
	if len(nodes) != 1 || nodes[0].Kind != KindTask || nodes[0].Label != "build" {
		t.Fatalf("nodes = %+v, want one inlined task", nodes)
	}
}

func TestBuild_FolderWrapper(t *testing.T) {
	tests := []struct {
		name  string
		tasks []*task.Task
		kinds []Kind
		want  []string
	}{
		{
			name: "two tasks in root dir",
			tasks: []*task.Task{
				mk(task.TypeNPM, "package.json", "test"),
				mk(task.TypeNPM, "package.json", "build"),
			},
			kinds: []Kind{KindFolder},
			want:  []string{"root"},
		},
		{
			name: "separate dirs with one task each",
			tasks: []*task.Task{
				mk(task.TypeNPM, "web/package.json", "dev"),
				mk(task.TypeNPM, "api/package.json", "start"),
			},
			kinds: []Kind{KindTask, KindTask},
			want:  []string{"start", "dev"},
		},
		{
			name: "one task with a subdirectory",
			tasks: []*task.Task{
				mk(task.TypeMake, "svc/Makefile", "all"),
				mk(task.TypeMake, "svc/sub/Makefile", "inner"),
			},
			kinds: []Kind{KindFolder},
			want:  []string{"svc"},
		},
		{
			name: "folder and inlined task",
			tasks: []*task.Task{
				mk(task.TypeMake, "z/Makefile", "one"),
				mk(task.TypeMake, "a/Makefile", "x"),
				mk(task.TypeMake, "a/Makefile", "y"),
			},
			kinds: []Kind{KindFolder, KindTask},
			want:  []string{"a", "one"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := Build(root, tt.tasks, SortFolder)
			if got := nodeLabels(nodes); !slices.Equal(got, tt.want) {
				t.Fatalf("labels = %v, want %v", got, tt.want)
			}
			for i, n := range nodes {
				if n.Kind != tt.kinds[i] {
					t.Errorf("node %q kind = %v, want %v", n.Label, n.Kind, tt.kinds[i])
				}
			}
		})
	}
}

func TestBuild_Nesting(t *testing.T) {
	tasks := []*task.Task{
		mk(task.TypeNPM, "packages/web/package.json", "build"),
		mk(task.TypeNPM, "packages/web/src/app/package.json", "serve"),
		mk(task.TypeNPM, "packages/web/src/app/package.json", "lint"),
		mk(task.TypeNPM, "packages/web/e2e/package.json", "e2e"),
	}
	nodes := Build(root, tasks, SortFolder)
	if len(nodes) != 1 {
		t.Fatalf("got %d top level nodes", len(nodes))
	}
	web := nodes[0]
	if web.Kind != KindFolder || web.Label != "packages/web" || web.Dir != "packages/web" {
		t.Fatalf("web = %+v", web)
	}
	if web.Description != "4 tasks" {
		t.Errorf("description = %q", web.Description)
	}
	// Folders first, then tasks; nested labels relative to the parent.
	if got := nodeLabels(web.Children); !slices.Equal(got, []string{"e2e", "src/app", "build"}) {
		t.Fatalf("children = %v", got)
	}
	app := web.Children[1]
	if app.Kind != KindFolder || app.ID != FolderID(task.TypeNPM, "packages/web/src/app") {
		t.Errorf("app = %+v", app)
	}
	if got := nodeLabels(app.Children); !slices.Equal(got, []string{"lint", "serve"}) {
		t.Errorf("app children = %v", got)
	}
	// Even a single nested task keeps its folder.
	if e2e := web.Children[0]; e2e.Kind != KindFolder || len(e2e.Children) != 1 {
		t.Errorf("e2e = %+v", e2e)
	}

	if Find(nodes, app.ID) != app {
		t.Error("Find did not locate the nested folder")
	}
	if Find(nodes, tasks[1].ID) == nil {
		t.Error("Find did not locate a task")
	}
}

func TestBuild_OutsideRoot(t *testing.T) {
	tasks := []*task.Task{
		task.New(task.TypeShell, "/elsewhere/a.sh", "a.sh"),
		task.New(task.TypeShell, "/repo/b.sh", "b.sh"),
	}
	nodes := Build(root, tasks, SortName)
	if len(nodes) != 1 || nodes[0].Label != "root" || len(nodes[0].Children) != 2 {
		t.Fatalf("nodes = %+v, want both tasks under root", nodes)
	}
}

func TestFolderLabel(t *testing.T) {
	tests := map[string]string{
		"":                 "root",
		"web":              "web",
		"a/b/c":            "a/b/c",
		"a/b/c/d":          "a/.../d",
		"services/x/y/z/w": "services/.../w",
	}
	for dir, want := range tests {
		if got := FolderLabel(dir); got != want {
			t.Errorf("FolderLabel(%q) = %q, want %q", dir, got, want)
		}
	}
}

func TestBuild_DeepFolderAbbreviated(t *testing.T) {
	tasks := []*task.Task{
		mk(task.TypeMake, "a/b/c/d/Makefile", "x"),
		mk(task.TypeMake, "a/b/c/d/Makefile", "y"),
	}
	nodes := Build(root, tasks, SortFolder)
	if len(nodes) != 1 || nodes[0].Label != "a/.../d" || nodes[0].Dir != "a/b/c/d" {
		t.Fatalf("nodes = %+v", nodes)
	}
}

func TestSortTasks(t *testing.T) {
	tasks := []*task.Task{
		mk(task.TypeNPM, "web/package.json", "task10"),
		mk(task.TypeMake, "Makefile", "beta"),
		mk(task.TypeNPM, "web/package.json", "task2"),
		mk(task.TypeShell, "Alpha.sh", "Alpha"),
	}

	tests := []struct {
		order SortOrder
		want  []string
	}{
		{SortName, []string{"Alpha", "beta", "task2", "task10"}},
		{SortFolder, []string{"Alpha", "beta", "task2", "task10"}},
		{SortType, []string{"beta", "task2", "task10", "Alpha"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			sorted := slices.Clone(tasks)
			SortTasks(root, sorted, tt.order)
			var got []string
			for _, tk := range sorted {
				got = append(got, tk.Label)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlat(t *testing.T) {
	tasks := []*task.Task{
		task.New(task.TypeLaunch, "/repo/.vscode/launch.json", "Server"),
		task.New(task.TypeLaunch, "/repo/.vscode/launch.json", "Attach"),
	}
	nodes := Flat(root, tasks, SortName)
	if got := nodeLabels(nodes); !slices.Equal(got, []string{"Attach", "Server"}) {
		t.Errorf("labels = %v", got)
	}
}

func TestCategories(t *testing.T) {
	tasks := []*task.Task{
		mk(task.TypeMake, "Makefile", "build"),
		mk(task.TypeNPM, "package.json", "test"),
		mk(task.TypeMake, "Makefile", "test"),
		mk(task.TypeShell, "x.sh", "x.sh"),
	}
	nodes := Categories(tasks)
	if got := nodeLabels(nodes); !slices.Equal(got, []string{
		task.TypeShell.DisplayName(), task.TypeNPM.DisplayName(), task.TypeMake.DisplayName(),
	}) {
		t.Fatalf("categories = %v", got)
	}
	if nodes[2].Description != "2 tasks" || nodes[0].Description != "1 task" {
		t.Errorf("descriptions = %q, %q", nodes[2].Description, nodes[0].Description)
	}
	if nodes[1].ID != CategoryID(task.TypeNPM) || nodes[1].Kind != KindCategory {
		t.Errorf("npm node = %+v", nodes[1])
	}
	if Categories(nil) != nil {
		t.Error("no tasks should give no categories")
	}
}

func TestNodeIDs(t *testing.T) {
	if typ, ok := ParseCategoryID(CategoryID(task.TypeRake)); !ok || typ != task.TypeRake {
		t.Errorf("ParseCategoryID() = %q, %v", typ, ok)
	}
	typ, dir, ok := ParseFolderID(FolderID(task.TypeNPM, "a/b"))
	if !ok || typ != task.TypeNPM || dir != "a/b" {
		t.Errorf("ParseFolderID() = %q, %q, %v", typ, dir, ok)
	}
	if _, _, ok := ParseFolderID("category:npm"); ok {
		t.Error("ParseFolderID accepted a category id")
	}
	if _, ok := ParseCategoryID("category:"); ok {
		t.Error("ParseCategoryID accepted an empty type")
	}
}

func TestParseSortOrder(t *testing.T) {
	for _, s := range []string{"", "folder", "name", "type"} {
		if _, err := ParseSortOrder(s); err != nil {
			t.Errorf("ParseSortOrder(%q) error = %v", s, err)
		}
	}
	if _, err := ParseSortOrder("size"); err == nil {
		t.Error("ParseSortOrder(size) succeeded")
	}
}
