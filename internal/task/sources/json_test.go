package sources

import (
	"slices"
	"testing"

	"github.com/dshills/tasktree/internal/task"
)

func TestNPMSource_Discover(t *testing.T) {
	ws := newWorkspace(t, map[string]string{
		"package.json": `{
  "name": "app",
  "scripts": {
    "test": "jest",
    "build": "tsc",
    "lint": "eslint . --ext .ts,.tsx --max-warnings 0 --report-unused-disable-directives --cache --fix"
  }
}`,
	})
	tasks := discover(t, NewNPMSource(), ws)

	// Document order, not sorted.
	if got := labels(tasks); !slices.Equal(got, []string{"test", "build", "lint"}) {
		t.Fatalf("labels = %v", got)
	}
	m := byLabel(tasks)
	if m["build"].Command != "npm run build" {
		t.Errorf("build command = %q", m["build"].Command)
	}
	if m["test"].Description != "jest" {
		t.Errorf("test description = %q", m["test"].Description)
	}
	if n := len([]rune(m["lint"].Description)); n != 80 {
		t.Errorf("lint description length = %d, want 80", n)
	}
	if m["build"].Type != task.TypeNPM {
		t.Errorf("type = %q", m["build"].Type)
	}
}

func TestNPMSource_FaultTolerance(t *testing.T) {
	ws := newWorkspace(t, map[string]string{
		"good/package.json": `{"scripts": {"start": "node ."}}`,
		"bad/package.json":  `{"scripts": {"start": "node ."`,
	})
	tasks := discover(t, NewNPMSource(), ws)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if ws.Rel(tasks[0].FilePath) != "good/package.json" {
		t.Errorf("task from %s", tasks[0].FilePath)
	}
}

func TestNPMSource_PackageManager(t *testing.T) {
	tests := []struct {
		lock string
		want string
	}{
		{"pnpm-lock.yaml", "pnpm run dev"},
		{"yarn.lock", "yarn run dev"},
		{"bun.lockb", "bun run dev"},
		{"package-lock.json", "npm run dev"},
	}
	for _, tt := range tests {
		t.Run(tt.lock, func(t *testing.T) {
			ws := newWorkspace(t, map[string]string{
				"package.json": `{"scripts": {"dev": "vite"}}`,
				tt.lock:        "",
			})
			tasks := discover(t, NewNPMSource(), ws)
			if len(tasks) != 1 || tasks[0].Command != tt.want {
				t.Errorf("command = %v, want %q", labels(tasks), tt.want)
			}
		})
	}
}

func TestNPMSource_ExcludesNodeModules(t *testing.T) {
	ws := newWorkspace(t, map[string]string{
		"package.json":                  `{"scripts": {"build": "tsc"}}`,
		"node_modules/dep/package.json": `{"scripts": {"build": "make"}}`,
	})
	if tasks := discover(t, NewNPMSource(), ws); len(tasks) != 1 {
		t.Errorf("got %d tasks, want 1", len(tasks))
	}
}

func TestDenoSource_Discover(t *testing.T) {
	ws := newWorkspace(t, map[string]string{
		"deno.jsonc": `{
  // tasks for the app
  "tasks": {
    "dev": "deno run --watch main.ts",
    "check": {"command": "deno check main.ts", "description": "Type check"},
  },
}`,
	})
	tasks := discover(t, NewDenoSource(), ws)
	m := byLabel(tasks)
	if len(tasks) != 2 {
		t.Fatalf("got %v", labels(tasks))
	}
	if m["dev"].Command != "deno task dev" || m["dev"].Description != "deno run --watch main.ts" {
		t.Errorf("dev = %+v", m["dev"])
	}
	if m["check"].Description != "Type check" {
		t.Errorf("check description = %q", m["check"].Description)
	}
}

func TestComposerSource_Discover(t *testing.T) {
	ws := newWorkspace(t, map[string]string{
		"composer.json": `{
  "scripts": {
    "post-install-cmd": "php artisan optimize",
    "test": "phpunit",
    "check": ["@lint", "@test"],
    "lint": "phpcs"
  },
  "scripts-descriptions": {
    "test": "Run the unit tests"
  }
}`,
	})
	tasks := discover(t, NewComposerSource(), ws)
	if got := labels(tasks); !slices.Equal(got, []string{"test", "check", "lint"}) {
		t.Fatalf("labels = %v", got)
	}
	m := byLabel(tasks)
	if m["test"].Description != "Run the unit tests" {
		t.Errorf("test description = %q", m["test"].Description)
	}
	if m["check"].Description != "@lint && @test" {
		t.Errorf("check description = %q", m["check"].Description)
	}
	if m["lint"].Command != "composer run-script lint" {
		t.Errorf("lint command = %q", m["lint"].Command)
	}
}

func TestVSCodeSource_Discover(t *testing.T) {
	ws := newWorkspace(t, map[string]string{
		".vscode/tasks.json": `{
  "version": "2.0.0",
  // comments are allowed
  "tasks": [
    {"label": "Build All", "type": "shell", "command": "make", "detail": "Runs make"},
    {"type": "npm", "script": "watch"},
    {"type": "shell"},
  ]
}`,
	})
	tasks := discover(t, NewVSCodeSource(), ws)
	if got := labels(tasks); !slices.Equal(got, []string{"Build All", "npm: watch"}) {
		t.Fatalf("labels = %v", got)
	}
	for _, tk := range tasks {
		if tk.Category != task.CategoryVSCodeTasks {
			t.Errorf("category = %q", tk.Category)
		}
		if tk.Command != tk.Label {
			t.Errorf("command = %q, want label", tk.Command)
		}
	}
	if tasks[0].Description != "Runs make" {
		t.Errorf("description = %q", tasks[0].Description)
	}
}

func TestLaunchSource_Discover(t *testing.T) {
	ws := newWorkspace(t, map[string]string{
		".vscode/launch.json": `{
  "configurations": [
    {"name": "Debug Server", "type": "go", "request": "launch"},
    {"name": "Attach", "type": "node", "request": "attach"},
  ],
  "compounds": [
    {"name": "Full Stack", "configurations": ["Debug Server", "Attach"]}
  ]
}`,
	})
	tasks := discover(t, NewLaunchSource(), ws)
	if got := labels(tasks); !slices.Equal(got, []string{"Debug Server", "Attach", "Full Stack"}) {
		t.Fatalf("labels = %v", got)
	}
	if tasks[0].Description != "go launch" || tasks[0].Category != task.CategoryVSCodeLaunch {
		t.Errorf("tasks[0] = %+v", tasks[0])
	}
	if tasks[2].Description != "compound" {
		t.Errorf("compound description = %q", tasks[2].Description)
	}
}
