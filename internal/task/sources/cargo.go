package sources

import (
	"context"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// CargoSource discovers cargo commands for Rust packages.
type CargoSource struct{}

// NewCargoSource creates a new Cargo.toml source.
func NewCargoSource() *CargoSource {
	return &CargoSource{}
}

// Type returns the task type.
func (s *CargoSource) Type() task.Type {
	return task.TypeCargo
}

// Patterns returns the file patterns this source handles.
func (s *CargoSource) Patterns() []string {
	return []string{"Cargo.toml"}
}

// cargoManifest is the subset of Cargo.toml the source reads.
type cargoManifest struct {
	Package *struct {
		Name string `toml:"name"`
		// description may be a string or {workspace = true}
		Description any `toml:"description"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
	Bin     []cargoTarget `toml:"bin"`
	Example []cargoTarget `toml:"example"`
}

type cargoTarget struct {
	Name string `toml:"name"`
}

var cargoCommands = []struct {
	name string
	desc string
}{
	{"build", "Compile the package"},
	{"run", "Run the default binary"},
	{"test", "Run the tests"},
	{"check", "Check for errors without building"},
	{"clippy", "Run the clippy lints"},
}

// Discover finds Cargo manifests. Nothing is reported unless the workspace
// contains Rust sources.
func (s *CargoSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	if !ws.HasExtension(".rs") {
		return nil, nil
	}
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *CargoSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	c := newCollector(s.Type(), path)

	if m.Package == nil {
		if m.Workspace == nil {
			return nil, fmt.Errorf("neither [package] nor [workspace] present")
		}
		c.add("build", "cargo build --workspace").Description = "Compile every workspace member"
		c.add("test", "cargo test --workspace").Description = "Test every workspace member"
		return c.result(), nil
	}

	pkgDesc := ""
	if d, ok := m.Package.Description.(string); ok {
		pkgDesc = scan.Truncate(d, 80)
	}

	for _, cmd := range cargoCommands {
		t := c.add(cmd.name, "cargo "+cmd.name)
		t.Description = cmd.desc
		if pkgDesc != "" {
			t.Description = pkgDesc
		}
	}
	for _, bin := range m.Bin {
		if bin.Name == "" {
			continue
		}
		if t := c.add("run --bin "+bin.Name, "cargo run --bin "+bin.Name); t != nil {
			t.Description = "Run binary " + bin.Name
		}
	}
	for _, ex := range m.Example {
		if ex.Name == "" {
			continue
		}
		if t := c.add("run --example "+ex.Name, "cargo run --example "+ex.Name); t != nil {
			t.Description = "Run example " + ex.Name
		}
	}
	return c.result(), nil
}
