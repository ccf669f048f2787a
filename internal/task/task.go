package task

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Type identifies the tool family a task was discovered from.
type Type string

const (
	// TypeShell is a shell script.
	TypeShell Type = "shell"
	// TypeNPM is a package.json script.
	TypeNPM Type = "npm"
	// TypeMake is a make target.
	TypeMake Type = "make"
	// TypeLaunch is a VS Code launch configuration.
	TypeLaunch Type = "launch"
	// TypeVSCode is a VS Code tasks.json task.
	TypeVSCode Type = "vscode"
	// TypePython is a runnable Python script.
	TypePython Type = "python"
	// TypePowerShell is a PowerShell or batch script.
	TypePowerShell Type = "powershell"
	// TypeGradle is a Gradle task.
	TypeGradle Type = "gradle"
	// TypeCargo is a cargo command for a Rust package.
	TypeCargo Type = "cargo"
	// TypeMaven is a Maven lifecycle phase or goal.
	TypeMaven Type = "maven"
	// TypeAnt is an Ant target.
	TypeAnt Type = "ant"
	// TypeJust is a justfile recipe.
	TypeJust Type = "just"
	// TypeTaskfile is a go-task Taskfile task.
	TypeTaskfile Type = "taskfile"
	// TypeDeno is a deno.json task.
	TypeDeno Type = "deno"
	// TypeRake is a Rake task.
	TypeRake Type = "rake"
	// TypeComposer is a composer.json script.
	TypeComposer Type = "composer"
	// TypeDocker is a Docker Compose command.
	TypeDocker Type = "docker"
	// TypeDotnet is a dotnet CLI command for a project file.
	TypeDotnet Type = "dotnet"
	// TypeMarkdown is a markdown document.
	TypeMarkdown Type = "markdown"
	// TypeLua is a task produced by a user Lua source script.
	TypeLua Type = "lua"
)

// Category constants for host-native task types that are not grouped by path.
const (
	CategoryVSCodeTasks  = "VS Code Tasks"
	CategoryVSCodeLaunch = "VS Code Launch"
)

// RootCategory is the category of tasks defined at the workspace root.
const RootCategory = "root"

var allTypes = []Type{
	TypeShell, TypeNPM, TypeMake, TypeLaunch, TypeVSCode, TypePython,
	TypePowerShell, TypeGradle, TypeCargo, TypeMaven, TypeAnt, TypeJust,
	TypeTaskfile, TypeDeno, TypeRake, TypeComposer, TypeDocker, TypeDotnet,
	TypeMarkdown, TypeLua,
}

var displayNames = map[Type]string{
	TypeShell:      "Shell Scripts",
	TypeNPM:        "NPM Scripts",
	TypeMake:       "Make Targets",
	TypeLaunch:     "VS Code Launch",
	TypeVSCode:     "VS Code Tasks",
	TypePython:     "Python Scripts",
	TypePowerShell: "PowerShell/Batch",
	TypeGradle:     "Gradle Tasks",
	TypeCargo:      "Cargo (Rust)",
	TypeMaven:      "Maven Goals",
	TypeAnt:        "Ant Targets",
	TypeJust:       "Just Recipes",
	TypeTaskfile:   "Taskfile",
	TypeDeno:       "Deno Tasks",
	TypeRake:       "Rake Tasks",
	TypeComposer:   "Composer Scripts",
	TypeDocker:     "Docker Compose",
	TypeDotnet:     ".NET Projects",
	TypeMarkdown:   "Markdown Files",
	TypeLua:        "Custom Tasks",
}

// AllTypes returns every task type in source priority order.
func AllTypes() []Type {
	return slices.Clone(allTypes)
}

// ParseType converts a string to a Type.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := displayNames[t]; ok {
		return t, true
	}
	return "", false
}

// DisplayName returns the tree category title for the type.
func (t Type) DisplayName() string {
	if name, ok := displayNames[t]; ok {
		return name
	}
	return string(t)
}

// Flat reports whether tasks of this type are listed without folder grouping.
func (t Type) Flat() bool {
	return t == TypeLaunch || t == TypeVSCode
}

// ParamFormat tells the dispatcher how to render a parameter value.
type ParamFormat string

const (
	// FormatPositional appends the bare value.
	FormatPositional ParamFormat = ""
	// FormatFlag renders "--name value".
	FormatFlag ParamFormat = "flag"
	// FormatFlagEquals renders "--name=value".
	FormatFlagEquals ParamFormat = "flag-equals"
	// FormatDash renders "-name value".
	FormatDash ParamFormat = "dash"
	// FormatAssign renders "name=value".
	FormatAssign ParamFormat = "assign"
	// FormatDashDash appends the value after a "--" separator.
	FormatDashDash ParamFormat = "dashdash"
	// FormatBracket joins values into the task name, as in rake's
	// "deploy[prod,eu]".
	FormatBracket ParamFormat = "bracket"
)

// Param describes one input a task accepts before it runs.
type Param struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Default     string      `json:"default,omitempty"`
	Options     []string    `json:"options,omitempty"`
	Format      ParamFormat `json:"format,omitempty"`
}

// Task is one discovered runnable unit.
//
// Everything except Tags is fixed once a source returns the task; Tags is
// recomputed by the tag resolver.
type Task struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Type        Type     `json:"type"`
	Category    string   `json:"category"`
	Command     string   `json:"command"`
	Cwd         string   `json:"cwd,omitempty"`
	FilePath    string   `json:"filePath"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
	Params      []Param  `json:"params,omitempty"`
}

// New creates a task whose ID and label derive from name.
func New(typ Type, filePath, name string) *Task {
	return &Task{
		ID:       GenerateID(typ, filePath, name),
		Label:    name,
		Type:     typ,
		FilePath: filePath,
	}
}

// HasTag reports whether the task carries the named tag.
func (t *Task) HasTag(name string) bool {
	return slices.Contains(t.Tags, name)
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	c.Tags = slices.Clone(t.Tags)
	if t.Params != nil {
		c.Params = make([]Param, len(t.Params))
		for i, p := range t.Params {
			p.Options = slices.Clone(p.Options)
			c.Params[i] = p
		}
	}
	return &c
}

// GenerateID returns the stable identifier for a task.
// It is a pure function of its inputs, so the same file and name always
// produce the same id and equal names in different files never collide.
func GenerateID(typ Type, filePath, name string) string {
	return fmt.Sprintf("%s:%s:%s", typ, filepath.ToSlash(filePath), name)
}

// SimplifyPath returns the category key for a file: its directory relative
// to root, slash separated, or RootCategory for files at (or outside) root.
func SimplifyPath(root, filePath string) string {
	dir := RelDir(root, filePath)
	if dir == "" {
		return RootCategory
	}
	return dir
}

// RelDir returns the slash separated directory of filePath relative to root.
// It returns "" when the file sits at root or cannot be made relative.
func RelDir(root, filePath string) string {
	if filePath == "" {
		return ""
	}
	rel, err := filepath.Rel(root, filepath.Dir(filePath))
	if err != nil {
		return ""
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return ""
	}
	return rel
}

// RelPath returns filePath relative to root, slash separated. Files outside
// root keep their slash separated absolute path.
func RelPath(root, filePath string) string {
	rel, err := filepath.Rel(root, filePath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filePath)
	}
	return filepath.ToSlash(rel)
}
