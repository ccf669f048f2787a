package task

import (
	"path/filepath"
	"testing"
)

func TestGenerateID_Stable(t *testing.T) {
	a := GenerateID(TypeNPM, "/work/app/package.json", "build")
	b := GenerateID(TypeNPM, "/work/app/package.json", "build")
	if a != b {
		t.Errorf("GenerateID not stable: %q != %q", a, b)
	}
	if a != "npm:/work/app/package.json:build" {
		t.Errorf("GenerateID = %q", a)
	}
}

func TestGenerateID_UniqueAcrossFiles(t *testing.T) {
	a := GenerateID(TypeMake, "/work/a/Makefile", "build")
	b := GenerateID(TypeMake, "/work/b/Makefile", "build")
	if a == b {
		t.Errorf("same type and name in different files produced equal ids %q", a)
	}
}

func TestSimplifyPath(t *testing.T) {
	root := filepath.FromSlash("/work")
	tests := []struct {
		file string
		want string
	}{
		{"/work/Makefile", RootCategory},
		{"/work/web/package.json", "web"},
		{"/work/services/api/Makefile", "services/api"},
		{"/elsewhere/Makefile", RootCategory},
		{"", RootCategory},
	}
	for _, tt := range tests {
		if got := SimplifyPath(root, filepath.FromSlash(tt.file)); got != tt.want {
			t.Errorf("SimplifyPath(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
		ok   bool
	}{
		{"npm", TypeNPM, true},
		{" Make ", TypeMake, true},
		{"lua", TypeLua, true},
		{"bazel", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseType(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAllTypes_DisplayNames(t *testing.T) {
	types := AllTypes()
	if len(types) != 20 {
		t.Fatalf("AllTypes() len = %d, want 20", len(types))
	}
	if types[0] != TypeShell || types[1] != TypeNPM || types[2] != TypeMake {
		t.Errorf("unexpected priority order: %v", types[:3])
	}
	for _, typ := range types {
		if typ.DisplayName() == string(typ) {
			t.Errorf("type %q has no display name", typ)
		}
	}
	// Mutating the returned slice must not affect the package order.
	types[0] = TypeLua
	if AllTypes()[0] != TypeShell {
		t.Error("AllTypes returned shared slice")
	}
}

func TestType_Flat(t *testing.T) {
	if !TypeLaunch.Flat() || !TypeVSCode.Flat() {
		t.Error("launch and vscode should be flat")
	}
	if TypeNPM.Flat() {
		t.Error("npm should not be flat")
	}
}

func TestTask_Clone(t *testing.T) {
	orig := New(TypeShell, "/work/run.sh", "run.sh")
	orig.Tags = []string{"ci"}
	orig.Params = []Param{{Name: "env", Options: []string{"dev", "prod"}}}

	c := orig.Clone()
	c.Tags[0] = "changed"
	c.Params[0].Options[0] = "changed"

	if orig.Tags[0] != "ci" {
		t.Error("Clone shares Tags")
	}
	if orig.Params[0].Options[0] != "dev" {
		t.Error("Clone shares Param options")
	}
	if !orig.HasTag("ci") || orig.HasTag("changed") {
		t.Error("HasTag mismatch")
	}
}

func TestRelPath(t *testing.T) {
	tests := map[string]string{
		"/work/package.json":     "package.json",
		"/work/web/package.json": "web/package.json",
		"/other/Makefile":        "/other/Makefile",
	}
	for path, want := range tests {
		if got := RelPath("/work", path); got != want {
			t.Errorf("RelPath(%q) = %q, want %q", path, got, want)
		}
	}
}
