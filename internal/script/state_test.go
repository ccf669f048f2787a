package script

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDiscover(t *testing.T) {
	s := NewState()
	defer s.Close()

	src := `
function discover(root)
  return {
    { name = "lint", command = "golangci-lint run", description = "Lint " .. root },
    { name = "skip-me" },
    { name = "fmt", command = "gofmt -l .", cwd = "tools" },
  }
end`
	entries, err := s.Discover(context.Background(), "custom.lua", src, "/work")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "lint" || entries[0].Description != "Lint /work" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Cwd != "tools" {
		t.Errorf("entries[1].Cwd = %q", entries[1].Cwd)
	}
}

func TestDiscover_Sandbox(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"os", `function discover() return { { name = "x", command = os.getenv("HOME") } } end`},
		{"io", `function discover() io.open("/etc/passwd") end`},
		{"dofile", `dofile("/etc/passwd")`},
		{"require", `local m = require("os")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			defer s.Close()
			if _, err := s.Discover(context.Background(), tt.name+".lua", tt.src, "/work"); err == nil {
				t.Error("expected sandbox violation to fail")
			}
		})
	}
}

func TestDiscover_Errors(t *testing.T) {
	s := NewState()
	defer s.Close()

	if _, err := s.Discover(context.Background(), "none.lua", `x = 1`, "/"); !errors.Is(err, ErrNoDiscover) {
		t.Errorf("error = %v, want ErrNoDiscover", err)
	}

	s2 := NewState()
	defer s2.Close()
	if _, err := s2.Discover(context.Background(), "bad.lua", `function discover() return 42 end`, "/"); !errors.Is(err, ErrBadResult) {
		t.Errorf("error = %v, want ErrBadResult", err)
	}

	s3 := NewState()
	defer s3.Close()
	if _, err := s3.Discover(context.Background(), "syntax.lua", `function (`, "/"); err == nil || !strings.Contains(err.Error(), "syntax.lua") {
		t.Errorf("error = %v, want load error naming the script", err)
	}
}

func TestDiscover_Timeout(t *testing.T) {
	s := NewState(WithTimeout(50 * time.Millisecond))
	defer s.Close()

	start := time.Now()
	_, err := s.Discover(context.Background(), "loop.lua", `function discover() while true do end end`, "/")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout not enforced: took %v", time.Since(start))
	}
}
