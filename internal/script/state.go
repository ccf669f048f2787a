// Package script runs user supplied Lua task sources in a sandbox.
package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds one script run, load and call together.
const DefaultTimeout = 2 * time.Second

// Errors for script execution.
var (
	// ErrNoDiscover is returned when a script does not define discover().
	ErrNoDiscover = errors.New("script does not define a discover function")

	// ErrBadResult is returned when discover() returns something other than
	// an array of tables.
	ErrBadResult = errors.New("discover must return an array of tables")
)

// Entry is one task a script reported.
type Entry struct {
	Name        string
	Command     string
	Description string
	Cwd         string
}

// State wraps a sandboxed gopher-lua state.
//
// gopher-lua's LState is not goroutine-safe; a State must be used from a
// single goroutine and closed when done.
type State struct {
	L       *lua.LState
	timeout time.Duration
}

// Option configures a State.
type Option func(*State)

// WithTimeout sets the execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *State) {
		s.timeout = d
	}
}

// NewState creates a sandboxed Lua state with only the base, table, string
// and math libraries.
func NewState(opts ...Option) *State {
	s := &State{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // We'll open selectively
	})
	openSafeLibraries(L)
	removeUnsafeGlobals(L)

	s.L = L
	return s
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	// Open base library (print, type, pairs, ipairs, etc.)
	lua.OpenBase(L)

	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// io, os, debug and package are intentionally not opened.
}

// removeUnsafeGlobals drops base functions that load code from disk or
// strings.
func removeUnsafeGlobals(L *lua.LState) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// Close releases the Lua state.
func (s *State) Close() {
	s.L.Close()
}

// Discover loads the script source and calls its discover(root) function.
func (s *State) Discover(ctx context.Context, name, source, root string) (entries []*Entry, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			entries = nil
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	fn, err := s.L.Load(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	s.L.Push(fn)
	if err := s.L.PCall(0, 0, nil); err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}

	discover := s.L.GetGlobal("discover")
	if discover.Type() != lua.LTFunction {
		return nil, ErrNoDiscover
	}

	if err := s.L.CallByParam(lua.P{Fn: discover, NRet: 1, Protect: true}, lua.LString(root)); err != nil {
		return nil, fmt.Errorf("discover in %s: %w", name, err)
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)

	return toEntries(ret)
}

// toEntries converts discover's return value.
func toEntries(v lua.LValue) ([]*Entry, error) {
	if v == lua.LNil {
		return nil, nil
	}
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, ErrBadResult
	}

	var entries []*Entry
	n := tbl.Len()
	for i := 1; i <= n; i++ {
		item, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %s", ErrBadResult, i, tbl.RawGetInt(i).Type())
		}
		e := &Entry{
			Name:        field(item, "name"),
			Command:     field(item, "command"),
			Description: field(item, "description"),
			Cwd:         field(item, "cwd"),
		}
		if e.Name == "" || e.Command == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func field(t *lua.LTable, key string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}
