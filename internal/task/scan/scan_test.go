package scan

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestCommentTracker(t *testing.T) {
	c := NewCommentTracker("##", "#")

	c.Comment("# first")
	c.Comment("## Build the project")
	if !c.Pending() {
		t.Fatal("expected pending comment")
	}
	if got := c.Take(); got != "Build the project" {
		t.Errorf("Take() = %q, want %q", got, "Build the project")
	}
	if c.Pending() {
		t.Error("Take should clear the pending comment")
	}

	c.Comment("# stale")
	if c.Comment("build:") {
		t.Error("definition line reported as comment")
	}
	c.Reset()
	if got := c.Take(); got != "" {
		t.Errorf("Take() after Reset = %q", got)
	}
}

func TestCommentTracker_Blank(t *testing.T) {
	c := NewCommentTracker("#")
	c.Comment("# describe")
	c.Comment("")
	if c.Pending() {
		t.Error("blank line should reset by default")
	}

	c.KeepAcrossBlank = true
	c.Comment("# describe")
	c.Comment("   ")
	if got := c.Take(); got != "describe" {
		t.Errorf("Take() = %q, want describe", got)
	}
}

func TestHeaderComment(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"after shebang", []string{"#!/bin/bash", "# Deploys the app", "set -e"}, "Deploys the app"},
		{"skips directives", []string{"#!/usr/bin/env bash", "# shellcheck disable=SC2034", "# @param env target", "# Real description"}, "Real description"},
		{"skips modeline", []string{"# -*- coding: utf-8 -*-", "# Tool"}, "Tool"},
		{"stops at code", []string{"echo hi", "# later"}, ""},
		{"blank lines", []string{"", "#", "# text"}, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeaderComment(tt.lines, "#"); got != tt.want {
				t.Errorf("HeaderComment() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJSONC(t *testing.T) {
	in := []byte(`{
  // comment
  "tasks": [
    {"label": "build", /* inline */},
  ],
}`)
	out, err := JSONC(in)
	if err != nil {
		t.Fatalf("JSONC() error = %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}

	if _, err := JSONC([]byte(`{"a": `)); err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestTruncate(t *testing.T) {
	long := "abcdefghij"
	if got := Truncate(long, 8); got != "abcde..." {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("short", 80); got != "short" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("héllo wörld", 8); got != "héllo..." {
		t.Errorf("Truncate() not rune aware: %q", got)
	}
}

func TestUnquote(t *testing.T) {
	tests := map[string]string{
		`"a b"`: "a b",
		`'x'`:   "x",
		`"mix'`: `"mix'`,
		`plain`: "plain",
		`"`:     `"`,
	}
	for in, want := range tests {
		if got := Unquote(in); got != want {
			t.Errorf("Unquote(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "''"},
		{"simple", "simple"},
		{"--env=prod", "--env=prod"},
		{"has space", "'has space'"},
		{"it's", `'it'\''s'`},
		{"$HOME", "'$HOME'"},
	}
	for _, tt := range tests {
		if got := ShellQuote(tt.in); got != tt.want {
			t.Errorf("ShellQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuotePath(t *testing.T) {
	if got := QuotePath("/a b/run.sh"); got != `"/a b/run.sh"` {
		t.Errorf("QuotePath() = %q", got)
	}
	if got := QuotePath(`/x/$y`); got != `"/x/\$y"` {
		t.Errorf("QuotePath() = %q", got)
	}
}

func TestSplitArgs(t *testing.T) {
	got := SplitArgs(`"--env", choices=["a", "b"], help="x, y", type=str`)
	want := []string{`"--env"`, `choices=["a", "b"]`, `help="x, y"`, `type=str`}
	if !slices.Equal(got, want) {
		t.Errorf("SplitArgs() = %q, want %q", got, want)
	}
}

func TestLines(t *testing.T) {
	got := Lines([]byte("\xef\xbb\xbfa\r\nb\n"))
	want := []string{"a", "b", ""}
	if !slices.Equal(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}
