package config

import (
	"errors"
	"fmt"

	"github.com/dshills/tasktree/internal/config/loader"
)

// ErrFileNotFound is returned when a config file named with WithFile
// does not exist.
var ErrFileNotFound = errors.New("config file not found")

// ParseError is a malformed config file.
type ParseError = loader.ParseError

// Code classifies a ValidationError.
type Code string

const (
	CodeUnknownSetting Code = "unknown_setting"
	CodeWrongType      Code = "wrong_type"
	CodeNotAllowed     Code = "not_allowed"
	CodeBadFormat      Code = "bad_format"
	CodeOutOfRange     Code = "out_of_range"
)

// ValidationError is one rejected setting. Path is the dotted setting
// name, such as "tags.dialect"; Value is nil when showing it adds nothing.
// Load and Validate join these with errors.Join, so use errors.As to
// inspect the first.
type ValidationError struct {
	Path    string
	Message string
	Value   any
	Code    Code
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Value != nil {
		msg = fmt.Sprintf("%s, got %q", msg, fmt.Sprint(e.Value))
	}
	if e.Path == "" {
		return "config: " + msg
	}
	return "config: " + e.Path + ": " + msg
}
