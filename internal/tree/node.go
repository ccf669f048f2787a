// Package tree turns a flat task list into the category and folder
// hierarchy shown to users.
//
// The top level holds one category per task type. Below a category, tasks
// are grouped by the directory of their defining file and nested by
// directory proximity. Trees are cheap to build and are rebuilt whenever a
// category is expanded.
package tree

import (
	"fmt"
	"strings"

	"github.com/dshills/tasktree/internal/task"
)

// Kind identifies the type of a tree node.
type Kind int

const (
	// KindCategory groups every task of one type.
	KindCategory Kind = iota
	// KindFolder groups the tasks of one directory.
	KindFolder
	// KindTask is a leaf holding one task.
	KindTask
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindCategory:
		return "category"
	case KindFolder:
		return "folder"
	case KindTask:
		return "task"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Node is one entry of the display tree.
type Node struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	Type        task.Type  `json:"type"`
	Dir         string     `json:"dir,omitempty"`
	Task        *task.Task `json:"task,omitempty"`
	Children    []*Node    `json:"children,omitempty"`
}

// CategoryID returns the node id of a type's category.
func CategoryID(typ task.Type) string {
	return "category:" + string(typ)
}

// FolderID returns the node id of a folder within a category.
func FolderID(typ task.Type, dir string) string {
	return "folder:" + string(typ) + ":" + dir
}

// ParseCategoryID returns the type named by a category node id.
func ParseCategoryID(id string) (task.Type, bool) {
	rest, ok := strings.CutPrefix(id, "category:")
	if !ok || rest == "" {
		return "", false
	}
	return task.Type(rest), true
}

// ParseFolderID splits a folder node id into its type and directory.
func ParseFolderID(id string) (task.Type, string, bool) {
	rest, ok := strings.CutPrefix(id, "folder:")
	if !ok {
		return "", "", false
	}
	typ, dir, ok := strings.Cut(rest, ":")
	if !ok || typ == "" {
		return "", "", false
	}
	return task.Type(typ), dir, true
}

// Find returns the node with id in nodes or their descendants.
func Find(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
		if found := Find(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

func taskNode(t *task.Task) *Node {
	return &Node{
		ID:          t.ID,
		Kind:        KindTask,
		Label:       t.Label,
		Description: t.Description,
		Type:        t.Type,
		Task:        t,
	}
}
