package tree

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dshills/tasktree/internal/task"
)

// SortOrder controls how tasks and folders are ordered.
type SortOrder string

const (
	// SortFolder orders tasks by directory, then label.
	SortFolder SortOrder = "folder"
	// SortName orders tasks by label.
	SortName SortOrder = "name"
	// SortType orders tasks by type, then label.
	SortType SortOrder = "type"
)

// ParseSortOrder parses a sort order name. The empty string is SortFolder.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "", SortFolder:
		return SortFolder, nil
	case SortName, SortType:
		return SortOrder(s), nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// DirNode is an intermediate directory grouping used while building.
type DirNode struct {
	Dir      string
	Tasks    []*task.Task
	Children []*DirNode
}

// Group buckets tasks by workspace relative directory and nests each
// bucket under its closest ancestor bucket. Tasks outside root, or whose
// directory cannot be resolved, share the "" bucket. It returns the
// buckets without an ancestor, in order of first appearance.
func Group(root string, tasks []*task.Task) []*DirNode {
	byDir := make(map[string]*DirNode)
	var dirs []string
	for _, t := range tasks {
		dir := task.RelDir(root, t.FilePath)
		n, ok := byDir[dir]
		if !ok {
			n = &DirNode{Dir: dir}
			byDir[dir] = n
			dirs = append(dirs, dir)
		}
		n.Tasks = append(n.Tasks, t)
	}

	var roots []*DirNode
	for _, dir := range dirs {
		if parent := closestAncestor(dir, dirs); parent != "" {
			byDir[parent].Children = append(byDir[parent].Children, byDir[dir])
		} else {
			roots = append(roots, byDir[dir])
		}
	}
	return roots
}

// closestAncestor returns the longest key in dirs that is a proper path
// prefix of dir, or "".
func closestAncestor(dir string, dirs []string) string {
	best := ""
	for _, k := range dirs {
		if k == "" || k == dir || len(k) <= len(best) {
			continue
		}
		if strings.HasPrefix(dir, k+"/") {
			best = k
		}
	}
	return best
}

// Build returns the display nodes for the tasks of one category.
//
// A top level directory is shown as a folder when it has subdirectories or
// more than one task; a directory holding a single task is inlined as that
// task. Nested directories are always folders. Folders precede tasks.
func Build(root string, tasks []*task.Task, order SortOrder) []*Node {
	if len(tasks) == 0 {
		return nil
	}
	s := newSorter(root, order)

	var folders, leaves []*Node
	for _, d := range Group(root, tasks) {
		if len(d.Children) == 0 && len(d.Tasks) == 1 {
			leaves = append(leaves, taskNode(d.Tasks[0]))
			continue
		}
		folders = append(folders, s.folder(d, FolderLabel(d.Dir)))
	}
	s.sortFolders(folders)
	s.sortTaskNodes(leaves)
	return append(folders, leaves...)
}

// Flat returns task nodes without folders, for host native categories.
func Flat(root string, tasks []*task.Task, order SortOrder) []*Node {
	s := newSorter(root, order)
	nodes := make([]*Node, 0, len(tasks))
	for _, t := range tasks {
		nodes = append(nodes, taskNode(t))
	}
	s.sortTaskNodes(nodes)
	return nodes
}

// FolderLabel returns the label of a top level folder: the relative
// directory, "root" for the workspace root, and "first/.../last" for
// directories deeper than three segments.
func FolderLabel(dir string) string {
	if dir == "" {
		return task.RootCategory
	}
	parts := strings.Split(dir, "/")
	if len(parts) > 3 {
		return parts[0] + "/.../" + parts[len(parts)-1]
	}
	return dir
}

// Categories returns one category node per task type present, in source
// priority order. Children are left empty; the provider fills them lazily.
func Categories(tasks []*task.Task) []*Node {
	counts := make(map[task.Type]int)
	for _, t := range tasks {
		counts[t.Type]++
	}

	types := slices.Clone(task.AllTypes())
	var extra []task.Type
	for typ := range counts {
		if !slices.Contains(types, typ) {
			extra = append(extra, typ)
		}
	}
	slices.Sort(extra)
	types = append(types, extra...)

	var nodes []*Node
	for _, typ := range types {
		n := counts[typ]
		if n == 0 {
			continue
		}
		nodes = append(nodes, &Node{
			ID:          CategoryID(typ),
			Kind:        KindCategory,
			Label:       typ.DisplayName(),
			Description: countLabel(n),
			Type:        typ,
		})
	}
	return nodes
}

func countLabel(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}

// SortTasks sorts tasks in place, for flat listings.
func SortTasks(root string, tasks []*task.Task, order SortOrder) {
	s := newSorter(root, order)
	sort.SliceStable(tasks, func(i, j int) bool {
		return s.lessTask(tasks[i], tasks[j])
	})
}

// sorter orders nodes with a locale aware collator. Collators are not safe
// for concurrent use, so each build gets its own.
type sorter struct {
	root  string
	order SortOrder
	col   *collate.Collator
}

func newSorter(root string, order SortOrder) *sorter {
	return &sorter{
		root:  root,
		order: order,
		col:   collate.New(language.Und, collate.Numeric),
	}
}

func (s *sorter) less(a, b string) bool {
	if c := s.col.CompareString(a, b); c != 0 {
		return c < 0
	}
	return a < b
}

func (s *sorter) lessTask(a, b *task.Task) bool {
	switch s.order {
	case SortType:
		if a.Type != b.Type {
			return a.Type < b.Type
		}
	case SortFolder:
		da, db := task.RelDir(s.root, a.FilePath), task.RelDir(s.root, b.FilePath)
		if da != db {
			return s.less(da, db)
		}
	}
	return s.less(a.Label, b.Label)
}

func (s *sorter) sortTaskNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return s.lessTask(nodes[i].Task, nodes[j].Task)
	})
}

func (s *sorter) sortFolders(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return s.less(nodes[i].Label, nodes[j].Label)
	})
}

// folder converts a directory group into a folder node.
func (s *sorter) folder(d *DirNode, label string) *Node {
	// Every group holds at least one task.
	typ := d.Tasks[0].Type
	n := &Node{
		ID:    FolderID(typ, d.Dir),
		Kind:  KindFolder,
		Label: label,
		Type:  typ,
		Dir:   d.Dir,
	}

	var folders []*Node
	for _, c := range d.Children {
		folders = append(folders, s.folder(c, strings.TrimPrefix(c.Dir, d.Dir+"/")))
	}

	leaves := make([]*Node, 0, len(d.Tasks))
	for _, t := range d.Tasks {
		leaves = append(leaves, taskNode(t))
	}
	s.sortFolders(folders)
	s.sortTaskNodes(leaves)
	n.Children = append(folders, leaves...)
	n.Description = countLabel(countTasks(n))
	return n
}

func countTasks(n *Node) int {
	if n.Kind == KindTask {
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += countTasks(c)
	}
	return total
}
