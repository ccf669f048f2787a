package sources

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// ComposerSource discovers scripts from composer.json.
type ComposerSource struct{}

// NewComposerSource creates a new composer.json source.
func NewComposerSource() *ComposerSource {
	return &ComposerSource{}
}

// Type returns the task type.
func (s *ComposerSource) Type() task.Type {
	return task.TypeComposer
}

// Patterns returns the file patterns this source handles.
func (s *ComposerSource) Patterns() []string {
	return []string{"composer.json"}
}

// composerEvents are lifecycle hooks composer fires itself.
var composerEvents = map[string]bool{
	"pre-install-cmd":           true,
	"post-install-cmd":          true,
	"pre-update-cmd":            true,
	"post-update-cmd":           true,
	"pre-status-cmd":            true,
	"post-status-cmd":           true,
	"pre-archive-cmd":           true,
	"post-archive-cmd":          true,
	"pre-autoload-dump":         true,
	"post-autoload-dump":        true,
	"post-root-package-install": true,
	"post-create-project-cmd":   true,
	"pre-operations-exec":       true,
	"pre-package-install":       true,
	"post-package-install":      true,
	"pre-package-update":        true,
	"post-package-update":       true,
	"pre-package-uninstall":     true,
	"post-package-uninstall":    true,
}

// Discover finds composer scripts.
func (s *ComposerSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *ComposerSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	if !gjson.ValidBytes(data) {
		return nil, errInvalidJSON
	}

	descriptions := make(map[string]string)
	gjson.GetBytes(data, "scripts-descriptions").ForEach(func(key, value gjson.Result) bool {
		descriptions[key.String()] = value.String()
		return true
	})

	c := newCollector(s.Type(), path)
	gjson.GetBytes(data, "scripts").ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if composerEvents[name] {
			return true
		}

		var body string
		switch {
		case value.Type == gjson.String:
			body = value.String()
		case value.IsArray():
			var parts []string
			for _, v := range value.Array() {
				parts = append(parts, v.String())
			}
			body = strings.Join(parts, " && ")
		default:
			return true
		}

		if t := c.add(name, "composer run-script "+name); t != nil {
			t.Description = descriptions[name]
			if t.Description == "" {
				t.Description = scan.Truncate(body, 80)
			}
		}
		return true
	})
	return c.result(), nil
}
