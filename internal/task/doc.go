// Package task provides task discovery for tasktree.
//
// A task is a single runnable command found in a project: a make target,
// an npm script, a shell script, a VS Code launch configuration, and so on.
// Tasks are discovered, never executed, by this package.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                         Discoverer                              │
//	│  - Builds one Workspace view (root + exclusion globs)           │
//	│  - Runs every Source concurrently                               │
//	│  - Joins results; a failing source contributes nothing          │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                       DiscoveryResult                           │
//	│  - One slice per task type                                      │
//	│  - Flatten concatenates in source priority order                │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Identity
//
// Task IDs are a pure function of (type, defining file, name), so tags and
// favorites keyed by ID survive rediscovery as long as the file and name do.
//
// # Usage
//
//	discoverer := task.NewDiscoverer(
//	    task.WithSources(sources.All("")...),
//	)
//	result, err := discoverer.DiscoverAll(ctx, "/path/to/workspace", task.DefaultExcludes)
//	for _, t := range task.Flatten(result) {
//	    fmt.Println(t.Label, t.Command)
//	}
//
// # Subpackages
//
//   - sources: one Source per build tool family
//   - scan: line scanning helpers shared by the sources
package task
