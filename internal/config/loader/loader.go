// Package loader reads configuration layers into nested maps keyed by
// section and setting name, and stacks them in precedence order.
package loader

// Layer is one source of settings.
type Layer interface {
	// Name identifies the layer in errors.
	Name() string
	// Load returns the layer's settings, or nil when the layer is absent.
	Load() (map[string]any, error)
}

// Stack overlays each layer onto base in order, so later layers win. It
// returns the merged settings and the names of the layers that were
// present.
func Stack(base map[string]any, layers ...Layer) (map[string]any, []string, error) {
	merged := base
	var present []string
	for _, l := range layers {
		m, err := l.Load()
		if err != nil {
			return nil, nil, err
		}
		if m == nil {
			continue
		}
		present = append(present, l.Name())
		merged = Merge(merged, m)
	}
	return merged, present, nil
}

// Merge overlays src onto dst and returns dst. Tables present on both
// sides merge key by key; any other value in src replaces dst's.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		sub, srcTable := v.(map[string]any)
		cur, dstTable := dst[k].(map[string]any)
		if srcTable && dstTable {
			dst[k] = Merge(cur, sub)
			continue
		}
		dst[k] = v
	}
	return dst
}
