// Transform registry in the style of a pluggable algorithm catalog
package transforms

import (
	"fmt"
	"sort"

	"async-frame-engine/internal/engine"
)

var registry = make(map[string]engine.Transform)

// Register adds a transform under its own name. Later registrations
// with the same name win, which lets applications shadow built-ins.
func Register(t engine.Transform) {
	registry[t.Name()] = t
}

// Get looks up a registered transform.
func Get(name string) (engine.Transform, bool) {
	t, ok := registry[name]
	return t, ok
}

// MustGet is Get for wiring code where an unknown name is a
// configuration bug.
func MustGet(name string) engine.Transform {
	t, ok := registry[name]
	if !ok {
		panic(fmt.Sprintf("transforms: unknown transform %q", name))
	}
	return t
}

// IsValid reports whether name is registered.
func IsValid(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns all registered transform names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(NewBilateral())
	Register(NewCLAHE())
	Register(NewGaussian())
	Register(NewMedian())
	Register(NewMorphology())
}
