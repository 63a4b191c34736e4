// Package codegen emits target-language source from a validated UAL
// AST. One Generator per target language; backends register themselves
// and the driver looks them up by target name.
package codegen

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ualang/ual/ast"
)

// Generator is implemented once per target language.
type Generator interface {
	// Target is the name used to select this backend, e.g. "python".
	Target() string
	// Generate emits complete target source for the agent.
	Generate(agent *ast.Agent) (string, error)
}

// extensions maps every recognized target to its output extension,
// including targets without a registered backend yet.
var extensions = map[string]string{
	"python":     ".py",
	"javascript": ".js",
	"go":         ".go",
	"rust":       ".rs",
}

// Extension returns the output file extension for a target, or ".out"
// for unrecognized targets.
func Extension(target string) string {
	if ext, ok := extensions[target]; ok {
		return ext
	}
	return ".out"
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Generator)
)

// Register adds a backend. Registering the same target twice replaces
// the earlier backend.
func Register(g Generator) {
	mu.Lock()
	defer mu.Unlock()
	registry[g.Target()] = g
}

// Lookup returns the backend for a target.
func Lookup(target string) (Generator, error) {
	mu.RLock()
	defer mu.RUnlock()
	g, ok := registry[target]
	if !ok {
		return nil, fmt.Errorf("no code generator registered for target %q", target)
	}
	return g, nil
}

// Targets lists registered targets in sorted order.
func Targets() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(NewPython())
}
