// Package tools defines the scanner registry: the read-only mapping
// from tool identifier to everything the engine needs to run it (a
// default timeout, a command builder, a parser). The registry is
// resolved once at startup; adding a scanner means adding one
// Descriptor, not touching call sites.
package tools

import (
	"errors"
	"os/exec"
	"time"

	"github.com/scanhive/scanhive/pkg/parse"
)

// ErrUnknownTool reports a tool identifier absent from the registry.
var ErrUnknownTool = errors.New("tools: unknown tool")

// Category groups scanners by the depth of their probing. The API
// exposes it for tool listings; it carries no scheduling meaning.
type Category string

const (
	// CategoryQuick covers fast reconnaissance scanners.
	CategoryQuick Category = "quick"

	// CategoryDeep covers thorough protocol and crawl scanners.
	CategoryDeep Category = "deep"

	// CategorySecurity covers targeted exploitation checks.
	CategorySecurity Category = "security"
)

// BuildSpec carries the per-run inputs a command builder consumes.
type BuildSpec struct {
	// Target is the validated scan target URL.
	Target string

	// ArtifactDir is the per-scan directory tools write output
	// files into.
	ArtifactDir string

	// WordlistDir holds static input files for tools that fuzz.
	WordlistDir string
}

// Invocation is one fully built tool command line: the argument
// vector after the binary, and the artifact file the tool will write
// ("" when the tool reports on stdout only).
type Invocation struct {
	Args     []string
	Artifact string
}

// BuildFunc constructs the invocation for one run.
type BuildFunc func(spec BuildSpec) Invocation

// Descriptor ties one scanner's identity to its runtime contract.
type Descriptor struct {
	Name           string
	Category       Category
	Path           string // binary name or absolute path
	DefaultTimeout time.Duration
	Build          BuildFunc
	Parser         parse.Parser
}

// Available reports whether the tool's binary resolves on this host.
func (d Descriptor) Available() bool {
	_, err := exec.LookPath(d.Path)
	return err == nil
}

// Registry holds registered scanners. Lookup is by name; iteration
// follows registration order so runs are deterministic.
type Registry struct {
	tools map[string]Descriptor
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Descriptor)}
}

// Register adds a scanner. Re-registering a name replaces the
// descriptor but keeps its original position.
func (r *Registry) Register(d Descriptor) {
	if _, exists := r.tools[d.Name]; !exists {
		r.order = append(r.order, d.Name)
	}
	r.tools[d.Name] = d
}

// Get returns the descriptor for a tool name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns all tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.tools)
}

// ByCategory returns descriptors of one category in registration
// order.
func (r *Registry) ByCategory(c Category) []Descriptor {
	var out []Descriptor
	for _, name := range r.order {
		if d := r.tools[name]; d.Category == c {
			out = append(out, d)
		}
	}
	return out
}

// remove drops a tool from the registry, preserving the order of the
// remaining entries. Used by catalog "disabled" overrides.
func (r *Registry) remove(name string) {
	if _, ok := r.tools[name]; !ok {
		return
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
