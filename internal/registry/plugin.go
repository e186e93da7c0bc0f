package registry

import (
	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/nmoerr"
	"golang.org/x/mod/semver"
)

// PluginEntry is one registered plugin. The plugin manager accepts already
// loaded entry points (spec §6); how the dynamic library was found is out of
// scope here.
type PluginEntry struct {
	ID       uint32
	GUID     guid.GUID
	Category uint32
	Version  string // "" if unknown; not saved (Virtools stores no plugin version)
}

// PluginDependency is the {guid, category, version} triple persisted into
// Header1 at save time and checked against the registry at load time.
type PluginDependency struct {
	GUID     guid.GUID
	Category uint32
	Version  string
}

// DependencyStatus is the outcome of checking one PluginDependency against
// the registry during load phase 6.
type DependencyStatus int

const (
	DependencyOK DependencyStatus = iota
	DependencyMissing
	DependencyCategoryMismatch
	DependencyVersionMismatch
)

func (s DependencyStatus) String() string {
	switch s {
	case DependencyOK:
		return "ok"
	case DependencyMissing:
		return "missing"
	case DependencyCategoryMismatch:
		return "category mismatch"
	case DependencyVersionMismatch:
		return "version mismatch"
	default:
		return "unknown"
	}
}

// PluginRegistry is a read-mostly ID/GUID-keyed plugin map.
type PluginRegistry struct {
	byID   map[uint32]*PluginEntry
	byGUID map[guid.GUID]*PluginEntry
	order  []*PluginEntry
}

func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{
		byID:   make(map[uint32]*PluginEntry),
		byGUID: make(map[guid.GUID]*PluginEntry),
	}
}

// Register adds a plugin, rejecting duplicate IDs or GUIDs.
func (r *PluginRegistry) Register(e *PluginEntry) error {
	if _, exists := r.byID[e.ID]; exists {
		return nmoerr.New(nmoerr.AlreadyExists, "plugin ID %d already registered", e.ID)
	}
	if _, exists := r.byGUID[e.GUID]; exists {
		return nmoerr.New(nmoerr.AlreadyExists, "plugin GUID %s already registered", e.GUID)
	}
	r.byID[e.ID] = e
	r.byGUID[e.GUID] = e
	r.order = append(r.order, e)
	return nil
}

func (r *PluginRegistry) ByGUID(g guid.GUID) (*PluginEntry, bool) {
	e, ok := r.byGUID[g]
	return e, ok
}

// All returns every registered plugin in registration order.
func (r *PluginRegistry) All() []*PluginEntry { return r.order }

// BuildDependencyList assembles the Header1 plugin-dependency array: one
// {guid, category} entry per registered plugin (no version is saved).
func (r *PluginRegistry) BuildDependencyList() []PluginDependency {
	out := make([]PluginDependency, 0, len(r.order))
	for _, e := range r.order {
		out = append(out, PluginDependency{GUID: e.GUID, Category: e.Category})
	}
	return out
}

// Check validates one dependency against the registry, comparing versions
// with semver ordering when both sides are well-formed semver strings and
// falling back to exact string match otherwise.
func (r *PluginRegistry) Check(dep PluginDependency) DependencyStatus {
	entry, ok := r.byGUID[dep.GUID]
	if !ok {
		return DependencyMissing
	}
	if entry.Category != dep.Category {
		return DependencyCategoryMismatch
	}
	if dep.Version == "" || entry.Version == "" {
		return DependencyOK
	}
	if semver.IsValid(normalizeSemver(dep.Version)) && semver.IsValid(normalizeSemver(entry.Version)) {
		if semver.Compare(normalizeSemver(entry.Version), normalizeSemver(dep.Version)) < 0 {
			return DependencyVersionMismatch
		}
		return DependencyOK
	}
	if entry.Version != dep.Version {
		return DependencyVersionMismatch
	}
	return DependencyOK
}

func normalizeSemver(v string) string {
	if len(v) == 0 || v[0] == 'v' {
		return v
	}
	return "v" + v
}
