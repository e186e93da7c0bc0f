// Package nmofile is the public API for the legacy scene-container format
// (.nmo/.cmo/.vmo): a Context bundling collaborator policy, and a Session
// facade over the internal load/save pipelines (spec.md §6 "Library API").
package nmofile

import (
	"github.com/nmoscene/nmofile/internal/arena"
	"github.com/nmoscene/nmofile/internal/fileformat"
	"github.com/nmoscene/nmofile/internal/nmolog"
	"github.com/nmoscene/nmofile/internal/object"
	"github.com/nmoscene/nmofile/internal/pipeline"
	"github.com/nmoscene/nmofile/internal/registry"
	"github.com/nmoscene/nmofile/internal/session"
)

// Re-exported save flags (spec.md §6).
const (
	SaveDefault         = pipeline.SaveDefault
	SaveAsObjects       = pipeline.SaveAsObjects
	SaveCompressed      = pipeline.SaveCompressed
	SaveSequentialIDs   = pipeline.SaveSequentialIDs
	SaveIncludeManagers = pipeline.SaveIncludeManagers
	SaveValidateBefore  = pipeline.SaveValidateBefore
)

// Re-exported load flags (spec.md §6).
const (
	LoadDefault           = pipeline.LoadDefault
	LoadDoDialog          = pipeline.LoadDoDialog
	LoadAutomaticMode     = pipeline.LoadAutomaticMode
	LoadCheckDuplicates   = pipeline.LoadCheckDuplicates
	LoadAsDynamicObject   = pipeline.LoadAsDynamicObject
	LoadOnlyBehaviors     = pipeline.LoadOnlyBehaviors
	LoadCheckDependencies = pipeline.LoadCheckDependencies
	LoadStrictReferences  = pipeline.LoadStrictReferences
)

type SaveFlags = pipeline.SaveFlags
type LoadFlags = pipeline.LoadFlags

// ClassHierarchy is the class-hierarchy collaborator contract (spec.md §6);
// supplying one is optional, since no code in this module calls it; it is
// only carried on the session's collaborators.
type ClassHierarchy = session.ClassHierarchy

// Context bundles the collaborator policy a Session is built against: the
// allocator region size, logger, optional class hierarchy and opaque schema
// registry handle, plus the manager/plugin registries (spec.md §6
// `Context::new(alloc, logger, thread_pool_hint)`; thread_pool_hint has no
// analogue here, since this implementation does not parallelize chunk I/O
// beyond the plugin-dependency check already internal to the load pipeline).
type Context struct {
	regionSize int
	maxBytes   int
	logger     nmolog.Logger
	hierarchy  session.ClassHierarchy
	schema     any
	managers   *registry.ManagerRegistry
	plugins    *registry.PluginRegistry
}

// Option configures a Context.
type Option func(*Context)

// WithAllocator sets the arena's region size and optional allocation ceiling
// for every Session built from this Context (0 means "use the default" /
// "unbounded", respectively).
func WithAllocator(regionSize, maxBytes int) Option {
	return func(c *Context) { c.regionSize, c.maxBytes = regionSize, maxBytes }
}

// WithLogger overrides the default glog-backed logger.
func WithLogger(l nmolog.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithClassHierarchy supplies the class-hierarchy collaborator stored on every
// Session's collaborators; the load/save pipelines do not consult it.
func WithClassHierarchy(h session.ClassHierarchy) Option {
	return func(c *Context) { c.hierarchy = h }
}

// WithSchemaRegistry attaches an opaque schema-registry handle; the core
// never reads or writes through it (spec.md §6).
func WithSchemaRegistry(reg any) Option {
	return func(c *Context) { c.schema = reg }
}

// NewContext builds a Context from opts, registering managers and plugins
// must happen on the returned Context's Managers()/Plugins() registries
// before any Session is created from it.
func NewContext(opts ...Option) *Context {
	c := &Context{
		logger:   nmolog.Default(),
		managers: registry.NewManagerRegistry(),
		plugins:  registry.NewPluginRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Managers exposes the manager registry for registration before any load/save.
func (c *Context) Managers() *registry.ManagerRegistry { return c.managers }

// Plugins exposes the plugin registry for registration before any load/save.
func (c *Context) Plugins() *registry.PluginRegistry { return c.plugins }

// Session is the per-operation facade over internal/session +
// internal/pipeline (spec.md §6 `Session::create`/`load`/`save`).
type Session struct {
	inner *session.Session
}

// NewSession creates an empty Session bound to ctx's collaborators, backed by
// a fresh arena sized per ctx's allocator option.
func NewSession(ctx *Context) *Session {
	a := arena.New(ctx.regionSize, ctx.maxBytes)
	collab := session.Collaborators{
		Logger:         ctx.logger,
		ClassHierarchy: ctx.hierarchy,
		SchemaRegistry: ctx.schema,
		Managers:       ctx.managers,
		Plugins:        ctx.plugins,
	}
	return &Session{inner: session.New(a, collab)}
}

// Load populates s from path, running the fifteen-phase load pipeline.
func (s *Session) Load(path string, flags LoadFlags) error {
	return pipeline.LoadFile(path, s.inner, flags)
}

// SaveOptions carries the file-info fields a save stamps into the header.
type SaveOptions = pipeline.SaveOptions

// Save writes s to path transactionally, running the fourteen-phase save
// pipeline.
func (s *Session) Save(path string, flags SaveFlags, opt SaveOptions) error {
	return pipeline.SaveFile(path, s.inner, flags, opt)
}

// Close releases everything the session owns by resetting its arena.
func (s *Session) Close() { s.inner.Close() }

// Objects returns the object repository.
func (s *Session) Objects() *object.Repository { return s.inner.Repo }

// FileInfo returns the metadata populated by the most recent Load or Save.
func (s *Session) FileInfo() session.FileInfo { return s.inner.FileInfo }

// ManagerCount returns the number of manager blobs currently attached to the
// session (populated by Load; set directly before Save).
func (s *Session) ManagerCount() int { return len(s.inner.Managers) }

// IncludedFiles returns the embedded auxiliary files loaded from, or to be
// written into, the container.
func (s *Session) IncludedFiles() []fileformat.IncludedFilePayload { return s.inner.IncludedFiles }

// PluginDiagnostics returns the per-dependency plugin check results from the
// most recent Load (empty before any load, or when the loaded file lists no
// plugin dependencies).
func (s *Session) PluginDiagnostics() []session.PluginDiagnostic { return s.inner.PluginDiag }

// FinishLoadStats returns the non-fatal outcomes accumulated by the most
// recent Load: resolved/unresolved reference counts and manager hook errors.
func (s *Session) FinishLoadStats() session.FinishLoadStats { return s.inner.FinishStats }
