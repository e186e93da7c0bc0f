// Package session implements the per-operation session (L): the arena,
// object repository, manager-data array, included-file list, plugin
// diagnostics and finish-loading stats for one load or save, plus the
// context collaborators it borrows rather than owns.
package session

import (
	"github.com/nmoscene/nmofile/internal/arena"
	"github.com/nmoscene/nmofile/internal/fileformat"
	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/nmolog"
	"github.com/nmoscene/nmofile/internal/object"
	"github.com/nmoscene/nmofile/internal/registry"
)

// ClassHierarchy is the class-hierarchy collaborator contract (spec §6):
// carried on the session for the host's own tools, never implemented or
// called by this module (the resolver matches class IDs exactly).
type ClassHierarchy interface {
	IsDerivedFrom(childClassID, ancestorClassID uint32) bool
	NameFor(classID uint32) (string, bool)
}

// Collaborators bundles the context state a session borrows but does not
// own: shared allocator policy is the arena passed to New, logger, class
// hierarchy, opaque schema registry handle, and the manager/plugin
// registries. Only one session may mutate a shared set of Collaborators at
// a time (spec §5); registries are expected to be registration-then-read.
type Collaborators struct {
	Logger         nmolog.Logger
	ClassHierarchy ClassHierarchy // nil if the host doesn't supply one
	SchemaRegistry any            // opaque; the core never reads or writes through it
	Managers       *registry.ManagerRegistry
	Plugins        *registry.PluginRegistry
}

// FileInfo is the readable-after-load/writable-before-save file metadata
// (spec data model "File info").
type FileInfo struct {
	FileVersion    uint32
	FileVersion2   uint32
	CKVersion      uint32
	ProductVersion uint32
	ProductBuild   uint32
	ObjectCount    uint32
	ManagerCount   uint32
	WriteMode      uint32
	FileSize       uint32
	MaxIDSaved     uint32
}

// PluginDiagnostic records one dependency's status from load phase 6.
type PluginDiagnostic struct {
	GUID     guid.GUID
	Category uint32
	Status   registry.DependencyStatus
}

// FinishLoadStats accumulates the non-fatal outcomes of finish-loading
// (phase 14/15 of the load pipeline): reference resolution counts and
// manager post-load hook errors, kept instead of aborting the load.
type FinishLoadStats struct {
	ResolvedReferences   int
	UnresolvedReferences int
	ManagerHookErrors    []error
	DuplicateNames       []string
}

// Session owns everything produced or consumed by one load or save
// operation; destroying it (Close) drops all of it in one step via the
// arena.
type Session struct {
	arena  *arena.Arena
	Collab Collaborators

	Repo          *object.Repository
	Managers      []fileformat.ManagerBlob
	IncludedFiles []fileformat.IncludedFilePayload
	PluginDiag    []PluginDiagnostic
	FileInfo      FileInfo
	FinishStats   FinishLoadStats
}

// New returns an empty Session backed by a, borrowing collab.
func New(a *arena.Arena, collab Collaborators) *Session {
	return &Session{
		arena:  a,
		Collab: collab,
		Repo:   object.NewRepository(a),
	}
}

// Arena exposes the session's backing allocator to collaborating packages
// (the pipeline allocates chunk/object scratch state through it).
func (s *Session) Arena() *arena.Arena { return s.arena }

// Close drops everything the session owns by resetting its arena; the
// session must not be used afterward.
func (s *Session) Close() {
	s.arena.Reset()
	s.Repo = object.NewRepository(s.arena)
	s.Managers = nil
	s.IncludedFiles = nil
	s.PluginDiag = nil
	s.FinishStats = FinishLoadStats{}
}
