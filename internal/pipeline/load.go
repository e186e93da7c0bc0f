package pipeline

import (
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/nmoscene/nmofile/internal/arena"
	"github.com/nmoscene/nmofile/internal/chunk"
	"github.com/nmoscene/nmofile/internal/fileformat"
	"github.com/nmoscene/nmofile/internal/idremap"
	"github.com/nmoscene/nmofile/internal/nmoerr"
	"github.com/nmoscene/nmofile/internal/object"
	"github.com/nmoscene/nmofile/internal/registry"
	"github.com/nmoscene/nmofile/internal/resolver"
	"github.com/nmoscene/nmofile/internal/session"
)

// LoadFile runs the fifteen-phase load pipeline against path, populating a
// fresh sess (spec §4.11). Phases 1-4 and phase 6 (when strict) are fatal;
// phases 7 and 15 accumulate into sess.FinishStats instead of aborting;
// phase 14 reference failures are fatal only under LoadStrictReferences.
func LoadFile(path string, sess *session.Session, flags LoadFlags) error {
	// Phase 1: open IO.
	f, err := os.Open(path)
	if err != nil {
		return nmoerr.Wrap(nmoerr.FileNotFound, err, "opening %s", path)
	}
	defer f.Close()

	// Phase 2: parse file header.
	hdr, err := fileformat.ReadHeader(f)
	if err != nil {
		return nmoerr.Wrap(nmoerr.InvalidData, err, "parsing header of %s", path)
	}

	// Phase 3: read + inflate Header1.
	hdr1Packed := make([]byte, hdr.Hdr1PackSize)
	if _, err := io.ReadFull(f, hdr1Packed); err != nil {
		return nmoerr.Wrap(nmoerr.IoError, err, "reading Header1 of %s", path)
	}
	hdr1Raw := hdr1Packed
	if hdr.Hdr1PackSize != hdr.Hdr1UnpackSize {
		hdr1Raw, err = fileformat.Inflate(hdr1Packed, hdr.Hdr1UnpackSize)
		if err != nil {
			return nmoerr.Wrap(nmoerr.InvalidData, err, "inflating Header1 of %s", path)
		}
	}

	// Phase 4: parse Header1.
	hdr1, err := fileformat.DecodeHeader1(hdr1Raw)
	if err != nil {
		return nmoerr.Wrap(nmoerr.InvalidData, err, "decoding Header1 of %s", path)
	}

	// Phase 5: start load session.
	sess.FileInfo = session.FileInfo{
		FileVersion:    hdr.FileVersion,
		FileVersion2:   hdr.FileVersion2,
		CKVersion:      hdr.CKVersion,
		ProductVersion: hdr.ProductVersion,
		ProductBuild:   hdr.ProductBuild,
		ObjectCount:    hdr.ObjectCount,
		ManagerCount:   hdr.ManagerCount,
		WriteMode:      hdr.FileWriteMode,
		MaxIDSaved:     hdr.MaxIDSaved,
	}

	// Phase 6: check plugin dependencies. The registry is read-mostly by the
	// time a load runs, so each dependency is checked concurrently via
	// errgroup rather than in a sequential loop; results are written into a
	// pre-sized slice by index to avoid a shared-append race.
	if sess.Collab.Plugins != nil {
		statuses := make([]registry.DependencyStatus, len(hdr1.PluginDeps))
		var g errgroup.Group
		for i, dep := range hdr1.PluginDeps {
			i, dep := i, dep
			g.Go(func() error {
				statuses[i] = sess.Collab.Plugins.Check(dep)
				return nil
			})
		}
		_ = g.Wait() // Check never returns an error; Wait is for the group's join semantics

		anyMissing := false
		for i, dep := range hdr1.PluginDeps {
			sess.PluginDiag = append(sess.PluginDiag, session.PluginDiagnostic{GUID: dep.GUID, Category: dep.Category, Status: statuses[i]})
			if statuses[i] == registry.DependencyMissing {
				anyMissing = true
			}
		}
		if anyMissing && flags.has(LoadCheckDependencies) {
			return nmoerr.New(nmoerr.PluginMissing, "one or more required plugins are missing")
		}
	}

	// Phase 7: manager pre-load hooks (non-fatal by default).
	if sess.Collab.Managers != nil {
		for _, m := range sess.Collab.Managers.All() {
			if err := m.Hooks.OnPreLoad(); err != nil {
				sess.FinishStats.ManagerHookErrors = append(sess.FinishStats.ManagerHookErrors, err)
				if sess.Collab.Logger != nil {
					sess.Collab.Logger.Warnf("manager %s OnPreLoad hook failed for %s: %v", m.GUID, path, err)
				}
			}
		}
	}

	// Phase 8: read + inflate Data section.
	dataPacked := make([]byte, hdr.DataPackSize)
	if _, err := io.ReadFull(f, dataPacked); err != nil {
		return nmoerr.Wrap(nmoerr.IoError, err, "reading Data section of %s", path)
	}
	dataRaw := dataPacked
	if hdr.DataPackSize != hdr.DataUnpackSize {
		dataRaw, err = fileformat.Inflate(dataPacked, hdr.DataUnpackSize)
		if err != nil {
			return nmoerr.Wrap(nmoerr.InvalidData, err, "inflating Data section of %s", path)
		}
	}

	// The included-file payloads follow the Data section.
	if len(hdr1.IncludedFiles) > 0 {
		tail, err := io.ReadAll(f)
		if err != nil {
			return nmoerr.Wrap(nmoerr.IoError, err, "reading included files of %s", path)
		}
		sess.IncludedFiles, err = fileformat.DecodeIncludedFiles(tail, len(hdr1.IncludedFiles))
		if err != nil {
			return nmoerr.Wrap(nmoerr.InvalidData, err, "decoding included files of %s", path)
		}
	}

	// Phases 9 & 11: parse manager and object chunks.
	decoded, err := fileformat.DecodeData(dataRaw, int(hdr.ManagerCount), len(hdr1.Objects), hdr.FileVersion)
	if err != nil {
		return nmoerr.Wrap(nmoerr.InvalidData, err, "decoding Data section of %s", path)
	}
	sess.Managers = decoded.Managers

	// Phase 10: create objects, assign runtime IDs, record file<->runtime pairs.
	// When LoadCheckDuplicates is set, an arena-accounted Set tracks names
	// seen so far so the whole check costs one pass, not O(n^2).
	var seenNames *arena.Set[string]
	if flags.has(LoadCheckDuplicates) {
		seenNames = arena.NewSet[string](sess.Arena())
	}
	remap := idremap.New()
	objects := make([]*object.Object, len(hdr1.Objects))
	for i, desc := range hdr1.Objects {
		obj := &object.Object{ClassID: desc.ClassID, Name: desc.Name, Flags: desc.Flags}
		sess.Repo.Insert(obj)
		objects[i] = obj
		remap.Add(obj.ID, desc.ObjectID)
		if seenNames != nil && desc.Name != "" {
			if seenNames.Has(desc.Name) {
				sess.FinishStats.DuplicateNames = append(sess.FinishStats.DuplicateNames, desc.Name)
				if sess.Collab.Logger != nil {
					sess.Collab.Logger.Warnf("duplicate object name %q in %s", desc.Name, path)
				}
			}
			seenNames.Add(desc.Name)
		}
	}

	// Attach phase-11 chunks (already parsed by DecodeData) to their objects.
	for i, rec := range decoded.Objects {
		if i >= len(objects) {
			break
		}
		objects[i].Chunk = rec.Chunk
	}

	// Phase 12: build ID remap table — done above via idremap.New()/Add as
	// objects were created, since file IDs are already known from Header1.

	// Phase 13: remap IDs in all chunks, descending into sub-chunks.
	strictRefs := flags.has(LoadStrictReferences)
	for _, obj := range objects {
		if obj.Chunk == nil {
			continue
		}
		n, err := chunk.RemapCitations(obj.Chunk, remap, strictRefs)
		sess.FinishStats.ResolvedReferences += n
		if err != nil {
			return nmoerr.Wrap(nmoerr.ReferenceUnresolved, err, "remapping citations for object %q", obj.Name)
		}
	}
	for i := range sess.Managers {
		if sess.Managers[i].Chunk == nil {
			continue
		}
		n, err := chunk.RemapCitations(sess.Managers[i].Chunk, remap, strictRefs)
		sess.FinishStats.ResolvedReferences += n
		if err != nil {
			return nmoerr.Wrap(nmoerr.ReferenceUnresolved, err, "remapping citations for manager %d", i)
		}
	}

	// Phase 14: finish loading — resolve residual (by-name/by-GUID)
	// references, rebuild indexes, invoke manager post-load hooks, gather
	// stats. The resolver starts empty: populating it with citation sites is
	// a domain-specific concern left to the caller/managers that understand
	// object payload layout; this pipeline only owns the mechanism.
	res := resolver.New(sess.Repo, sess.Arena(), strictRefs)
	resolved, unresolved, err := res.ResolveAll()
	sess.FinishStats.ResolvedReferences += resolved
	sess.FinishStats.UnresolvedReferences += unresolved
	if err != nil {
		return err
	}
	if unresolved > 0 && sess.Collab.Logger != nil {
		sess.Collab.Logger.Warnf("%d citation(s) in %s could not be resolved by name or GUID", unresolved, path)
	}
	sess.Repo.Rebuild()

	// Phase 15: manager post-load hooks.
	if sess.Collab.Managers != nil {
		for _, m := range sess.Collab.Managers.All() {
			if err := m.Hooks.OnPostLoad(); err != nil {
				sess.FinishStats.ManagerHookErrors = append(sess.FinishStats.ManagerHookErrors, err)
				if sess.Collab.Logger != nil {
					sess.Collab.Logger.Warnf("manager %s OnPostLoad hook failed for %s: %v", m.GUID, path, err)
				}
			}
		}
	}

	return nil
}
