package pipeline

import (
	"bytes"

	"github.com/nmoscene/nmofile/internal/chunk"
	"github.com/nmoscene/nmofile/internal/fileformat"
	"github.com/nmoscene/nmofile/internal/idremap"
	"github.com/nmoscene/nmofile/internal/nmoerr"
	"github.com/nmoscene/nmofile/internal/object"
	"github.com/nmoscene/nmofile/internal/registry"
	"github.com/nmoscene/nmofile/internal/session"
)

// SaveOptions carries the file-info fields the caller wants stamped into the
// header (spec data model "File info"); CKVersion/ProductVersion/Build are
// caller-supplied because this library has no notion of "current product
// version" of its own.
type SaveOptions struct {
	FileVersion    uint32
	FileVersion2   uint32
	CKVersion      uint32
	ProductVersion uint32
	ProductBuild   uint32
	Durable        bool
}

// SaveFile runs the fourteen-phase save pipeline, writing sess to path
// transactionally (spec §4.12, §5).
func SaveFile(path string, sess *session.Session, flags SaveFlags, opt SaveOptions) error {
	// Phase 1: validate session. Object count > 0 is required unconditionally
	// (an empty save is invalid); SaveValidateBefore additionally re-checks
	// repository invariants rather than trusting the arena-backed state.
	if sess.Repo.Len() == 0 {
		return nmoerr.New(nmoerr.InvalidArgument, "cannot save a session with zero objects")
	}
	if flags.has(SaveValidateBefore) {
		if stats := sess.Repo.Stats(); stats.ClassIndexedObjects != sess.Repo.Len() {
			return nmoerr.New(nmoerr.ValidationFailed, "repository object count %d disagrees with index stats %d", sess.Repo.Len(), stats.ClassIndexedObjects)
		}
	}

	// Phase 2: manager pre-save hooks.
	if sess.Collab.Managers != nil {
		for _, m := range sess.Collab.Managers.All() {
			if err := m.Hooks.OnPreSave(); err != nil {
				sess.FinishStats.ManagerHookErrors = append(sess.FinishStats.ManagerHookErrors, err)
				if sess.Collab.Logger != nil {
					sess.Collab.Logger.Warnf("manager %s OnPreSave hook failed for %s: %v", m.GUID, path, err)
				}
			}
		}
	}

	// Phase 3: build runtime->file remap.
	remap := idremap.New()
	objects := sess.Repo.List()
	if flags.has(SaveSequentialIDs) {
		next := uint32(1)
		for _, obj := range objects {
			remap.Add(obj.ID, next)
			next++
		}
	} else {
		for _, obj := range objects {
			remap.Add(obj.ID, obj.ID)
		}
	}

	// Phase 4: serialize manager chunks (no remap needed beyond what the
	// caller already baked into the manager's own chunk, since managers are
	// not part of the object ID space). SaveIncludeManagers gates whether
	// they are written at all: a save without it produces an object-only
	// file even if the session carries manager data.
	var managerBlobs []fileformat.ManagerBlob
	if flags.has(SaveIncludeManagers) {
		managerBlobs = append([]fileformat.ManagerBlob(nil), sess.Managers...)
	}

	// Phase 5: serialize object chunks with remap applied. Reference-only
	// objects emit no payload, as does every object when SaveAsObjects asks
	// for descriptor-only output.
	records := make([]fileformat.ObjectRecord, 0, len(objects))
	descs := make([]fileformat.ObjectDescriptor, 0, len(objects))
	for _, obj := range objects {
		fileID, _ := remap.ToFile(obj.ID)
		if flags.has(SaveAsObjects) || object.IsReferenceOnly(obj.ID) || obj.Chunk == nil {
			records = append(records, fileformat.ObjectRecord{ObjectID: fileID, Chunk: nil})
			descs = append(descs, fileformat.ObjectDescriptor{ClassID: obj.ClassID, ObjectID: fileID, Name: obj.Name, Flags: obj.Flags})
			continue
		}
		// Remap a copy so the session's own chunk keeps its runtime IDs.
		ck := obj.Chunk.Clone()
		if _, err := chunk.PrepareForFileWrite(ck, remap); err != nil {
			return nmoerr.Wrap(nmoerr.InvalidData, err, "assigning file IDs for object %q", obj.Name)
		}
		records = append(records, fileformat.ObjectRecord{ObjectID: fileID, Chunk: ck})
		descs = append(descs, fileformat.ObjectDescriptor{ClassID: obj.ClassID, ObjectID: fileID, Name: obj.Name, Flags: obj.Flags})
	}

	data := &fileformat.Data{Managers: managerBlobs, Objects: records}
	dataRaw := fileformat.EncodeData(data, opt.FileVersion)

	// Phase 6: compress Data section.
	dataPacked := dataRaw
	writeMode := uint32(0)
	if flags.has(SaveCompressed) {
		packed, err := fileformat.Deflate(dataRaw)
		if err != nil {
			return nmoerr.Wrap(nmoerr.IoError, err, "deflating Data section")
		}
		dataPacked = packed
		writeMode |= fileformat.CompressData
	}

	// Phase 7: build object descriptors — done above alongside phase 5,
	// since both need the same per-object file ID.

	// Phase 8: build plugin-dependency list.
	var pluginDeps []registry.PluginDependency
	if sess.Collab.Plugins != nil {
		pluginDeps = sess.Collab.Plugins.BuildDependencyList()
	}
	hdr1 := &fileformat.Header1{
		Objects:       descs,
		PluginDeps:    pluginDeps,
		IncludedFiles: includedFileIndex(sess.IncludedFiles),
	}
	hdr1Raw := fileformat.EncodeHeader1(hdr1)

	// Phase 9: compress Header1.
	hdr1Packed := hdr1Raw
	if flags.has(SaveCompressed) {
		packed, err := fileformat.Deflate(hdr1Raw)
		if err != nil {
			return nmoerr.Wrap(nmoerr.IoError, err, "deflating Header1")
		}
		hdr1Packed = packed
		writeMode |= fileformat.CompressHeader
	}

	// Phase 10: compute sizes. Phase 11: build file header.
	hdr := &fileformat.Header{
		Hdr1PackSize:   uint32(len(hdr1Packed)),
		Hdr1UnpackSize: uint32(len(hdr1Raw)),
		DataPackSize:   uint32(len(dataPacked)),
		DataUnpackSize: uint32(len(dataRaw)),
		ProductVersion: opt.ProductVersion,
		ProductBuild:   opt.ProductBuild,
		FileVersion:    opt.FileVersion,
		FileVersion2:   opt.FileVersion2,
		FileWriteMode:  writeMode,
		ObjectCount:    uint32(len(objects)),
		ManagerCount:   uint32(len(managerBlobs)),
		MaxIDSaved:     maxFileID(remap, objects),
		CKVersion:      opt.CKVersion,
	}

	// Phases 12-13: open output with transactional discipline, write
	// header + Header1 + Data + included-file payloads as one staged blob.
	out := make([]byte, 0, 64+len(hdr1Packed)+len(dataPacked))
	out = appendHeader(out, hdr)
	out = append(out, hdr1Packed...)
	out = append(out, dataPacked...)
	out = append(out, fileformat.EncodeIncludedFiles(sess.IncludedFiles)...)

	if err := transactionalWrite(path, out, opt.Durable); err != nil {
		return err
	}

	// Phase 14: manager post-save hooks.
	if sess.Collab.Managers != nil {
		for _, m := range sess.Collab.Managers.All() {
			if err := m.Hooks.OnPostSave(); err != nil {
				sess.FinishStats.ManagerHookErrors = append(sess.FinishStats.ManagerHookErrors, err)
				if sess.Collab.Logger != nil {
					sess.Collab.Logger.Warnf("manager %s OnPostSave hook failed for %s: %v", m.GUID, path, err)
				}
			}
		}
	}

	sess.FileInfo = session.FileInfo{
		FileVersion: opt.FileVersion, FileVersion2: opt.FileVersion2, CKVersion: opt.CKVersion,
		ProductVersion: opt.ProductVersion, ProductBuild: opt.ProductBuild,
		ObjectCount: hdr.ObjectCount, ManagerCount: hdr.ManagerCount, WriteMode: writeMode,
		FileSize: uint32(len(out)), MaxIDSaved: hdr.MaxIDSaved,
	}
	return nil
}

func appendHeader(buf []byte, hdr *fileformat.Header) []byte {
	var tmp bytes.Buffer
	_ = fileformat.WriteHeader(&tmp, hdr) // WriteHeader only fails if the writer fails; bytes.Buffer never does
	return append(buf, tmp.Bytes()...)
}

func includedFileIndex(files []fileformat.IncludedFilePayload) []fileformat.IncludedFile {
	out := make([]fileformat.IncludedFile, len(files))
	for i, f := range files {
		out[i] = fileformat.IncludedFile{Name: f.Name, Size: uint32(len(f.Data))}
	}
	return out
}

func maxFileID(remap *idremap.Remap, objects []*object.Object) uint32 {
	var max uint32
	for _, obj := range objects {
		if fid, ok := remap.ToFile(obj.ID); ok && fid > max {
			max = fid
		}
	}
	return max
}
