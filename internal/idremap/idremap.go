// Package idremap implements the bidirectional runtime<->file object-ID
// mapping (H) built during load (phase 10, as objects are created) or save
// (phase 3, from the object list), then driven across chunk.RemapCitations /
// chunk.PrepareForFileWrite in pipeline phase 13 / save phase 5 to rewrite
// citations inside already-parsed chunks.
package idremap

// Remap holds the two directional maps. It satisfies chunk.IDRemapper and
// chunk.FileIDAssigner structurally, so it can be passed directly to
// chunk.RemapCitations / chunk.PrepareForFileWrite without either package
// importing the other.
type Remap struct {
	runtimeToFile map[uint32]uint32
	fileToRuntime map[uint32]uint32
}

// New returns an empty Remap.
func New() *Remap {
	return &Remap{
		runtimeToFile: make(map[uint32]uint32),
		fileToRuntime: make(map[uint32]uint32),
	}
}

// Add records a runtime<->file pair in both directions.
func (r *Remap) Add(runtimeID, fileID uint32) {
	r.runtimeToFile[runtimeID] = fileID
	r.fileToRuntime[fileID] = runtimeID
}

// ToFile implements chunk.WriteFileContext.
func (r *Remap) ToFile(runtimeID uint32) (uint32, bool) {
	fid, ok := r.runtimeToFile[runtimeID]
	return fid, ok
}

// ToRuntime implements chunk.ReadFileContext.
func (r *Remap) ToRuntime(fileID uint32) (uint32, bool) {
	rid, ok := r.fileToRuntime[fileID]
	return rid, ok
}

// Len returns the number of mapped pairs.
func (r *Remap) Len() int { return len(r.runtimeToFile) }
