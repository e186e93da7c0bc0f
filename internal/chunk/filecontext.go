package chunk

// WriteFileContext translates a runtime object ID to its file-ID-space
// equivalent at write time. Implemented by internal/idremap.Remap; declared
// here (rather than imported) so chunk does not depend on idremap, matching
// the codec's layering (D/E sit below H).
type WriteFileContext interface {
	ToFile(runtimeID uint32) (uint32, bool)
}

// ReadFileContext translates a file-space object ID back to runtime space at
// read time.
type ReadFileContext interface {
	ToRuntime(fileID uint32) (uint32, bool)
}
