package chunk

import "testing"

type fakeRemap struct {
	toFile    map[uint32]uint32
	toRuntime map[uint32]uint32
}

func newFakeRemap() *fakeRemap {
	return &fakeRemap{toFile: map[uint32]uint32{}, toRuntime: map[uint32]uint32{}}
}

func (f *fakeRemap) add(runtimeID, fileID uint32) {
	f.toFile[runtimeID] = fileID
	f.toRuntime[fileID] = runtimeID
}

func (f *fakeRemap) ToFile(runtimeID uint32) (uint32, bool) { v, ok := f.toFile[runtimeID]; return v, ok }
func (f *fakeRemap) ToRuntime(fileID uint32) (uint32, bool) { v, ok := f.toRuntime[fileID]; return v, ok }

func TestPrepareForFileWriteAndRemapCitationsRoundTrip(t *testing.T) {
	cw := NewWriter()
	cw.Start(10, 1)
	if err := cw.WriteObjectID(5); err != nil {
		t.Fatal(err)
	}
	child, err := cw.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	pw := NewWriter()
	pw.Start(20, 1)
	if err := pw.WriteObjectID(7); err != nil {
		t.Fatal(err)
	}
	if err := pw.WriteSubchunk(child); err != nil {
		t.Fatal(err)
	}
	parent, err := pw.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	remap := newFakeRemap()
	remap.add(5, 1005)
	remap.add(7, 1007)

	n, err := PrepareForFileWrite(parent, remap)
	if err != nil {
		t.Fatalf("PrepareForFileWrite: %v", err)
	}
	if n != 2 {
		t.Fatalf("remapped = %d, want 2 (one in parent, one in child)", n)
	}
	if parent.OptionFlags&OptFILE == 0 {
		t.Fatal("OptFILE not set after PrepareForFileWrite")
	}

	sub, err := ReadSubchunk(parent, parent.ChunkRefs[0])
	if err != nil {
		t.Fatalf("ReadSubchunk: %v", err)
	}
	if sub.Data[sub.IDs[0]] != 1005 {
		t.Fatalf("sub-chunk citation = %d, want 1005", sub.Data[sub.IDs[0]])
	}
	if parent.Data[parent.IDs[0]] != 1007 {
		t.Fatalf("parent citation = %d, want 1007", parent.Data[parent.IDs[0]])
	}

	resolved, err := RemapCitations(parent, remap, true)
	if err != nil {
		t.Fatalf("RemapCitations: %v", err)
	}
	if resolved != 2 {
		t.Fatalf("resolved = %d, want 2", resolved)
	}
	if parent.OptionFlags&OptFILE != 0 {
		t.Fatal("OptFILE still set after RemapCitations")
	}
	if parent.Data[parent.IDs[0]] != 7 {
		t.Fatalf("parent citation after remap back = %d, want 7", parent.Data[parent.IDs[0]])
	}
	sub2, err := ReadSubchunk(parent, parent.ChunkRefs[0])
	if err != nil {
		t.Fatalf("ReadSubchunk after remap: %v", err)
	}
	if sub2.Data[sub2.IDs[0]] != 5 {
		t.Fatalf("sub-chunk citation after remap back = %d, want 5", sub2.Data[sub2.IDs[0]])
	}
}

func TestRemapCitationsStrictFailsOnUnknownFileID(t *testing.T) {
	w := NewWriter()
	w.Start(1, 1)
	if err := w.WriteObjectID(99); err != nil {
		t.Fatal(err)
	}
	c, err := w.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	remap := newFakeRemap()
	remap.add(1, 2) // does not cover runtime ID 99

	if _, err := PrepareForFileWrite(c, remap); err != nil {
		t.Fatalf("PrepareForFileWrite: %v", err)
	}
	// 99 has no mapping, so it is left as-is rather than zeroed; file ID 99
	// also has no reverse mapping, so a strict RemapCitations must fail.
	if _, err := RemapCitations(c, remap, true); err == nil {
		t.Fatal("expected strict RemapCitations to fail on an unmapped file ID")
	}
}
