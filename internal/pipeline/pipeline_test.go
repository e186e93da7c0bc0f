package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nmoscene/nmofile/internal/arena"
	"github.com/nmoscene/nmofile/internal/chunk"
	"github.com/nmoscene/nmofile/internal/fileformat"
	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/object"
	"github.com/nmoscene/nmofile/internal/session"
)

func newTestSession() *session.Session {
	a := arena.New(4096, 0)
	return session.New(a, session.Collaborators{})
}

func chunkWithDwords(t *testing.T, classID uint32, dwords ...uint32) *chunk.Chunk {
	t.Helper()
	w := chunk.NewWriter()
	w.Start(classID, 1)
	for _, d := range dwords {
		if err := w.WriteDword(d); err != nil {
			t.Fatalf("WriteDword: %v", err)
		}
	}
	c, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return c
}

// S5: saving an empty session must fail.
func TestSaveEmptySessionFails(t *testing.T) {
	sess := newTestSession()
	dir := t.TempDir()
	err := SaveFile(filepath.Join(dir, "empty.nmo"), sess, SaveDefault, SaveOptions{FileVersion: 8, CKVersion: 0x13022002})
	if err == nil {
		t.Fatal("expected error saving an empty session")
	}
}

// S6: 5-object pipeline round trip.
func TestPipelineRoundTripFiveObjects(t *testing.T) {
	sess := newTestSession()
	for i := 0; i < 5; i++ {
		obj := &object.Object{
			ClassID: 0x00000001,
			Name:    "Object_" + string(rune('0'+i)),
			Chunk:   chunkWithDwords(t, 0x00000001, uint32(i), uint32(i*10)),
		}
		sess.Repo.Insert(obj)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "scene.nmo")
	opt := SaveOptions{FileVersion: 8, CKVersion: 0x13022002}
	if err := SaveFile(path, sess, SaveDefault, opt); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	want := make(map[uint32][]byte, 5)
	for _, obj := range sess.Repo.List() {
		want[obj.ID] = append([]byte(nil), chunk.SerializeVersion1(obj.Chunk)...)
	}

	loaded := newTestSession()
	if err := LoadFile(path, loaded, LoadDefault); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Repo.Len() != 5 {
		t.Fatalf("object count = %d, want 5", loaded.Repo.Len())
	}
	if loaded.FileInfo.FileVersion != 8 {
		t.Fatalf("file_version = %d, want 8", loaded.FileInfo.FileVersion)
	}

	for _, obj := range loaded.Repo.List() {
		if obj.Chunk == nil {
			t.Fatalf("object %q: missing chunk after load", obj.Name)
		}
		if obj.ClassID != 0x00000001 {
			t.Fatalf("object %q: class_id = %#x, want 0x1", obj.Name, obj.ClassID)
		}
		wantBytes, ok := want[obj.ID]
		if !ok {
			t.Fatalf("object %q: runtime ID %d has no matching saved chunk", obj.Name, obj.ID)
		}
		if gotBytes := chunk.SerializeVersion1(obj.Chunk); string(gotBytes) != string(wantBytes) {
			t.Fatalf("object %q: chunk bytes changed across save/load round trip", obj.Name)
		}
	}
}

func TestLoadCheckDuplicatesReportsCollisions(t *testing.T) {
	sess := newTestSession()
	for i := 0; i < 3; i++ {
		obj := &object.Object{
			ClassID: 0x00000001,
			Name:    "Twin",
			Chunk:   chunkWithDwords(t, 0x00000001, uint32(i)),
		}
		sess.Repo.Insert(obj)
	}
	unique := &object.Object{ClassID: 0x00000001, Name: "Solo", Chunk: chunkWithDwords(t, 0x00000001, 99)}
	sess.Repo.Insert(unique)

	dir := t.TempDir()
	path := filepath.Join(dir, "dupes.nmo")
	opt := SaveOptions{FileVersion: 8, CKVersion: 0x13022002}
	if err := SaveFile(path, sess, SaveDefault, opt); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	loaded := newTestSession()
	if err := LoadFile(path, loaded, LoadCheckDuplicates); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := len(loaded.FinishStats.DuplicateNames); got != 2 {
		t.Fatalf("DuplicateNames = %v (len %d), want 2 collisions for the 3 \"Twin\" objects", loaded.FinishStats.DuplicateNames, got)
	}
	for _, name := range loaded.FinishStats.DuplicateNames {
		if name != "Twin" {
			t.Fatalf("unexpected duplicate name %q", name)
		}
	}

	withoutFlag := newTestSession()
	if err := LoadFile(path, withoutFlag, LoadDefault); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(withoutFlag.FinishStats.DuplicateNames) != 0 {
		t.Fatal("DuplicateNames populated despite LoadCheckDuplicates not being set")
	}
}

// S9: SaveAsObjects must strip payload from every object, not only ones
// already marked reference-only.
func TestSaveAsObjectsStripsAllPayload(t *testing.T) {
	sess := newTestSession()
	obj := &object.Object{ClassID: 1, Name: "HasPayload", Chunk: chunkWithDwords(t, 1, 42)}
	sess.Repo.Insert(obj)

	dir := t.TempDir()
	path := filepath.Join(dir, "refs_only.nmo")
	opt := SaveOptions{FileVersion: 8, CKVersion: 0x13022002}
	if err := SaveFile(path, sess, SaveAsObjects, opt); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	loaded := newTestSession()
	if err := LoadFile(path, loaded, LoadDefault); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	got := loaded.Repo.FindByName("HasPayload", 0)
	if len(got) != 1 {
		t.Fatalf("FindByName = %d results, want 1", len(got))
	}
	if got[0].Chunk != nil {
		t.Fatal("object retains a chunk after a SaveAsObjects save")
	}
}

// S10: SaveIncludeManagers must gate whether manager blobs are written.
func TestSaveIncludeManagersGatesManagerBlobs(t *testing.T) {
	sess := newTestSession()
	obj := &object.Object{ClassID: 1, Name: "Obj", Chunk: chunkWithDwords(t, 1, 1)}
	sess.Repo.Insert(obj)
	sess.Managers = []fileformat.ManagerBlob{{GUID: guid.New(1, 2), Chunk: chunkWithDwords(t, 2, 7)}}

	dir := t.TempDir()
	opt := SaveOptions{FileVersion: 8, CKVersion: 0x13022002}

	withoutPath := filepath.Join(dir, "no_managers.nmo")
	if err := SaveFile(withoutPath, sess, SaveDefault, opt); err != nil {
		t.Fatalf("SaveFile (without flag): %v", err)
	}
	loadedWithout := newTestSession()
	if err := LoadFile(withoutPath, loadedWithout, LoadDefault); err != nil {
		t.Fatalf("LoadFile (without flag): %v", err)
	}
	if len(loadedWithout.Managers) != 0 {
		t.Fatalf("manager count = %d, want 0 without SaveIncludeManagers", len(loadedWithout.Managers))
	}

	withPath := filepath.Join(dir, "with_managers.nmo")
	if err := SaveFile(withPath, sess, SaveIncludeManagers, opt); err != nil {
		t.Fatalf("SaveFile (with flag): %v", err)
	}
	loadedWith := newTestSession()
	if err := LoadFile(withPath, loadedWith, LoadDefault); err != nil {
		t.Fatalf("LoadFile (with flag): %v", err)
	}
	if len(loadedWith.Managers) != 1 {
		t.Fatalf("manager count = %d, want 1 with SaveIncludeManagers", len(loadedWith.Managers))
	}
}

func TestLoadFileNotFound(t *testing.T) {
	sess := newTestSession()
	if err := LoadFile(filepath.Join(t.TempDir(), "missing.nmo"), sess, LoadDefault); err == nil {
		t.Fatal("expected error loading a nonexistent file")
	}
}

func TestTransactionalWriteLeavesNoStagingFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	// A destination whose parent cannot be created (a regular file in the
	// path) makes opening the companion lock file fail before any staging
	// file exists.
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	dest := filepath.Join(blocker, "nested", "scene.nmo")
	if err := transactionalWrite(dest, []byte("data"), false); err == nil {
		t.Fatal("expected error writing under a non-directory path")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "blocker" && e.Name() != "blocker.lock" {
			t.Fatalf("unexpected leftover entry %q after failed transactional write", e.Name())
		}
	}
}
