package fix

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
)

// BackupTimeFormat is the timestamp embedded in backup file names.
const BackupTimeFormat = "20060102-150405.000000000"

type writeFunc func(path string, data []byte, perm fs.FileMode) error

// safetyNet holds what is needed to undo one write: the original bytes in
// memory and, optionally, a backup file on disk. The backup file is kept
// after release.
type safetyNet struct {
	path     string
	original []byte
	perm     fs.FileMode
	backup   string
}

func acquire(path string, original []byte, perm fs.FileMode, backup bool, now time.Time) (*safetyNet, error) {
	n := &safetyNet{path: path, original: original, perm: perm}
	if !backup {
		return n, nil
	}
	name, err := writeBackup(path, original, perm, now)
	if err != nil {
		return nil, fmt.Errorf("backup %s: %w", path, err)
	}
	n.backup = name
	return n, nil
}

func (n *safetyNet) restore(write writeFunc) error {
	return write(n.path, n.original, n.perm)
}

func (n *safetyNet) release() {
	n.original = nil
}

// BackupName returns the backup path for path taken at now.
func BackupName(path string, now time.Time) string {
	return path + "." + now.UTC().Format(BackupTimeFormat) + ".bak"
}

// writeBackup creates the backup exclusively so an earlier backup is never
// overwritten. A name collision falls back to a uuid-suffixed name.
func writeBackup(path string, data []byte, perm fs.FileMode, now time.Time) (string, error) {
	name := BackupName(path, now)
	for range 3 {
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if errors.Is(err, fs.ErrExist) {
			name = path + "." + now.UTC().Format(BackupTimeFormat) + "-" + uuid.NewString() + ".bak"
			continue
		}
		if err != nil {
			return "", err
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if err := errors.Join(werr, cerr); err != nil {
			os.Remove(name)
			return "", err
		}
		return name, nil
	}
	return "", fmt.Errorf("no free backup name for %s", path)
}
