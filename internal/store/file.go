package store

import (
	"os"
	"path/filepath"

	"codeberg.org/mutker/powermon/internal/errors"
)

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
)

// FileStore keeps each blob as a file under a single directory. Writes
// go through a temp file and rename so an abrupt power loss leaves
// either the old blob or the new one, never a torn write.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(errors.ErrInitFailed, err)
	}

	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Read(name string) ([]byte, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if os.IsNotExist(err) {
		return nil, errFactory.Wrap(errors.ErrBlobNotFound, err)
	}
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrStateLoad, err)
	}

	return data, nil
}

func (f *FileStore) Write(name string, data []byte) error {
	errFactory := errors.New()

	path := filepath.Join(f.dir, name)
	tmp := path + ".tmp"

	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, defaultFilePerm)
	if err != nil {
		return errFactory.Wrap(errors.ErrStateSave, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return errFactory.Wrap(errors.ErrStateSave, err)
	}
	// The data must reach stable storage before the rename: power can
	// drop at any instant, and a rename pointing at unflushed blocks
	// resurfaces as a truncated blob on the next boot.
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return errFactory.Wrap(errors.ErrStateSave, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return errFactory.Wrap(errors.ErrStateSave, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errFactory.Wrap(errors.ErrStateSave, err)
	}

	return f.syncDir()
}

// syncDir makes the rename itself durable.
func (f *FileStore) syncDir() error {
	errFactory := errors.New()

	dir, err := os.Open(f.dir)
	if err != nil {
		return errFactory.Wrap(errors.ErrStateSave, err)
	}
	defer dir.Close()

	if err := dir.Sync(); err != nil {
		return errFactory.Wrap(errors.ErrStateSave, err)
	}

	return nil
}

func (f *FileStore) Remove(name string) error {
	errFactory := errors.New()

	err := os.Remove(filepath.Join(f.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrOperationFailed, err)
	}

	return nil
}

// IsNotFound reports whether err means the blob does not exist.
func IsNotFound(err error) bool {
	return errors.HasCode(err, errors.ErrBlobNotFound)
}
