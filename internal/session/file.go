package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/naveenspark/clubdesk/pkg/domain"
)

// File names inside the session directory.
const (
	tokenFile = "token"
	userFile  = "user.json"
	clubFile  = "club.json"
)

// FileStore persists the session as three files in a private directory.
//
// The token file is the commit marker. Save removes it first and writes it
// last; Clear removes it first. A crash at any point leaves either a complete
// session or none.
type FileStore struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first Save.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileStore{dir: dir, logger: logger.With("store", "file")}
}

// Dir returns the directory holding the session files.
func (f *FileStore) Dir() string {
	return f.dir
}

func (f *FileStore) Load() *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()

	token, ok := f.read(tokenFile)
	if !ok || len(token) == 0 {
		return nil
	}
	user, _ := f.read(userFile)
	club, _ := f.read(clubFile)
	return decode(entries{token: string(token), user: user, club: club}, f.logger)
}

// read returns the file contents and whether it was readable. Missing files
// are silent; other read failures are logged.
func (f *FileStore) read(name string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("read session entry", "entry", name, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (f *FileStore) Save(s *domain.Session) error {
	if err := checkComplete(s); err != nil {
		return err
	}
	e, err := encode(s)
	if err != nil {
		return fmt.Errorf("session.FileStore.Save: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return fmt.Errorf("session.FileStore.Save: create dir: %w", err)
	}
	if err := f.remove(tokenFile); err != nil {
		return fmt.Errorf("session.FileStore.Save: %w", err)
	}
	if err := f.writeAtomic(userFile, e.user); err != nil {
		return fmt.Errorf("session.FileStore.Save: %w", err)
	}
	if e.club != nil {
		err = f.writeAtomic(clubFile, e.club)
	} else {
		err = f.remove(clubFile)
	}
	if err != nil {
		return fmt.Errorf("session.FileStore.Save: %w", err)
	}
	if err := f.writeAtomic(tokenFile, []byte(e.token)); err != nil {
		return fmt.Errorf("session.FileStore.Save: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for _, name := range []string{tokenFile, userFile, clubFile} {
		if err := f.remove(name); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("session.FileStore.Clear: %w", err)
	}
	return nil
}

func (f *FileStore) remove(name string) error {
	if err := os.Remove(filepath.Join(f.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// writeAtomic writes data to a temp file in the same directory and renames
// it over name, so readers see the old or the new contents, never a prefix.
func (f *FileStore) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(f.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
