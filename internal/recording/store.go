// Package recording persists finished call recordings and fans them out to
// transcription and chat.
package recording

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"hotline-relay/internal/telephony"
)

const Ext = ".mp3"

var ErrInvalidSID = errors.New("recording: invalid recording sid")

// Store writes recordings to a flat directory keyed by recording sid.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// FileName is the stored name for sid, also used as the public URL path.
func FileName(sid string) string { return sid + Ext }

// Path returns where sid is stored.
func (s *Store) Path(sid string) (string, error) {
	if !telephony.ValidSID(sid) {
		return "", ErrInvalidSID
	}
	return filepath.Join(s.dir, FileName(sid)), nil
}

// Save copies r to the sid's file, replacing any previous copy. The file only
// appears once r has been fully read; on error nothing is left behind.
func (s *Store) Save(sid string, r io.Reader) (string, int64, error) {
	dst, err := s.Path(sid)
	if err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp(s.dir, "."+sid+"-*.part")
	if err != nil {
		return "", 0, fmt.Errorf("recording: create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return "", n, fmt.Errorf("recording: write %s: %w", sid, err)
	}
	if err := tmp.Close(); err != nil {
		return "", n, fmt.Errorf("recording: close %s: %w", sid, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", n, fmt.Errorf("recording: chmod %s: %w", sid, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", n, fmt.Errorf("recording: rename %s: %w", sid, err)
	}
	committed = true
	return dst, n, nil
}
