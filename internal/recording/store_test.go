package recording

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{ after int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := min(len(p), r.after)
	r.after -= n
	return n, nil
}

func TestStore_SaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	path, n, err := s.Save("RE1", strings.NewReader("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "RE1.mp3"), path)
	assert.Equal(t, int64(5), n)

	_, _, err = s.Save("RE1", strings.NewReader("second"))
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))
}

func TestStore_FailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	_, _, err := s.Save("RE1", &failingReader{after: 10})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_RejectsUnsafeSid(t *testing.T) {
	s := NewStore(t.TempDir())
	for _, sid := range []string{"", "../RE1", "a/b", "RE1.mp3"} {
		_, _, err := s.Save(sid, io.MultiReader())
		assert.ErrorIs(t, err, ErrInvalidSID, sid)
	}
}
