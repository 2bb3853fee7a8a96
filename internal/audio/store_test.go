package audio

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistAndRelease(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	h, err := s.Persist([]byte("ID3 fake mp3"))
	require.NoError(t, err)

	data, err := os.ReadFile(h.Path)
	require.NoError(t, err)
	assert.Equal(t, "ID3 fake mp3", string(data))

	path, err := s.Path(h.Name)
	require.NoError(t, err)
	assert.Equal(t, h.Path, path)

	require.NoError(t, s.Release(h))
	_, err = os.Stat(h.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// Second release is a no-op.
	assert.NoError(t, s.Release(h))
}

func TestPersistNamesAreUniqueUnderConcurrency(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	const n = 64
	names := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := s.Persist([]byte("x"))
			if err != nil {
				t.Errorf("Persist: %v", err)
				return
			}
			names <- h.Name
		}()
	}
	wg.Wait()
	close(names)

	seen := map[string]bool{}
	for name := range names {
		assert.False(t, seen[name], "duplicate %s", name)
		seen[name] = true
	}
	assert.Len(t, seen, n)
}

func TestPathRejectsForeignNames(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../etc/passwd", "other.mp3", "emergency-call-1-zzzzzzzz.mp3", ""} {
		_, err := s.Path(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}

	_, err = s.Path("emergency-call-1-0123abcd.mp3")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
