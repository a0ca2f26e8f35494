package register

import (
	"fmt"
	"io/fs"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustVolume(t *testing.T, name string) Volume {
	t.Helper()
	v, err := DefaultCatalog().Volume(name)
	require.NoError(t, err)
	return v
}

func newRegister(t *testing.T, volume string, records ...Record) *VolumeRegister {
	t.Helper()
	r, err := NewVolumeRegister(mustVolume(t, volume), records)
	require.NoError(t, err)
	return r
}

func rec(title, previous, next string) Record {
	return Record{Lemma: title, Previous: previous, Next: next}
}

func titles(r *VolumeRegister) []string {
	out := make([]string, 0, r.Len())
	for _, l := range r.Lemmas() {
		out = append(out, l.Title())
	}
	return out
}

// requireLinked asserts that every entry's previous and next name its
// actual neighbors.
func requireLinked(t *testing.T, r *VolumeRegister) {
	t.Helper()
	for i := 0; i < r.Len(); i++ {
		prev, next := r.Neighbors(i)
		if i > 0 {
			require.Equal(t, i-1, prev, "previous link of %q", r.At(i).Title())
		}
		if i+1 < r.Len() {
			require.Equal(t, i+1, next, "next link of %q", r.At(i).Title())
		}
	}
}

type memStore map[string][]byte

func (m memStore) Read(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
	}
	return slices.Clone(data), nil
}

func (m memStore) Write(path string, data []byte) error {
	m[path] = slices.Clone(data)
	return nil
}

func (m memStore) Delete(path string) error {
	if _, ok := m[path]; !ok {
		return fmt.Errorf("delete %s: %w", path, fs.ErrNotExist)
	}
	delete(m, path)
	return nil
}
