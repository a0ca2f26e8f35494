package register

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testAuthorsJSON = `{
  "Otto Schmidt": {"birth": 1870, "death": 1950},
  "Maria Weber": {"birth": 1900, "death": 1970}
}`
	testMappingJSON = `{
  "Schmidt": "Otto Schmidt",
  "Weber": {"*": "Maria Weber", "I,1": "Otto Schmidt"},
  "Ghost": "Ghost Writer"
}`
)

func testAuthors(t *testing.T) *AuthorDirectory {
	t.Helper()
	d, err := LoadAuthorDirectory([]byte(testAuthorsJSON), []byte(testMappingJSON))
	require.NoError(t, err)
	return d
}

func TestAuthorResolve(t *testing.T) {
	d := testAuthors(t)

	tests := []struct {
		citation string
		volume   string
		want     string
		found    bool
	}{
		{"Schmidt", "II,1", "Otto Schmidt", true},
		{"Weber", "I,1", "Otto Schmidt", true},
		{"Weber", "II,1", "Maria Weber", true},
		{"Ghost", "I,1", "Ghost Writer", true},
		{"Nobody", "I,1", "", false},
	}
	for _, tt := range tests {
		a, ok := d.Resolve(tt.citation, tt.volume)
		require.Equal(t, tt.found, ok, "%s in %s", tt.citation, tt.volume)
		require.Equal(t, tt.want, a.Name, "%s in %s", tt.citation, tt.volume)
	}

	a, _ := d.Resolve("Weber", "II,1")
	require.NotNil(t, a.Death)
	require.Equal(t, 1970, *a.Death)

	ghost, _ := d.Resolve("Ghost", "I,1")
	require.Nil(t, ghost.Death)
}

func TestAuthorDirectoryMarshalSorted(t *testing.T) {
	d := testAuthors(t)
	death := 1930
	d.AddAuthor(Author{Name: "Anton Adler", Death: &death})
	d.Map("Adler", Wildcard, "Anton Adler")

	authors, err := d.MarshalAuthors()
	require.NoError(t, err)
	out := string(authors)
	require.Less(t, strings.Index(out, "Anton Adler"), strings.Index(out, "Maria Weber"))
	require.Less(t, strings.Index(out, "Maria Weber"), strings.Index(out, "Otto Schmidt"))

	mapping, err := d.MarshalMapping()
	require.NoError(t, err)
	require.Contains(t, string(mapping), `"Schmidt": "Otto Schmidt"`)
	require.Contains(t, string(mapping), `"I,1": "Otto Schmidt"`)

	reloaded, err := LoadAuthorDirectory(authors, mapping)
	require.NoError(t, err)
	require.Equal(t, d.Names(), reloaded.Names())
	a, ok := reloaded.Resolve("Adler", "S I")
	require.True(t, ok)
	require.Equal(t, 1930, *a.Death)
}

func TestLoadAuthorDirectoryNullFiles(t *testing.T) {
	d, err := LoadAuthorDirectory([]byte("null"), []byte("null"))
	require.NoError(t, err)

	d.Map("Schmidt", Wildcard, "Otto Schmidt")
	a, ok := d.Resolve("Schmidt", "I,1")
	require.True(t, ok)
	require.Equal(t, "Otto Schmidt", a.Name)

	d, err = LoadAuthorDirectory(nil, []byte(`{"Weber": null}`))
	require.NoError(t, err)
	d.Map("Weber", "I,1", "Maria Weber")
	a, ok = d.Resolve("Weber", "I,1")
	require.True(t, ok)
	require.Equal(t, "Maria Weber", a.Name)
}
