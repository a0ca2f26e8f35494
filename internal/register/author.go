package register

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Wildcard is the mapping key used when no volume-specific override exists.
const Wildcard = "*"

// Author is a canonical contributor identity.
type Author struct {
	Name  string
	Birth *int
	Death *int
}

type authorRecord struct {
	Birth *int `json:"birth,omitempty"`
	Death *int `json:"death,omitempty"`
}

// Citation maps a volume name (or Wildcard) to a canonical author name.
type Citation map[string]string

// UnmarshalJSON accepts either a plain name (wildcard only) or an object
// keyed by volume.
func (c *Citation) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*c = Citation{Wildcard: name}
		return nil
	}
	var byVolume map[string]string
	if err := json.Unmarshal(data, &byVolume); err != nil {
		return fmt.Errorf("citation must be a name or an object keyed by volume: %w", err)
	}
	*c = byVolume
	return nil
}

// MarshalJSON writes a citation with only a wildcard entry as a plain name.
func (c Citation) MarshalJSON() ([]byte, error) {
	if name, ok := c[Wildcard]; ok && len(c) == 1 {
		return json.Marshal(name)
	}
	return json.Marshal(map[string]string(c))
}

// AuthorDirectory resolves short citation strings used inside chapters to
// canonical authors.
type AuthorDirectory struct {
	authors map[string]Author
	mapping map[string]Citation
}

// NewAuthorDirectory creates an empty directory.
func NewAuthorDirectory() *AuthorDirectory {
	return &AuthorDirectory{
		authors: make(map[string]Author),
		mapping: make(map[string]Citation),
	}
}

// LoadAuthorDirectory decodes the authors file and the citation mapping file.
// Either may be nil.
func LoadAuthorDirectory(authorsJSON, mappingJSON []byte) (*AuthorDirectory, error) {
	d := NewAuthorDirectory()
	if len(authorsJSON) > 0 {
		var records map[string]authorRecord
		if err := json.Unmarshal(authorsJSON, &records); err != nil {
			return nil, fmt.Errorf("register: parse authors: %w", err)
		}
		for name, r := range records {
			d.authors[name] = Author{Name: name, Birth: r.Birth, Death: r.Death}
		}
	}
	if len(mappingJSON) > 0 {
		if err := json.Unmarshal(mappingJSON, &d.mapping); err != nil {
			return nil, fmt.Errorf("register: parse author mapping: %w", err)
		}
		if d.mapping == nil {
			d.mapping = make(map[string]Citation)
		}
	}
	return d, nil
}

// AddAuthor inserts or replaces a canonical author.
func (d *AuthorDirectory) AddAuthor(a Author) {
	d.authors[a.Name] = a
}

// Map binds citation to name for volume; use Wildcard for every volume.
func (d *AuthorDirectory) Map(citation, volume, name string) {
	c := d.mapping[citation]
	if c == nil {
		c = Citation{}
		d.mapping[citation] = c
	}
	c[volume] = name
}

// Author returns the canonical author called name.
func (d *AuthorDirectory) Author(name string) (Author, bool) {
	a, ok := d.authors[name]
	return a, ok
}

// Resolve maps a citation used in volume to its canonical author, falling
// back to the wildcard entry. A mapped name without an author record resolves
// to an author without life dates.
func (d *AuthorDirectory) Resolve(citation, volume string) (Author, bool) {
	c, ok := d.mapping[citation]
	if !ok {
		return Author{}, false
	}
	name, ok := c[volume]
	if !ok {
		if name, ok = c[Wildcard]; !ok {
			return Author{}, false
		}
	}
	if a, ok := d.authors[name]; ok {
		return a, true
	}
	return Author{Name: name}, true
}

// Names returns every canonical author name, sorted.
func (d *AuthorDirectory) Names() []string {
	names := make([]string, 0, len(d.authors))
	for name := range d.authors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalAuthors encodes the authors file with keys sorted.
func (d *AuthorDirectory) MarshalAuthors() ([]byte, error) {
	records := make(map[string]authorRecord, len(d.authors))
	for name, a := range d.authors {
		records[name] = authorRecord{Birth: a.Birth, Death: a.Death}
	}
	return encodeJSON(records)
}

// MarshalMapping encodes the citation mapping file with keys sorted.
func (d *AuthorDirectory) MarshalMapping() ([]byte, error) {
	return encodeJSON(d.mapping)
}

// encodeJSON writes indented JSON without HTML escaping; map keys come out
// sorted, which keeps diffs of the persisted files deterministic.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
