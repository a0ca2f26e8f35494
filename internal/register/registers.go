package register

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/starford/lexikon/internal/apperr"
	"github.com/starford/lexikon/internal/checksum"
	"github.com/starford/lexikon/internal/sortkey"
)

// Persisted file names, relative to the store root.
const (
	RegisterDir       = "registers"
	AuthorsFile       = "authors.json"
	AuthorMappingFile = "authors_mapping.json"
)

// DefaultBoundaries partitions the alphabet into the ranges of the printed
// alphabetic registers.
var DefaultBoundaries = []string{
	"a", "ak", "an", "ar", "as", "b", "ca", "ch", "da", "di", "ea", "er", "f",
	"g", "ha", "hi", "i", "k", "kj", "l", "lf", "m", "mb", "mi", "n", "o", "p",
	"pe", "pi", "po", "pr", "q", "r", "s", "sc", "se", "so", "t", "th", "ti",
	"u", "uf", "x", "y", "z", "zzzzzz",
}

// Store reads and writes persisted files by relative path. Read must return
// an error matching fs.ErrNotExist for missing files.
type Store interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Delete(path string) error
}

// Range is one [Start, End) slice of the alphabet.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Registers is the catalog facade: it owns one VolumeRegister per loaded
// volume plus the lazily built alphabetic views. It is not safe for
// concurrent use.
type Registers struct {
	catalog    *Catalog
	authors    *AuthorDirectory
	store      Store
	boundaries []string
	key        keyFunc

	volumes    map[string]*VolumeRegister
	checksums  map[string]string
	alphabetic map[string]*AlphabeticRegister
}

// Option configures Registers.
type Option func(*Registers)

// WithBoundaries replaces DefaultBoundaries.
func WithBoundaries(b []string) Option {
	return func(r *Registers) { r.boundaries = b }
}

// WithKeyCache derives sort keys through c instead of normalizing every
// title and link anew.
func WithKeyCache(c *sortkey.Cache) Option {
	return func(r *Registers) { r.key = c.Key }
}

// NewRegisters creates an empty facade. Call Load to read persisted state.
func NewRegisters(catalog *Catalog, authors *AuthorDirectory, store Store, opts ...Option) *Registers {
	r := &Registers{
		catalog:    catalog,
		authors:    authors,
		store:      store,
		boundaries: DefaultBoundaries,
		key:        sortkey.Normalize,
		volumes:    make(map[string]*VolumeRegister),
		checksums:  make(map[string]string),
		alphabetic: make(map[string]*AlphabeticRegister),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ReadAuthorDirectory loads both author files from store; missing files
// yield an empty directory.
func ReadAuthorDirectory(store Store) (*AuthorDirectory, error) {
	authors, err := readOptional(store, AuthorsFile)
	if err != nil {
		return nil, err
	}
	mapping, err := readOptional(store, AuthorMappingFile)
	if err != nil {
		return nil, err
	}
	return LoadAuthorDirectory(authors, mapping)
}

func readOptional(store Store, name string) ([]byte, error) {
	data, err := store.Read(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func registerPath(v Volume) string {
	return path.Join(RegisterDir, v.FileName())
}

// Load reads the register of every cataloged volume. Volumes without a
// register file are skipped.
func (r *Registers) Load() error {
	volumes := make(map[string]*VolumeRegister, r.catalog.Len())
	checksums := make(map[string]string, r.catalog.Len())
	for _, v := range r.catalog.All() {
		data, err := r.store.Read(registerPath(v))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("register: load %s: %w", v.Name, err)
		}
		reg, err := parseVolumeRegister(v, data, r.key)
		if err != nil {
			return err
		}
		volumes[v.Name] = reg
		checksums[v.Name] = checksum.Sum(data)
	}
	r.volumes = volumes
	r.checksums = checksums
	r.alphabetic = make(map[string]*AlphabeticRegister)
	return nil
}

// Persist writes every register whose content changed since it was loaded
// or last persisted, then both author files. It returns the names of the
// volumes written.
func (r *Registers) Persist() ([]string, error) {
	var written []string
	for _, reg := range r.Volumes() {
		data, err := reg.Encode()
		if err != nil {
			return written, fmt.Errorf("register: encode %s: %w", reg.volume.Name, err)
		}
		sum := checksum.Sum(data)
		if r.checksums[reg.volume.Name] == sum {
			continue
		}
		if err := r.store.Write(registerPath(reg.volume), data); err != nil {
			return written, fmt.Errorf("register: persist %s: %w", reg.volume.Name, err)
		}
		r.checksums[reg.volume.Name] = sum
		written = append(written, reg.volume.Name)
	}

	authors, err := r.authors.MarshalAuthors()
	if err != nil {
		return written, fmt.Errorf("register: encode authors: %w", err)
	}
	if err := r.store.Write(AuthorsFile, authors); err != nil {
		return written, fmt.Errorf("register: persist authors: %w", err)
	}
	mapping, err := r.authors.MarshalMapping()
	if err != nil {
		return written, fmt.Errorf("register: encode author mapping: %w", err)
	}
	if err := r.store.Write(AuthorMappingFile, mapping); err != nil {
		return written, fmt.Errorf("register: persist author mapping: %w", err)
	}
	return written, nil
}

func (r *Registers) Catalog() *Catalog         { return r.catalog }
func (r *Registers) Authors() *AuthorDirectory { return r.authors }

// Checksum returns the content checksum of the volume's register as last
// loaded or persisted.
func (r *Registers) Checksum(volume string) string {
	return r.checksums[volume]
}

// Volume returns the loaded register of the named volume.
func (r *Registers) Volume(name string) (*VolumeRegister, error) {
	v, err := r.catalog.Volume(name)
	if err != nil {
		return nil, err
	}
	reg, ok := r.volumes[v.Name]
	if !ok {
		return nil, &apperr.RegisterError{Volume: name, Message: "no register loaded", Err: apperr.ErrNotFound}
	}
	return reg, nil
}

// Volumes returns every loaded register in catalog order.
func (r *Registers) Volumes() []*VolumeRegister {
	out := make([]*VolumeRegister, 0, len(r.volumes))
	for _, v := range r.catalog.All() {
		if reg, ok := r.volumes[v.Name]; ok {
			out = append(out, reg)
		}
	}
	return out
}

// Update routes rec to the register of the named volume. Alphabetic views
// are dropped on success.
func (r *Registers) Update(volume string, rec Record, remove []string, opts ...UpdateOption) (Strategy, error) {
	reg, err := r.Volume(volume)
	if err != nil {
		return StrategyNone, err
	}
	strategy, err := reg.Update(rec, remove, opts...)
	if err != nil {
		return strategy, err
	}
	clear(r.alphabetic)
	return strategy, nil
}

// Seed installs records as the register of the named volume, replacing any
// loaded one. It is how a volume gets its first entries.
func (r *Registers) Seed(volume string, records []Record) error {
	v, err := r.catalog.Volume(volume)
	if err != nil {
		return err
	}
	reg, err := newVolumeRegister(v, records, r.key)
	if err != nil {
		return err
	}
	r.volumes[v.Name] = reg
	clear(r.alphabetic)
	return nil
}

// Drop unloads the register of the named volume and deletes its file. It
// returns the number of entries the register held.
func (r *Registers) Drop(volume string) (int, error) {
	reg, err := r.Volume(volume)
	if err != nil {
		return 0, err
	}
	name := reg.volume.Name
	if err := r.store.Delete(registerPath(reg.volume)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("register: drop %s: %w", name, err)
	}
	delete(r.volumes, name)
	delete(r.checksums, name)
	clear(r.alphabetic)
	return reg.Len(), nil
}

// AlphabeticRanges returns the adjacent [start, end) pairs of the boundaries.
func (r *Registers) AlphabeticRanges() []Range {
	if len(r.boundaries) < 2 {
		return nil
	}
	out := make([]Range, 0, len(r.boundaries)-1)
	for i := 0; i+1 < len(r.boundaries); i++ {
		out = append(out, Range{Start: r.boundaries[i], End: r.boundaries[i+1]})
	}
	return out
}

// Alphabetic returns the alphabetic register of the range beginning at
// start, building it on first access.
func (r *Registers) Alphabetic(start string) (*AlphabeticRegister, error) {
	if a, ok := r.alphabetic[start]; ok {
		return a, nil
	}
	for _, rg := range r.AlphabeticRanges() {
		if rg.Start != start {
			continue
		}
		a := BuildAlphabetic(rg.Start, rg.End, r.Volumes())
		r.alphabetic[start] = a
		return a, nil
	}
	return nil, fmt.Errorf("register: alphabetic range %q: %w", start, apperr.ErrNotFound)
}

// Check runs the integrity check over every loaded register.
func (r *Registers) Check(opts CheckOptions) []Issue {
	var issues []Issue
	for _, reg := range r.Volumes() {
		issues = append(issues, reg.Check(opts)...)
	}
	return issues
}
