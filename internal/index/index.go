package index

// LemmaIndex defines the interface for lemma indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type LemmaIndex interface {
	ReplaceVolume(v VolumeRow, lemmas []LemmaRow) error
	DeleteVolume(name string) error
	AllChecksums() (map[string]string, error)
	Lookup(prefix string, limit int) ([]LemmaRow, error)
	Referrers(title string) ([]LemmaRow, error)
	Volumes() ([]VolumeRow, error)
	Close() error
}

// Verify *DB satisfies LemmaIndex at compile time.
var _ LemmaIndex = (*DB)(nil)
