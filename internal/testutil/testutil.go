// Package testutil provides shared test helpers for setting up data
// directories, databases and seeded registers.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/lexikon/internal/index"
	"github.com/starford/lexikon/internal/register"
	"github.com/starford/lexikon/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "lexikon-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary data directory with a storage.FS.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestRegisters returns registers backed by a temporary store with two
// volumes seeded:
//
//	I,1: Aal -> Abae -> Beta
//	S I: Abae (redirect to Abai)
//
// "Schmidt" resolves to Otto Schmidt, died 1950.
func TestRegisters(t *testing.T) (*register.Registers, *storage.FS) {
	t.Helper()
	_, store := TestStore(t)

	death := 1950
	authors := register.NewAuthorDirectory()
	authors.AddAuthor(register.Author{Name: "Otto Schmidt", Death: &death})
	authors.Map("Schmidt", register.Wildcard, "Otto Schmidt")

	regs := register.NewRegisters(register.DefaultCatalog(), authors, store)
	seed := map[string][]register.Record{
		"I,1": {
			{Lemma: "Aal", Next: "Abae", Chapters: []register.Chapter{{Start: 1, End: 2, Author: "Schmidt"}}},
			{Lemma: "Abae", Previous: "Aal", Next: "Beta", Chapters: []register.Chapter{{Start: 3, End: 3}}},
			{Lemma: "Beta", Previous: "Abae", Chapters: []register.Chapter{{Start: 4, End: 9}}},
		},
		"S I": {
			{Lemma: "Abae", Redirect: &register.Redirect{Target: "Abai"}},
		},
	}
	for volume, records := range seed {
		if err := regs.Seed(volume, records); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := regs.Persist(); err != nil {
		t.Fatal(err)
	}
	return regs, store
}
