package index

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/lexikon/internal/register"
	"github.com/starford/lexikon/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "lexikon-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM volumes`).Scan(&count); err != nil {
		t.Fatalf("volumes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM lemmas`).Scan(&count); err != nil {
		t.Fatalf("lemmas table missing: %v", err)
	}
}

func TestReplaceVolumeAndLookup(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	if err := db.ReplaceVolume(VolumeRow{Name: "III,1", SortKey: "1_03_1", Checksum: "c3", UpdatedAt: now}, []LemmaRow{
		{Position: 0, Title: "Beta", SortKey: "beta", Chapters: 1, Authors: []string{"Otto Schmidt"}, Valid: true},
	}); err != nil {
		t.Fatalf("ReplaceVolume: %v", err)
	}
	if err := db.ReplaceVolume(VolumeRow{Name: "I,1", SortKey: "1_01_1", Checksum: "c1", UpdatedAt: now}, []LemmaRow{
		{Position: 0, Title: "Aal", SortKey: "aal"},
		{Position: 1, Title: "Beta", SortKey: "beta", Next: "Bz"},
		{Position: 2, Title: "Bz", SortKey: "bz", Previous: "Beta"},
	}); err != nil {
		t.Fatalf("ReplaceVolume: %v", err)
	}

	got, err := db.Lookup("be", 10)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Volume != "I,1" || got[1].Volume != "III,1" {
		t.Errorf("volumes = %q, %q, want I,1 before III,1", got[0].Volume, got[1].Volume)
	}
	if len(got[1].Authors) != 1 || got[1].Authors[0] != "Otto Schmidt" || !got[1].Valid {
		t.Errorf("row = %+v", got[1])
	}

	vols, err := db.Volumes()
	if err != nil {
		t.Fatalf("Volumes: %v", err)
	}
	if len(vols) != 2 || vols[0].Name != "I,1" || vols[0].LemmaCount != 3 {
		t.Errorf("volumes = %+v", vols)
	}
}

func TestReplaceVolumeReplacesRows(t *testing.T) {
	db := testDB(t)
	v := VolumeRow{Name: "I,1", SortKey: "1_01_1", Checksum: "1", UpdatedAt: time.Now()}
	_ = db.ReplaceVolume(v, []LemmaRow{{Position: 0, Title: "Old", SortKey: "old"}})
	v.Checksum = "2"
	_ = db.ReplaceVolume(v, []LemmaRow{{Position: 0, Title: "New", SortKey: "new"}})

	if rows, _ := db.Lookup("old", 10); len(rows) != 0 {
		t.Error("old row should be removed on replace")
	}
	if rows, _ := db.Lookup("new", 10); len(rows) != 1 {
		t.Error("new row should exist")
	}
	sums, _ := db.AllChecksums()
	if sums["I,1"] != "2" {
		t.Errorf("checksum = %q, want %q", sums["I,1"], "2")
	}
}

func TestDeleteVolume(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceVolume(VolumeRow{Name: "S I", SortKey: "3_01_0", Checksum: "x", UpdatedAt: time.Now()},
		[]LemmaRow{{Position: 0, Title: "Abae", SortKey: "abae"}})

	if err := db.DeleteVolume("S I"); err != nil {
		t.Fatalf("DeleteVolume: %v", err)
	}
	sums, _ := db.AllChecksums()
	if _, ok := sums["S I"]; ok {
		t.Error("deleted volume still has a checksum")
	}
	if rows, _ := db.Lookup("abae", 10); len(rows) != 0 {
		t.Errorf("expected 0 rows after delete, got %d", len(rows))
	}
}

func TestLookupEscapesWildcards(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceVolume(VolumeRow{Name: "I,1", SortKey: "1_01_1", UpdatedAt: time.Now()}, []LemmaRow{
		{Position: 0, Title: "a%x", SortKey: "a%x"},
		{Position: 1, Title: "abc", SortKey: "abc"},
		{Position: 2, Title: "a_c", SortKey: "a_c"},
	})

	rows, err := db.Lookup("a%", 10)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "a%x" {
		t.Errorf("rows = %+v, want only a%%x", rows)
	}
	rows, _ = db.Lookup("a_", 10)
	if len(rows) != 1 || rows[0].Title != "a_c" {
		t.Errorf("rows = %+v, want only a_c", rows)
	}
}

func TestReferrers(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceVolume(VolumeRow{Name: "I,1", SortKey: "1_01_1", UpdatedAt: time.Now()}, []LemmaRow{
		{Position: 0, Title: "Abae", SortKey: "abae", Next: "Abai"},
		{Position: 1, Title: "Abai", SortKey: "abai", Previous: "Abae"},
		{Position: 2, Title: "Abas", SortKey: "abas", Redirect: "Abai"},
	})

	refs, err := db.Referrers("Abai")
	if err != nil {
		t.Fatalf("Referrers: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 referrers, got %d", len(refs))
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	authors := register.NewAuthorDirectory()
	authors.Map("Schmidt", register.Wildcard, "Otto Schmidt")

	regs := register.NewRegisters(register.DefaultCatalog(), authors, store)
	_ = regs.Seed("I,1", []register.Record{
		{Lemma: "Aal", Chapters: []register.Chapter{{Start: 1, End: 2, Author: "Schmidt"}, {Start: 3, End: 3, Author: "Schmidt"}}},
	})
	_ = regs.Seed("S I", []register.Record{{Lemma: "Abae"}})
	if _, err := regs.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	changed, err := Sync(db, regs, testLogger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(changed) != 2 {
		t.Errorf("changed = %v, want both volumes", changed)
	}
	rows, _ := db.Lookup("aal", 10)
	if len(rows) != 1 || len(rows[0].Authors) != 1 || rows[0].Authors[0] != "Otto Schmidt" || rows[0].Chapters != 2 {
		t.Errorf("rows = %+v", rows)
	}

	changed, _ = Sync(db, regs, testLogger())
	if len(changed) != 0 {
		t.Errorf("second sync changed %v, want nothing", changed)
	}

	if err := store.Delete("registers/S_I.json"); err != nil {
		t.Fatal(err)
	}
	reloaded := register.NewRegisters(register.DefaultCatalog(), authors, store)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, _ = Sync(db, reloaded, testLogger())
	sums, _ := db.AllChecksums()
	if _, ok := sums["S I"]; ok {
		t.Error("stale volume should be removed from the index")
	}
	if _, ok := sums["I,1"]; !ok {
		t.Error("loaded volume should stay indexed")
	}
}
