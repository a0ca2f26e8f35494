package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return store
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("[{\"lemma\": \"Aal\"}]\n")
	if err := s.Write("I_1.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("I_1.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("registers/sub/c.json", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("registers/sub/c.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.json", []byte("bye"))
	if err := s.Delete("del.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.json"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("inbox/batch.json", []byte("data"))
	if err := s.Move("inbox/batch.json", "inbox/done/batch.json"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("inbox/done/batch.json")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("inbox/batch.json"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestMoveKeepsExistingTarget(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("inbox/batch.json", []byte("new"))
	_ = s.Write("inbox/done/batch.json", []byte("old"))

	err := s.Move("inbox/batch.json", "inbox/done/batch.json")
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("err = %v, want fs.ErrExist", err)
	}
	got, _ := s.Read("inbox/done/batch.json")
	if string(got) != "old" {
		t.Errorf("target overwritten: %q", got)
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("registers/S_I.json", []byte("[]"))
	_ = s.Write("registers/I_1.json", []byte("[{}]"))
	_ = s.Write("registers/readme.txt", []byte("not json"))
	_ = s.Write("registers/old/I_1.json", []byte("[]"))
	_ = s.Write("authors.json", []byte("{}"))

	items, err := s.List("registers")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "registers/I_1.json" || items[1].Path != "registers/S_I.json" {
		t.Errorf("paths = %q, %q", items[0].Path, items[1].Path)
	}
	if items[0].Size != 4 {
		t.Errorf("size = %d, want 4", items[0].Size)
	}
}

func TestListMissingDir(t *testing.T) {
	s := tempRoot(t)
	items, err := s.List("inbox/done")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %v", items)
	}
}

func TestWritePermissions(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("authors.json", []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(filepath.Join(s.Root(), "authors.json"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o044 == 0 {
		t.Errorf("mode = %v, want group/other readable", info.Mode().Perm())
	}
}

func TestAbs(t *testing.T) {
	s := tempRoot(t)
	got, err := s.Abs("inbox/done")
	if err != nil {
		t.Fatalf("Abs: %v", err)
	}
	if want := filepath.Join(s.Root(), "inbox", "done"); got != want {
		t.Errorf("Abs = %q, want %q", got, want)
	}
	if _, err := s.Abs("inbox/../../x"); err == nil {
		t.Error("expected error for escaping path")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	// Verify that if we read during a write the old content is intact
	// (the rename is atomic on POSIX).
	s := tempRoot(t)
	original := []byte("original content")
	_ = s.Write("atomic.json", original)

	// Overwrite with new content.
	updated := []byte("updated content")
	if err := s.Write("atomic.json", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.json")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".lexikon-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/lexikon-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "lexikon-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	s := tempRoot(t)
	_, err := s.Read("registers/missing.json")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}
