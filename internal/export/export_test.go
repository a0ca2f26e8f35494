package export

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/starford/lexikon/internal/register"
)

func testRegisters(t *testing.T) ([]*register.VolumeRegister, *register.AuthorDirectory) {
	t.Helper()
	v, err := register.DefaultCatalog().Volume("I,1")
	if err != nil {
		t.Fatal(err)
	}
	reg, err := register.NewVolumeRegister(v, []register.Record{
		{Lemma: "Aal", Chapters: []register.Chapter{{Start: 1, End: 2, Author: "Schmidt"}, {Start: 3, End: 3}}},
		{Lemma: "Abae", Redirect: &register.Redirect{Target: "Abai"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	death := 1950
	authors := register.NewAuthorDirectory()
	authors.AddAuthor(register.Author{Name: "Otto Schmidt", Death: &death})
	authors.Map("Schmidt", register.Wildcard, "Otto Schmidt")
	return []*register.VolumeRegister{reg}, authors
}

func TestRows(t *testing.T) {
	regs, authors := testRegisters(t)
	rows := Rows(regs, authors)
	if len(rows) != 3 {
		t.Fatalf("len = %d, want 3", len(rows))
	}
	if rows[0].Author != "Otto Schmidt" || rows[0].AuthorDeath == nil || *rows[0].AuthorDeath != 1950 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Chapter != 1 || rows[1].Author != "" {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[2].Chapter != -1 || !rows[2].Redirect {
		t.Errorf("row 2 = %+v", rows[2])
	}
}

func TestWriteReadable(t *testing.T) {
	regs, authors := testRegisters(t)
	want := Rows(regs, authors)

	var buf bytes.Buffer
	if err := Write(&buf, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	pf, err := parquet.OpenFile(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if pf.NumRows() != int64(len(want)) {
		t.Fatalf("rows = %d, want %d", pf.NumRows(), len(want))
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()
	got := make([]Row, len(want))
	n, err := reader.Read(got)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("Read: %v", err)
	}
	if n != len(want) {
		t.Fatalf("read %d rows, want %d", n, len(want))
	}
	if got[0].Lemma != "Aal" || got[0].Citation != "Schmidt" || got[2].AuthorDeath != nil {
		t.Errorf("got = %+v", got)
	}
}
