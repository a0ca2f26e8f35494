// Package export writes the catalog as a flat Parquet table, one row per
// chapter, for analysis outside the service.
package export

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/starford/lexikon/internal/register"
)

// Row is one chapter of one lemma. Lemmas without chapters export a single
// row with Chapter set to -1.
type Row struct {
	Volume      string `parquet:"volume"`
	VolumeSort  string `parquet:"volume_sort"`
	Position    int64  `parquet:"position"`
	Lemma       string `parquet:"lemma"`
	SortKey     string `parquet:"sort_key"`
	Redirect    bool   `parquet:"redirect"`
	Chapter     int64  `parquet:"chapter"`
	StartPage   int64  `parquet:"start_page"`
	EndPage     int64  `parquet:"end_page"`
	Citation    string `parquet:"citation"`
	Author      string `parquet:"author"`
	AuthorDeath *int64 `parquet:"author_death,optional"`
}

// Rows flattens the registers into export rows, in catalog order.
func Rows(registers []*register.VolumeRegister, authors *register.AuthorDirectory) []Row {
	var out []Row
	for _, reg := range registers {
		v := reg.Volume()
		for i, l := range reg.Lemmas() {
			_, redirect := l.Redirect()
			base := Row{
				Volume:     v.Name,
				VolumeSort: v.SortKey,
				Position:   int64(i),
				Lemma:      l.Title(),
				SortKey:    l.SortKey(),
				Redirect:   redirect,
				Chapter:    -1,
			}
			chapters := l.Chapters()
			if len(chapters) == 0 {
				out = append(out, base)
				continue
			}
			for n, c := range chapters {
				row := base
				row.Chapter = int64(n)
				row.StartPage = int64(c.Start)
				row.EndPage = int64(c.End)
				row.Citation = c.Author
				if c.Author != "" && authors != nil {
					if a, ok := authors.Resolve(c.Author, v.Name); ok {
						row.Author = a.Name
						if a.Death != nil {
							death := int64(*a.Death)
							row.AuthorDeath = &death
						}
					}
				}
				out = append(out, row)
			}
		}
	}
	return out
}

// Write encodes rows as Parquet to w.
func Write(w io.Writer, rows []Row) error {
	pw := parquet.NewGenericWriter[Row](w)
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("export: write rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("export: close writer: %w", err)
	}
	return nil
}
