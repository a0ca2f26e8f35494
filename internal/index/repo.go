package index

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// VolumeRow represents a row in the volumes table.
type VolumeRow struct {
	Name       string    `json:"name"`
	SortKey    string    `json:"sort_key"`
	Checksum   string    `json:"checksum"`
	LemmaCount int       `json:"lemma_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LemmaRow represents a row in the lemmas table.
type LemmaRow struct {
	Volume     string   `json:"volume"`
	Position   int      `json:"position"`
	Title      string   `json:"title"`
	SortKey    string   `json:"sort_key"`
	VolumeSort string   `json:"-"`
	Previous   string   `json:"previous,omitempty"`
	Next       string   `json:"next,omitempty"`
	Redirect   string   `json:"redirect,omitempty"`
	Chapters   int      `json:"chapters"`
	Authors    []string `json:"authors,omitempty"`
	Valid      bool     `json:"valid"`
}

const lemmaColumns = `volume, position, title, sort_key, volume_sort, previous, next, redirect, chapters, authors, valid`

// ReplaceVolume replaces every indexed lemma of a volume within a transaction.
func (db *DB) ReplaceVolume(v VolumeRow, lemmas []LemmaRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO volumes (name, sort_key, checksum, lemma_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			sort_key    = excluded.sort_key,
			checksum    = excluded.checksum,
			lemma_count = excluded.lemma_count,
			updated_at  = excluded.updated_at
	`, v.Name, v.SortKey, v.Checksum, len(lemmas), v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert volume: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM lemmas WHERE volume = ?`, v.Name); err != nil {
		return fmt.Errorf("index: clear lemmas: %w", err)
	}
	if len(lemmas) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO lemmas (` + lemmaColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare lemma insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range lemmas {
			authors, _ := json.Marshal(nonNil(l.Authors))
			if _, err := stmt.Exec(v.Name, l.Position, l.Title, l.SortKey, v.SortKey,
				l.Previous, l.Next, l.Redirect, l.Chapters, string(authors), l.Valid); err != nil {
				return fmt.Errorf("index: insert lemma: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteVolume removes a volume and its lemmas.
func (db *DB) DeleteVolume(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM lemmas WHERE volume = ?`, name)
	_, _ = tx.Exec(`DELETE FROM volumes WHERE name = ?`, name)

	return tx.Commit()
}

// AllChecksums returns the indexed checksum of every volume.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM volumes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// Volumes returns every indexed volume in catalog order.
func (db *DB) Volumes() ([]VolumeRow, error) {
	rows, err := db.conn.Query(`SELECT name, sort_key, checksum, lemma_count, updated_at FROM volumes ORDER BY sort_key`)
	if err != nil {
		return nil, fmt.Errorf("index: volumes: %w", err)
	}
	defer rows.Close()

	var out []VolumeRow
	for rows.Next() {
		var v VolumeRow
		if err := rows.Scan(&v.Name, &v.SortKey, &v.Checksum, &v.LemmaCount, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Lookup returns lemmas whose sort key starts with prefix, across all
// volumes, ordered by sort key and then by volume.
func (db *DB) Lookup(prefix string, limit int) ([]LemmaRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT `+lemmaColumns+`
		FROM lemmas
		WHERE sort_key LIKE ? ESCAPE '\'
		ORDER BY sort_key, volume_sort, position
		LIMIT ?
	`, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("index: lookup: %w", err)
	}
	return scanLemmas(rows)
}

// Referrers returns lemmas whose previous, next or redirect names title.
func (db *DB) Referrers(title string) ([]LemmaRow, error) {
	rows, err := db.conn.Query(`
		SELECT `+lemmaColumns+`
		FROM lemmas
		WHERE previous = ? OR next = ? OR redirect = ?
		ORDER BY volume_sort, position
	`, title, title, title)
	if err != nil {
		return nil, fmt.Errorf("index: referrers: %w", err)
	}
	return scanLemmas(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanLemmas(rows rowScanner) ([]LemmaRow, error) {
	defer rows.Close()
	var out []LemmaRow
	for rows.Next() {
		var (
			l       LemmaRow
			authors string
		)
		if err := rows.Scan(&l.Volume, &l.Position, &l.Title, &l.SortKey, &l.VolumeSort,
			&l.Previous, &l.Next, &l.Redirect, &l.Chapters, &authors, &l.Valid); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(authors), &l.Authors)
		out = append(out, l)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
