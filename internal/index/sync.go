package index

import (
	"log/slog"
	"time"

	"github.com/starford/lexikon/internal/register"
)

// Sync brings the index up to date with the loaded registers:
//   - volumes whose register checksum changed are re-indexed
//   - volumes no longer loaded are deleted from the index
//
// It returns the names of the volumes it re-indexed.
func Sync(db LemmaIndex, regs *register.Registers, logger *slog.Logger) ([]string, error) {
	checksums, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	var changed []string
	loaded := make(map[string]struct{})
	for _, reg := range regs.Volumes() {
		v := reg.Volume()
		loaded[v.Name] = struct{}{}

		cs := regs.Checksum(v.Name)
		if cs != "" && checksums[v.Name] == cs {
			continue
		}
		row := VolumeRow{Name: v.Name, SortKey: v.SortKey, Checksum: cs, UpdatedAt: time.Now()}
		if err := db.ReplaceVolume(row, Rows(reg, regs.Authors())); err != nil {
			logger.Warn("sync: index failed", slog.String("volume", v.Name), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.String("volume", v.Name), slog.Int("lemmas", reg.Len()))
		changed = append(changed, v.Name)
	}

	// Remove stale entries.
	for name := range checksums {
		if _, ok := loaded[name]; !ok {
			if err := db.DeleteVolume(name); err != nil {
				logger.Warn("sync: delete failed", slog.String("volume", name), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("volume", name))
			}
		}
	}

	return changed, nil
}

// Rows converts a register into index rows. Chapter citations are resolved
// through authors where possible.
func Rows(reg *register.VolumeRegister, authors *register.AuthorDirectory) []LemmaRow {
	v := reg.Volume()
	out := make([]LemmaRow, 0, reg.Len())
	for i, l := range reg.Lemmas() {
		row := LemmaRow{
			Volume:     v.Name,
			Position:   i,
			Title:      l.Title(),
			SortKey:    l.SortKey(),
			VolumeSort: v.SortKey,
			Previous:   l.Previous(),
			Next:       l.Next(),
			Valid:      l.IsValid(),
		}
		if r, ok := l.Redirect(); ok {
			row.Redirect = r.Target
		}
		chapters := l.Chapters()
		row.Chapters = len(chapters)
		seen := make(map[string]bool)
		for _, c := range chapters {
			if c.Author == "" {
				continue
			}
			name := c.Author
			if authors != nil {
				if a, ok := authors.Resolve(c.Author, v.Name); ok {
					name = a.Name
				}
			}
			if !seen[name] {
				seen[name] = true
				row.Authors = append(row.Authors, name)
			}
		}
		out = append(out, row)
	}
	return out
}
