package register

import (
	"cmp"
	"slices"
	"strings"
)

// AlphabeticEntry references one lemma of one volume.
type AlphabeticEntry struct {
	Volume Volume
	Lemma  Lemma
}

// AlphabeticRegister is a read view over every volume register, restricted
// to sort keys in [Start, End).
type AlphabeticRegister struct {
	start   string
	end     string
	entries []AlphabeticEntry
}

// BuildAlphabetic collects the lemmas of registers whose sort key lies in
// [start, end) and orders them by sort key, then by volume order.
func BuildAlphabetic(start, end string, registers []*VolumeRegister) *AlphabeticRegister {
	a := &AlphabeticRegister{start: start, end: end}
	for _, reg := range registers {
		for _, l := range reg.lemmas {
			if l.sortKey >= start && l.sortKey < end {
				a.entries = append(a.entries, AlphabeticEntry{Volume: reg.volume, Lemma: l})
			}
		}
	}
	slices.SortStableFunc(a.entries, func(x, y AlphabeticEntry) int {
		return cmp.Or(
			cmp.Compare(x.Lemma.sortKey, y.Lemma.sortKey),
			cmp.Compare(x.Volume.SortKey, y.Volume.SortKey),
		)
	})
	return a
}

func (a *AlphabeticRegister) Start() string { return a.start }
func (a *AlphabeticRegister) End() string   { return a.end }
func (a *AlphabeticRegister) Len() int      { return len(a.entries) }

// Entries returns the entries in order.
func (a *AlphabeticRegister) Entries() []AlphabeticEntry {
	return slices.Clone(a.entries)
}

// Render returns the wiki table. Consecutive entries with an identical title
// share one link cell spanning all of their rows.
func (a *AlphabeticRegister) Render(rc RenderContext) string {
	var b strings.Builder
	b.WriteString(tableHeader(true))
	for i := 0; i < len(a.entries); {
		j := i + 1
		for j < len(a.entries) && a.entries[j].Lemma.title == a.entries[i].Lemma.title {
			j++
		}
		span := 0
		for _, e := range a.entries[i:j] {
			span += e.Lemma.rowCount()
		}
		for k, e := range a.entries[i:j] {
			linkSpan := 0
			if k == 0 {
				linkSpan = span
			}
			for _, row := range e.Lemma.rows(e.Volume, linkSpan, true, rc) {
				b.WriteString(row)
			}
		}
		i = j
	}
	b.WriteString(tableFooter)
	return b.String()
}
