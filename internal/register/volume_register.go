package register

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/lexikon/internal/sortkey"
)

// noLink marks a neighbor reference that does not resolve to the adjacent
// entry.
const noLink = -1

// link holds the validated neighbor indices of one entry.
type link struct {
	prev int
	next int
}

// VolumeRegister owns the ordered lemma sequence of exactly one volume.
// Neighbor references are kept as titles on the lemmas (the persisted form)
// and as indices in links, recomputed after every structural mutation.
type VolumeRegister struct {
	volume Volume
	lemmas []Lemma
	links  []link
	key    keyFunc
}

// NewVolumeRegister builds a register from persisted records. Entries need
// a title; chapter problems are left for IsValid and Check.
func NewVolumeRegister(v Volume, records []Record) (*VolumeRegister, error) {
	return newVolumeRegister(v, records, sortkey.Normalize)
}

func newVolumeRegister(v Volume, records []Record, key keyFunc) (*VolumeRegister, error) {
	r := &VolumeRegister{volume: v, lemmas: make([]Lemma, 0, len(records)), key: key}
	for i, rec := range records {
		l, err := loadLemma(rec, key)
		if err != nil {
			return nil, fmt.Errorf("register %s: entry %d: %w", v.Name, i, err)
		}
		r.lemmas = append(r.lemmas, l)
	}
	r.relink()
	return r, nil
}

// ParseVolumeRegister decodes a persisted register file.
func ParseVolumeRegister(v Volume, data []byte) (*VolumeRegister, error) {
	return parseVolumeRegister(v, data, sortkey.Normalize)
}

func parseVolumeRegister(v Volume, data []byte, key keyFunc) (*VolumeRegister, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("register %s: parse: %w", v.Name, err)
	}
	return newVolumeRegister(v, records, key)
}

func (r *VolumeRegister) relink() {
	r.links = make([]link, len(r.lemmas))
	for i, l := range r.lemmas {
		r.links[i] = link{prev: noLink, next: noLink}
		if i > 0 && r.lemmas[i-1].matches(l.previous, r.key) {
			r.links[i].prev = i - 1
		}
		if i+1 < len(r.lemmas) && r.lemmas[i+1].matches(l.next, r.key) {
			r.links[i].next = i + 1
		}
	}
}

// Volume returns the volume the register belongs to.
func (r *VolumeRegister) Volume() Volume { return r.volume }

// Len returns the number of entries.
func (r *VolumeRegister) Len() int { return len(r.lemmas) }

// At returns the entry at index i.
func (r *VolumeRegister) At(i int) Lemma { return r.lemmas[i] }

// Lemmas returns the entries in order.
func (r *VolumeRegister) Lemmas() []Lemma {
	out := make([]Lemma, len(r.lemmas))
	copy(out, r.lemmas)
	return out
}

// Neighbors returns the indices the entry at i links to, or -1 where its
// previous or next reference does not name the adjacent entry.
func (r *VolumeRegister) Neighbors(i int) (prev, next int) {
	return r.links[i].prev, r.links[i].next
}

// FindByTitle returns the index of the entry titled t. With skipFirst the
// second occurrence is returned, for legitimately duplicated titles.
func (r *VolumeRegister) FindByTitle(t string, skipFirst bool) (int, bool) {
	return r.find(func(l Lemma) bool { return l.title == t }, skipFirst)
}

// FindBySortKey returns the index of the entry whose sort key equals the
// normalized form of key.
func (r *VolumeRegister) FindBySortKey(key string, skipFirst bool) (int, bool) {
	key = r.key(key)
	return r.find(func(l Lemma) bool { return l.sortKey == key }, skipFirst)
}

func (r *VolumeRegister) find(match func(Lemma) bool, skipFirst bool) (int, bool) {
	skip := skipFirst
	for i, l := range r.lemmas {
		if !match(l) {
			continue
		}
		if skip {
			skip = false
			continue
		}
		return i, true
	}
	return 0, false
}

// Records returns the persisted form of every entry, in order.
func (r *VolumeRegister) Records() []Record {
	out := make([]Record, 0, len(r.lemmas))
	for _, l := range r.lemmas {
		out = append(out, l.Record())
	}
	return out
}

// MarshalJSON encodes the register in its persisted form.
func (r *VolumeRegister) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Records())
}

// Encode returns the register file contents.
func (r *VolumeRegister) Encode() ([]byte, error) {
	return encodeJSON(r.Records())
}

// Render returns the wiki table of the register.
func (r *VolumeRegister) Render(rc RenderContext) string {
	var b strings.Builder
	b.WriteString(tableHeader(false))
	for _, l := range r.lemmas {
		for _, row := range l.Rows(r.volume, false, rc) {
			b.WriteString(row)
		}
	}
	b.WriteString(tableFooter)
	return b.String()
}
