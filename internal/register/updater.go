package register

import (
	"fmt"
	"slices"

	"github.com/starford/lexikon/internal/apperr"
)

// Strategy names the way an update record was merged into a register.
type Strategy int

const (
	StrategyNone Strategy = iota
	UpdateByName
	UpdateBySortKey
	UpdatePreAndPostExists
	UpdatePreExists
	UpdatePostExists
)

func (s Strategy) String() string {
	switch s {
	case UpdateByName:
		return "update_by_name"
	case UpdateBySortKey:
		return "update_by_sortkey"
	case UpdatePreAndPostExists:
		return "update_pre_and_post_exists"
	case UpdatePreExists:
		return "update_pre_exists"
	case UpdatePostExists:
		return "update_post_exists"
	default:
		return "none"
	}
}

type updateOptions struct {
	selfSupplement bool
}

// UpdateOption configures a single Update call.
type UpdateOption func(*updateOptions)

// WithSelfSupplement targets the second occurrence of a title that appears
// twice in the volume, as happens when an article is resumed later on.
func WithSelfSupplement() UpdateOption {
	return func(o *updateOptions) { o.selfSupplement = true }
}

// plan is the outcome of strategy selection: the strategy and the indices it
// operates on.
type plan struct {
	strategy Strategy
	index    int
	prev     int
	next     int
}

// Update merges rec into the register, deleting the fields named in remove,
// and reports the strategy used. Strategies are tried in a fixed priority
// order and the first applicable one wins. On error the register is left
// unchanged.
func (r *VolumeRegister) Update(rec Record, remove []string, opts ...UpdateOption) (Strategy, error) {
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := rec.Validate(); err != nil {
		return StrategyNone, &apperr.ValidationError{Lemma: rec.Lemma, Err: err}
	}

	p := r.selectStrategy(rec, o.selfSupplement)
	var (
		lemmas []Lemma
		err    error
	)
	switch p.strategy {
	case UpdateByName, UpdateBySortKey:
		lemmas, err = r.merge(p.index, rec, remove)
	case UpdatePreAndPostExists:
		lemmas, err = r.fillGap(p.prev, p.next, rec, remove)
	case UpdatePreExists:
		lemmas, err = r.insertAfter(p.prev, rec, remove)
	case UpdatePostExists:
		lemmas, err = r.insertBefore(p.next, rec, remove)
	case StrategyNone:
		return StrategyNone, r.fail(rec.Lemma, "no strategy available", apperr.ErrNoStrategy)
	default:
		return StrategyNone, fmt.Errorf("register %s: unhandled strategy %d", r.volume.Name, p.strategy)
	}
	if err != nil {
		return p.strategy, err
	}
	r.lemmas = lemmas
	r.relink()
	return p.strategy, nil
}

func (r *VolumeRegister) selectStrategy(rec Record, skipFirst bool) plan {
	if i, ok := r.FindByTitle(rec.Lemma, skipFirst); ok {
		return plan{strategy: UpdateByName, index: i}
	}
	if i, ok := r.FindBySortKey(rec.sortSource(), skipFirst); ok {
		return plan{strategy: UpdateBySortKey, index: i}
	}
	prev, hasPrev := r.findNeighbor(rec.Previous)
	next, hasNext := r.findNeighbor(rec.Next)
	switch {
	case hasPrev && hasNext:
		return plan{strategy: UpdatePreAndPostExists, prev: prev, next: next}
	case hasPrev:
		return plan{strategy: UpdatePreExists, prev: prev}
	case hasNext:
		return plan{strategy: UpdatePostExists, next: next}
	}
	return plan{strategy: StrategyNone}
}

func (r *VolumeRegister) findNeighbor(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	return r.FindBySortKey(name, false)
}

// merge applies rec to the entry at i and repairs the links of its
// neighbors. Supplement volumes grow stubs for neighbors they do not hold
// yet; other volumes only rewrite link text and refuse contradictions.
func (r *VolumeRegister) merge(i int, rec Record, remove []string) ([]Lemma, error) {
	updated, err := r.lemmas[i].apply(rec, remove, r.key)
	if err != nil {
		return nil, err
	}
	lemmas := slices.Clone(r.lemmas)
	lemmas[i] = updated
	if r.volume.Type == Supplements {
		return r.growNeighbors(lemmas, i, rec), nil
	}
	if err := r.healNeighbors(lemmas, i, rec); err != nil {
		return nil, err
	}
	return lemmas, nil
}

// healNeighbors rewrites the neighbors' link text to the current title. A
// claimed neighbor that is not the adjacent entry is a contradiction.
func (r *VolumeRegister) healNeighbors(lemmas []Lemma, i int, rec Record) error {
	updated := lemmas[i]
	if rec.Previous != "" && i > 0 {
		nb := lemmas[i-1]
		if !nb.matches(rec.Previous, r.key) {
			return r.conflict(updated.title, "previous", rec.Previous, nb.title, nb.next)
		}
		lemmas[i-1] = nb.withNext(updated.title)
	}
	if rec.Next != "" && i+1 < len(lemmas) {
		nb := lemmas[i+1]
		if !nb.matches(rec.Next, r.key) {
			return r.conflict(updated.title, "next", rec.Next, nb.title, nb.previous)
		}
		lemmas[i+1] = nb.withPrevious(updated.title)
	}
	return nil
}

// growNeighbors links the entry at i to its claimed neighbors, splicing in a
// stub wherever the adjacent entry is not the claimed one. The adjacent
// entry's old link is severed.
func (r *VolumeRegister) growNeighbors(lemmas []Lemma, i int, rec Record) []Lemma {
	title := lemmas[i].title
	if rec.Previous != "" {
		if i > 0 && lemmas[i-1].sortKey == r.key(rec.Previous) {
			lemmas[i-1] = lemmas[i-1].withNext(title)
		} else {
			if i > 0 {
				lemmas[i-1] = lemmas[i-1].withNext("")
			}
			lemmas = slices.Insert(lemmas, i, stub(rec.Previous, "", title, r.key))
			i++
		}
	}
	if rec.Next != "" {
		if i+1 < len(lemmas) && lemmas[i+1].sortKey == r.key(rec.Next) {
			lemmas[i+1] = lemmas[i+1].withPrevious(title)
		} else {
			if i+1 < len(lemmas) {
				lemmas[i+1] = lemmas[i+1].withPrevious("")
			}
			lemmas = slices.Insert(lemmas, i+1, stub(rec.Next, title, "", r.key))
		}
	}
	return lemmas
}

// fillGap places a new entry between prev and next. Adjacent neighbors get
// an insert, a single stray entry between them is replaced, and any other
// distance means the sequence is corrupt.
func (r *VolumeRegister) fillGap(prev, next int, rec Record, remove []string) ([]Lemma, error) {
	created, err := Lemma{}.apply(rec, remove, r.key)
	if err != nil {
		return nil, err
	}
	lemmas := slices.Clone(r.lemmas)
	var at int
	switch next - prev {
	case 1:
		at = next
		lemmas = slices.Insert(lemmas, at, created)
	case 2:
		at = prev + 1
		lemmas[at] = created
	default:
		return nil, r.fail(rec.Lemma, fmt.Sprintf("gap between %q and %q spans %d entries",
			r.lemmas[prev].title, r.lemmas[next].title, next-prev-1), nil)
	}
	lemmas[at-1] = lemmas[at-1].withNext(created.title)
	lemmas[at+1] = lemmas[at+1].withPrevious(created.title)
	return lemmas, nil
}

// insertAfter places a new entry directly after prev. The claimed next is
// unknown, so it is dropped and the old successor is disconnected.
func (r *VolumeRegister) insertAfter(prev int, rec Record, remove []string) ([]Lemma, error) {
	rec.Next = ""
	created, err := Lemma{}.apply(rec, remove, r.key)
	if err != nil {
		return nil, err
	}
	lemmas := slices.Clone(r.lemmas)
	at := prev + 1
	if at < len(lemmas) {
		lemmas[at] = lemmas[at].withPrevious("")
	}
	lemmas = slices.Insert(lemmas, at, created)
	lemmas[prev] = lemmas[prev].withNext(created.title)
	return lemmas, nil
}

// insertBefore is the mirror image of insertAfter.
func (r *VolumeRegister) insertBefore(next int, rec Record, remove []string) ([]Lemma, error) {
	rec.Previous = ""
	created, err := Lemma{}.apply(rec, remove, r.key)
	if err != nil {
		return nil, err
	}
	lemmas := slices.Clone(r.lemmas)
	if next > 0 {
		lemmas[next-1] = lemmas[next-1].withNext("")
	}
	lemmas = slices.Insert(lemmas, next, created)
	lemmas[next+1] = lemmas[next+1].withPrevious(created.title)
	return lemmas, nil
}

func (r *VolumeRegister) fail(lemma, msg string, err error) error {
	return &apperr.RegisterError{Volume: r.volume.Name, Lemma: lemma, Message: msg, Err: err}
}

func (r *VolumeRegister) conflict(lemma, field, claimed, neighbor, neighborLink string) error {
	return r.fail(lemma, fmt.Sprintf("%s %q contradicts neighbor %q which links back as %q",
		field, claimed, neighbor, neighborLink), nil)
}
