package register

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lexikon/internal/apperr"
	"github.com/starford/lexikon/internal/sortkey"
)

// Field names accepted in the remove list of an update.
const (
	FieldPrevious = "previous"
	FieldNext     = "next"
	FieldSortKey  = "sort_key"
	FieldRedirect = "redirect"
	FieldWPLink   = "wp_link"
	FieldWSLink   = "ws_link"
	FieldChapters = "chapters"
)

// Redirect is either a flag or the title of the redirect target.
type Redirect struct {
	Target string
	Flag   bool
}

// Active reports whether the lemma redirects somewhere.
func (r Redirect) Active() bool {
	return r.Flag || r.Target != ""
}

func (r Redirect) MarshalJSON() ([]byte, error) {
	if r.Target != "" {
		return json.Marshal(r.Target)
	}
	return json.Marshal(r.Flag)
}

func (r *Redirect) UnmarshalJSON(data []byte) error {
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		*r = Redirect{Flag: flag}
		return nil
	}
	var target string
	if err := json.Unmarshal(data, &target); err != nil {
		return errors.New("redirect must be a bool or a title")
	}
	*r = Redirect{Target: target}
	return nil
}

// Record is the flat shape shared by update records and persisted register
// files. Field order is the persisted field order; empty fields are absent.
type Record struct {
	Lemma    string    `json:"lemma"`
	Previous string    `json:"previous,omitempty"`
	Next     string    `json:"next,omitempty"`
	SortKey  string    `json:"sort_key,omitempty"`
	Redirect *Redirect `json:"redirect,omitempty"`
	WPLink   string    `json:"wp_link,omitempty"`
	WSLink   string    `json:"ws_link,omitempty"`
	Chapters []Chapter `json:"chapters,omitempty"`
}

// Validate checks the title and the well-formedness of every chapter.
func (r Record) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Lemma, validation.Required),
		validation.Field(&r.Chapters),
	)
}

// sortSource is the text the sort key of the record derives from.
func (r Record) sortSource() string {
	if r.SortKey != "" {
		return r.SortKey
	}
	return r.Lemma
}

// Lemma is one catalog entry. It is an immutable value: Apply returns a new,
// validated Lemma and leaves the receiver untouched.
type Lemma struct {
	title           string
	previous        string
	next            string
	sortKeyOverride string
	redirect        *Redirect
	wpLink          string
	wsLink          string
	chapters        []Chapter

	sortKey string
}

// keyFunc derives the sort key of a title.
type keyFunc func(string) string

// NewLemma builds a validated lemma from a record.
func NewLemma(rec Record) (Lemma, error) {
	return Lemma{}.Apply(rec, nil)
}

// loadLemma builds a lemma from a persisted record. Only the title is
// required: malformed chapters are kept so that IsValid and Check can
// report them.
func loadLemma(rec Record, key keyFunc) (Lemma, error) {
	if err := validation.Validate(rec.Lemma, validation.Required); err != nil {
		return Lemma{}, &apperr.ValidationError{Err: fmt.Errorf("lemma: %w", err)}
	}
	return fromRecord(rec, key), nil
}

// stub is the minimal entry synthesized while growing a supplement register.
func stub(title, previous, next string, key keyFunc) Lemma {
	return Lemma{
		title:    title,
		previous: previous,
		next:     next,
		sortKey:  key(title),
	}
}

// Apply merges the non-empty fields of rec, deletes the fields named in
// remove, re-derives the sort key and validates the result. An empty chapter
// list is accepted here; IsValid reports it.
func (l Lemma) Apply(rec Record, remove []string) (Lemma, error) {
	return l.apply(rec, remove, sortkey.Normalize)
}

func (l Lemma) apply(rec Record, remove []string, key keyFunc) (Lemma, error) {
	out := l.Record()
	if rec.Lemma != "" {
		out.Lemma = rec.Lemma
	}
	if rec.Previous != "" {
		out.Previous = rec.Previous
	}
	if rec.Next != "" {
		out.Next = rec.Next
	}
	if rec.SortKey != "" {
		out.SortKey = rec.SortKey
	}
	if rec.Redirect != nil {
		r := *rec.Redirect
		out.Redirect = &r
	}
	if rec.WPLink != "" {
		out.WPLink = rec.WPLink
	}
	if rec.WSLink != "" {
		out.WSLink = rec.WSLink
	}
	if rec.Chapters != nil {
		out.Chapters = slices.Clone(rec.Chapters)
	}

	for _, field := range remove {
		switch field {
		case FieldPrevious:
			out.Previous = ""
		case FieldNext:
			out.Next = ""
		case FieldSortKey:
			out.SortKey = ""
		case FieldRedirect:
			out.Redirect = nil
		case FieldWPLink:
			out.WPLink = ""
		case FieldWSLink:
			out.WSLink = ""
		case FieldChapters:
			out.Chapters = nil
		default:
			return l, &apperr.ValidationError{
				Lemma: out.Lemma,
				Err:   fmt.Errorf("field %q cannot be removed", field),
			}
		}
	}

	if err := out.Validate(); err != nil {
		return l, &apperr.ValidationError{Lemma: out.Lemma, Err: err}
	}
	return fromRecord(out, key), nil
}

func fromRecord(rec Record, key keyFunc) Lemma {
	l := Lemma{
		title:           rec.Lemma,
		previous:        rec.Previous,
		next:            rec.Next,
		sortKeyOverride: rec.SortKey,
		wpLink:          rec.WPLink,
		wsLink:          rec.WSLink,
		chapters:        slices.Clone(rec.Chapters),
	}
	if rec.Redirect != nil {
		r := *rec.Redirect
		l.redirect = &r
	}
	l.sortKey = key(rec.sortSource())
	return l
}

// Record returns the persisted form of the lemma.
func (l Lemma) Record() Record {
	rec := Record{
		Lemma:    l.title,
		Previous: l.previous,
		Next:     l.next,
		SortKey:  l.sortKeyOverride,
		WPLink:   l.wpLink,
		WSLink:   l.wsLink,
		Chapters: slices.Clone(l.chapters),
	}
	if l.redirect != nil {
		r := *l.redirect
		rec.Redirect = &r
	}
	return rec
}

// IsValid reports whether the lemma has at least one chapter and every
// chapter has a well-formed page range.
func (l Lemma) IsValid() bool {
	if len(l.chapters) == 0 {
		return false
	}
	for _, c := range l.chapters {
		if c.Validate() != nil {
			return false
		}
	}
	return true
}

func (l Lemma) Title() string    { return l.title }
func (l Lemma) Previous() string { return l.previous }
func (l Lemma) Next() string     { return l.next }
func (l Lemma) SortKey() string  { return l.sortKey }

// Chapters returns a copy of the chapter list.
func (l Lemma) Chapters() []Chapter { return slices.Clone(l.chapters) }

// Redirect returns the redirect of the lemma, if any.
func (l Lemma) Redirect() (Redirect, bool) {
	if l.redirect == nil {
		return Redirect{}, false
	}
	return *l.redirect, l.redirect.Active()
}

// rowCount is the number of table rows the lemma renders to.
func (l Lemma) rowCount() int {
	return max(1, len(l.chapters))
}

func (l Lemma) withPrevious(title string) Lemma {
	l.previous = title
	return l
}

func (l Lemma) withNext(title string) Lemma {
	l.next = title
	return l
}

// matches reports whether a link text names l, by title or by sort key.
func (l Lemma) matches(name string, key keyFunc) bool {
	return name != "" && (name == l.title || key(name) == l.sortKey)
}
