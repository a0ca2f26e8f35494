// Package batch decodes update batch files: JSON arrays of records bound
// for a volume register.
package batch

import (
	"bytes"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lexikon/internal/register"
)

var removableFields = []any{
	register.FieldPrevious,
	register.FieldNext,
	register.FieldSortKey,
	register.FieldRedirect,
	register.FieldWPLink,
	register.FieldWSLink,
	register.FieldChapters,
}

// Item is one update: a record for a volume plus the fields to delete from
// the existing entry.
type Item struct {
	Volume string          `json:"volume"`
	Record register.Record `json:"record"`
	Remove []string        `json:"remove,omitempty"`
	// SelfSupplement targets the second occurrence of a duplicated title.
	SelfSupplement bool `json:"self_supplement,omitempty"`
}

// Validate checks the envelope; the record itself is validated by the
// register when applied.
func (i Item) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Volume, validation.Required),
		validation.Field(&i.Remove, validation.Each(validation.In(removableFields...))),
	)
}

// Options returns the update options the item asks for.
func (i Item) Options() []register.UpdateOption {
	if i.SelfSupplement {
		return []register.UpdateOption{register.WithSelfSupplement()}
	}
	return nil
}

// Decode parses a batch file. A single object is accepted as a batch of
// one. Unknown fields are rejected.
func Decode(data []byte) ([]Item, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("batch: empty input")
	}
	if data[0] == '{' {
		data = append(append([]byte{'['}, data...), ']')
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var items []Item
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("batch: decode: %w", err)
	}
	for n, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("batch: item %d: %w", n, err)
		}
	}
	return items, nil
}
