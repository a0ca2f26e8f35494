package register

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Chapter is one contiguous scanned page range of a lemma and its
// (possibly unknown) contributor.
type Chapter struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Author string `json:"author,omitempty"`
}

// Validate checks that both pages are present and start <= end.
func (c Chapter) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Start, validation.Required, validation.Min(1)),
		validation.Field(&c.End, validation.Required, validation.Min(c.Start)),
	)
}

// scanPage is the first page of the double-page scan holding the chapter
// start; scans always begin on an odd page.
func (c Chapter) scanPage() int {
	if c.Start%2 == 0 {
		return c.Start - 1
	}
	return c.Start
}
