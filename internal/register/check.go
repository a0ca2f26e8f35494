package register

import "fmt"

// DefaultDuplicateDistance is the minimum number of positions between two
// entries sharing a title before they are accepted as a resumed article.
const DefaultDuplicateDistance = 10

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue kinds reported by Check.
const (
	KindAdjacency = "adjacency"
	KindInvalid   = "invalid_lemma"
	KindDuplicate = "duplicate_title"
)

// Issue is one inconsistency found in a register.
type Issue struct {
	Severity Severity `json:"severity"`
	Kind     string   `json:"kind"`
	Volume   string   `json:"volume"`
	Index    int      `json:"index"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
}

// CheckOptions tunes the duplicate-title detection.
type CheckOptions struct {
	DuplicateDistance int
	// AllowedDuplicates lists titles that may repeat at any distance.
	AllowedDuplicates map[string]bool
}

// Check reports broken neighbor links, invalid entries and duplicate titles
// that are too close together. Nothing is repaired.
func (r *VolumeRegister) Check(opts CheckOptions) []Issue {
	distance := opts.DuplicateDistance
	if distance <= 0 {
		distance = DefaultDuplicateDistance
	}

	var issues []Issue
	add := func(sev Severity, kind string, i int, format string, args ...any) {
		issues = append(issues, Issue{
			Severity: sev,
			Kind:     kind,
			Volume:   r.volume.Name,
			Index:    i,
			Title:    r.lemmas[i].title,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	seen := make(map[string]int, len(r.lemmas))
	for i, l := range r.lemmas {
		if l.previous != "" && r.links[i].prev == noLink {
			add(SeverityWarning, KindAdjacency, i, "previous %q does not name the preceding entry", l.previous)
		}
		if l.next != "" && r.links[i].next == noLink {
			add(SeverityWarning, KindAdjacency, i, "next %q does not name the following entry", l.next)
		}
		if !l.IsValid() {
			add(SeverityWarning, KindInvalid, i, "lemma has no complete chapter")
		}
		if last, ok := seen[l.title]; ok && i-last < distance && !opts.AllowedDuplicates[l.title] {
			add(SeverityError, KindDuplicate, i, "title repeats entry %d at distance %d (minimum %d)", last, i-last, distance)
		}
		seen[l.title] = i
	}
	return issues
}
