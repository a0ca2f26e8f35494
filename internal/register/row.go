package register

import (
	"fmt"
	"strings"
	"time"
)

// Years after an author's death before the work enters the public domain.
const publicDomainYears = 71

const (
	colorPublicDomain = "#B9FFC5"
	colorProtected    = "#FFCBCB"
	colorUnknown      = "#CBCBCB"
)

// RenderContext carries what row rendering needs besides the lemma itself.
type RenderContext struct {
	Authors *AuthorDirectory
	Now     time.Time
}

func (rc RenderContext) cutoffYear() int {
	return rc.Now.Year() - publicDomainYears
}

// Rows renders the lemma as table rows, one per chapter. The first cell
// spans every chapter row; with showVolume a volume cell follows it.
func (l Lemma) Rows(volume Volume, showVolume bool, rc RenderContext) []string {
	return l.rows(volume, l.rowCount(), showVolume, rc)
}

// rows renders the lemma with a link cell spanning linkSpan rows. A zero
// linkSpan omits the link cell, for entries squashed into a preceding block.
func (l Lemma) rows(volume Volume, linkSpan int, showVolume bool, rc RenderContext) []string {
	out := make([]string, 0, l.rowCount())
	for i := 0; i < l.rowCount(); i++ {
		var b strings.Builder
		b.WriteString("|-\n")
		if i == 0 {
			if linkSpan > 0 {
				b.WriteString(l.linkCell(linkSpan))
			}
			if showVolume {
				b.WriteString(volumeCell(volume, l.rowCount()))
			}
		}
		b.WriteString(l.chapterCells(i, volume, rc))
		out = append(out, b.String())
	}
	return out
}

func (l Lemma) linkCell(span int) string {
	var b strings.Builder
	b.WriteString("|")
	if span > 1 {
		fmt.Fprintf(&b, "rowspan=%d ", span)
	}
	fmt.Fprintf(&b, "data-sort-value=\"%s\"|", l.sortKey)
	if r, ok := l.Redirect(); ok {
		fmt.Fprintf(&b, "[[RE:%s|''{{Anker2|%s}}'']]", l.title, l.title)
		if r.Target != "" {
			fmt.Fprintf(&b, " → [[RE:%s|%s]]", r.Target, r.Target)
		}
	} else {
		fmt.Fprintf(&b, "[[RE:%s|'''{{Anker2|%s}}''']]", l.title, l.title)
	}
	b.WriteString("\n")
	return b.String()
}

func volumeCell(volume Volume, span int) string {
	var b strings.Builder
	b.WriteString("|")
	if span > 1 {
		fmt.Fprintf(&b, "rowspan=%d ", span)
	}
	fmt.Fprintf(&b, "data-sort-value=\"%s\"|[[RE:Register %s|%s]]\n", volume.SortKey, volume.Name, volume.Name)
	return b.String()
}

// chapterCells renders pages, author and death year of chapter i. A lemma
// without chapters renders empty cells.
func (l Lemma) chapterCells(i int, volume Volume, rc RenderContext) string {
	if i >= len(l.chapters) {
		return fmt.Sprintf("|\n|\n|style=\"background:%s\"|\n", colorUnknown)
	}
	c := l.chapters[i]
	author, known := Author{}, false
	if c.Author != "" && rc.Authors != nil {
		author, known = rc.Authors.Resolve(c.Author, volume.Name)
	}
	name := c.Author
	if known {
		name = author.Name
	}
	return fmt.Sprintf("|%s\n|%s\n%s\n", pagesCell(volume, c), name, rc.deathCell(author, known))
}

func pagesCell(volume Volume, c Chapter) string {
	s := fmt.Sprintf("[[Special:Filepath/Pauly-Wissowa_%s,_%04d.jpg|%d]]", volume.ScanName(), c.scanPage(), c.Start)
	if c.End != c.Start {
		s += fmt.Sprintf("-%d", c.End)
	}
	return s
}

func (rc RenderContext) deathCell(a Author, known bool) string {
	if !known || a.Death == nil {
		return fmt.Sprintf("|style=\"background:%s\"|", colorUnknown)
	}
	color := colorProtected
	if *a.Death <= rc.cutoffYear() {
		color = colorPublicDomain
	}
	return fmt.Sprintf("|style=\"background:%s\"|%d", color, *a.Death)
}

func tableHeader(showVolume bool) string {
	var b strings.Builder
	b.WriteString("{|class=\"wikitable sortable\"\n!Artikel\n")
	if showVolume {
		b.WriteString("!Band\n")
	}
	b.WriteString("!Seite\n!Autor\n!Sterbejahr\n")
	return b.String()
}

const tableFooter = "|}\n"
