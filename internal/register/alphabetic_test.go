package register

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAlphabeticGroupsIdenticalTitles(t *testing.T) {
	ch := func(start int) []Chapter { return []Chapter{{Start: start, End: start}} }
	first := newRegister(t, "I,1",
		Record{Lemma: "Alpha", Chapters: ch(1)},
		Record{Lemma: "Beta", Chapters: ch(3)},
	)
	third := newRegister(t, "III,1", Record{Lemma: "Beta", Chapters: ch(7)})

	a := BuildAlphabetic("be", "zz", []*VolumeRegister{third, first})
	require.Equal(t, 2, a.Len())
	entries := a.Entries()
	require.Equal(t, "I,1", entries[0].Volume.Name)
	require.Equal(t, "III,1", entries[1].Volume.Name)

	out := a.Render(RenderContext{Authors: NewAuthorDirectory(), Now: time.Now()})
	require.Equal(t, 1, strings.Count(out, "[[RE:Beta|"))
	require.Contains(t, out, "|rowspan=2 data-sort-value=\"beta\"|[[RE:Beta|'''{{Anker2|Beta}}''']]\n")
	require.Contains(t, out, "!Band\n")
	require.NotContains(t, out, "Alpha")
	require.Less(t, strings.Index(out, "[[RE:Register I,1|I,1]]"), strings.Index(out, "[[RE:Register III,1|III,1]]"))
}

func TestAlphabeticOrdersByVolumeSortKey(t *testing.T) {
	ch := []Chapter{{Start: 1, End: 2}, {Start: 3, End: 4}}
	ninth := newRegister(t, "IX,1", Record{Lemma: "Gamma", Chapters: ch})
	fifth := newRegister(t, "V,1", Record{Lemma: "Gamma", Chapters: ch})

	a := BuildAlphabetic("g", "h", []*VolumeRegister{ninth, fifth})
	entries := a.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "V,1", entries[0].Volume.Name)
	require.Equal(t, "IX,1", entries[1].Volume.Name)

	out := a.Render(RenderContext{Now: time.Now()})
	require.Contains(t, out, "|rowspan=4 data-sort-value=\"gamma\"|")
	require.Contains(t, out, "|rowspan=2 data-sort-value=\"1_05_1\"|[[RE:Register V,1|V,1]]\n")
	require.Contains(t, out, "|rowspan=2 data-sort-value=\"1_09_1\"|[[RE:Register IX,1|IX,1]]\n")
	require.Equal(t, 4, strings.Count(out, "|-\n"))
}

func TestAlphabeticRangeIsHalfOpen(t *testing.T) {
	r := newRegister(t, "I,1", rec("B", "", ""), rec("Ba", "", ""), rec("Ca", "", ""))
	a := BuildAlphabetic("b", "ca", []*VolumeRegister{r})
	var got []string
	for _, e := range a.Entries() {
		got = append(got, e.Lemma.Title())
	}
	require.Equal(t, []string{"B", "Ba"}, got)
}
