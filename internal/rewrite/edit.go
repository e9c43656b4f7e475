package rewrite

import (
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// edit replaces the source bytes [start, end) with text.
type edit struct {
	start int
	end   int
	text  string
}

func replace(rng hcl.Range, text string) edit {
	return edit{start: rng.Start.Byte, end: rng.End.Byte, text: text}
}

// apply renders src[start:end] with the given edits applied. Edits come from
// disjoint subtrees, so they never overlap.
func apply(src []byte, start, end int, edits []edit) string {
	sorted := make([]edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	var b strings.Builder
	pos := start
	for _, e := range sorted {
		if e.start < pos || e.end > end {
			continue
		}
		b.Write(src[pos:e.start])
		b.WriteString(e.text)
		pos = e.end
	}
	b.Write(src[pos:end])
	return b.String()
}

// render is apply over the range of one expression.
func render(src []byte, rng hcl.Range, edits []edit) string {
	return apply(src, rng.Start.Byte, rng.End.Byte, edits)
}
